// SPDX-License-Identifier: MIT

package api

import (
	"github.com/strmforge/mediapack/internal/config"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/trickplay"
)

// libraryOptions maps the configuration toggles to the domain type.
func libraryOptions(cfg config.Config) media.LibraryOptions {
	return media.LibraryOptions{
		EnableTrickplayImageExtraction:  cfg.Library.EnableTrickplayImageExtraction,
		DisableIFramePlaylistGeneration: cfg.Library.DisableIFramePlaylistGeneration,
		SaveWithMedia:                   cfg.Library.SaveWithMedia,
	}
}

// trickplayOptions maps the configured options table to the generator.
func trickplayOptions(cfg config.Config) trickplay.Options {
	return trickplay.Options{
		Interval:    cfg.Trickplay.IntervalMs,
		Widths:      cfg.Trickplay.Widths,
		TileWidth:   cfg.Trickplay.TileWidth,
		TileHeight:  cfg.Trickplay.TileHeight,
		JpegQuality: cfg.Trickplay.JpegQuality,
		HwAccel:     cfg.Trickplay.HwAccel,
		Threads:     cfg.Trickplay.Threads,
		IFramesOnly: cfg.Trickplay.IFramesOnly,
	}
}
