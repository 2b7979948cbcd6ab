// SPDX-License-Identifier: MIT

package trickplay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/strmforge/mediapack/internal/iframe"
	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/store"
)

// Coordinator runs the top-level artifact refresh for one video: trickplay
// tiles per configured width, directory pruning, and the I-frame playlist.
type Coordinator struct {
	gen     *Generator
	iframes *iframe.Builder
	store   *store.Store
	paths   media.PathManager

	// refreshes of the same video coalesce; concurrent callers share one run
	flight singleflight.Group
}

// NewCoordinator wires a coordinator.
func NewCoordinator(gen *Generator, ib *iframe.Builder, s *store.Store, paths media.PathManager) *Coordinator {
	return &Coordinator{gen: gen, iframes: ib, store: s, paths: paths}
}

// Refresh rebuilds the video's artifacts according to the library toggles.
// Per-width failures are logged and swallowed so one failed resolution does
// not abort the others.
func (c *Coordinator) Refresh(ctx context.Context, video media.VideoRef, lib media.LibraryOptions, opts Options, replace bool) error {
	_, err, _ := c.flight.Do(video.ID, func() (any, error) {
		return nil, c.refresh(ctx, video, lib, opts, replace)
	})
	return err
}

func (c *Coordinator) refresh(ctx context.Context, video media.VideoRef, lib media.LibraryOptions, opts Options, replace bool) error {
	ctx = xglog.ContextWithJobID(xglog.ContextWithItemID(ctx, video.ID), uuid.NewString())
	logger := xglog.WithComponentFromContext(ctx, "coordinator")

	root, err := c.resolveRoot(video, lib.SaveWithMedia, &logger)
	if err != nil {
		return err
	}

	if !lib.EnableTrickplayImageExtraction || replace {
		logger.Info().Str(xglog.FieldDir, root).Msg("clearing existing trickplay artifacts")
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("clear artifact root: %w", err)
		}
		if err := c.store.DeleteTrickplayByItem(ctx, video.ID); err != nil {
			return err
		}
		if !lib.EnableTrickplayImageExtraction {
			return nil
		}
	}

	for _, width := range opts.Widths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.gen.Generate(ctx, video, root, width, opts, replace); err != nil {
			logger.Error().Err(err).Int(xglog.FieldWidth, width).Msg("trickplay generation failed")
		}
	}

	if err := c.gen.Prune(ctx, video, root, opts); err != nil {
		logger.Error().Err(err).Msg("pruning stale directories failed")
	}

	if !lib.DisableIFramePlaylistGeneration {
		extractOpts := media.ExtractOptions{
			HwAccel:     opts.HwAccel,
			Threads:     opts.Threads,
			Qscale:      opts.JpegQuality,
			Priority:    opts.Priority,
			IFramesOnly: true,
		}
		if err := c.iframes.Build(ctx, video, root, extractOpts, replace); err != nil {
			logger.Error().Err(err).Msg("I-frame playlist generation failed")
		}
	}
	return nil
}

// resolveRoot picks the preferred artifact root and migrates an existing
// tree when the save-with-media toggle changed since the last build. The
// database stays untouched; rows reference widths, not roots.
func (c *Coordinator) resolveRoot(video media.VideoRef, saveWithMedia bool, logger *zerolog.Logger) (string, error) {
	preferred := c.paths.TrickplayDir(video, saveWithMedia)
	previous := c.paths.TrickplayDir(video, !saveWithMedia)
	if preferred == previous {
		return preferred, nil
	}
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}
	if _, err := os.Stat(previous); err != nil {
		return preferred, nil
	}
	if err := os.MkdirAll(filepath.Dir(preferred), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(previous, preferred); err != nil {
		return "", fmt.Errorf("migrate artifact root: %w", err)
	}
	logger.Info().
		Str(xglog.FieldPath, previous).
		Str(xglog.FieldFinalPath, preferred).
		Msg("moved artifacts between roots")
	return preferred, nil
}

// RemoveVideo deletes every artifact of a deleted video: both candidate
// roots and all persisted rows.
func (c *Coordinator) RemoveVideo(ctx context.Context, video media.VideoRef) error {
	for _, saveWithMedia := range []bool{false, true} {
		dir := c.paths.TrickplayDir(video, saveWithMedia)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove artifact dir: %w", err)
		}
	}
	if err := c.store.DeleteTrickplayByItem(ctx, video.ID); err != nil {
		return err
	}
	return c.store.DeleteIFrameByItem(ctx, video.ID)
}

// Root exposes the active artifact root for serving.
func (c *Coordinator) Root(video media.VideoRef, lib media.LibraryOptions) string {
	return c.paths.TrickplayDir(video, lib.SaveWithMedia)
}
