// SPDX-License-Identifier: MIT

// Package iframe builds keyframe-only fMP4 HLS artifacts used by Apple
// players for scrubbing.
package iframe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/metrics"
	"github.com/strmforge/mediapack/internal/store"
)

// PlaylistName is the artifact playlist filename.
const PlaylistName = "iframe.m3u8"

// InitSegmentName is the fMP4 initialization segment filename.
const InitSegmentName = "init.mp4"

// Builder produces one I-frame playlist artifact per video.
type Builder struct {
	store   *store.Store
	encoder media.Encoder
}

// NewBuilder wires a builder.
func NewBuilder(s *store.Store, enc media.Encoder) *Builder {
	return &Builder{store: s, encoder: enc}
}

// Build generates the artifact under root (the video's trickplay root) and
// persists its row. An existing artifact with a persisted row is kept
// unless replace is set.
func (b *Builder) Build(ctx context.Context, video media.VideoRef, root string, opts media.ExtractOptions, replace bool) error {
	logger := xglog.WithComponentFromContext(ctx, "iframe")
	logger = logger.With().Str(xglog.FieldItemID, video.ID).Logger()

	if reason := video.IneligibleReason(time.Second); reason != "" {
		logger.Debug().Msg(reason)
		return nil
	}
	if _, err := os.Stat(video.Path); err != nil {
		logger.Warn().Str(xglog.FieldPath, video.Path).Msg("media file missing")
		return nil
	}

	outDir := media.IFrameDir(root)
	if !replace {
		_, rowErr := b.store.GetIFrame(ctx, video.ID)
		if _, statErr := os.Stat(filepath.Join(outDir, PlaylistName)); rowErr == nil && statErr == nil {
			return nil
		}
	}

	start := time.Now()
	err := b.build(ctx, video, outDir, opts)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ObserveIFrameGeneration(result, time.Since(start))
	return err
}

func (b *Builder) build(ctx context.Context, video media.VideoRef, outDir string, opts media.ExtractOptions) error {
	logger := xglog.WithComponentFromContext(ctx, "iframe")

	scratch, err := b.encoder.GenerateIFrameHLS(ctx, video, media.IFrameHeight, opts)
	if err != nil {
		return fmt.Errorf("generate I-frame HLS: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(scratch)
		}
	}()

	segments, maxSize, err := scanSegments(scratch)
	if err != nil {
		return err
	}
	if segments == 0 {
		return fmt.Errorf("encoder produced no segments")
	}
	for _, name := range []string{PlaylistName, InitSegmentName} {
		if _, err := os.Stat(filepath.Join(scratch, name)); err != nil {
			return fmt.Errorf("encoder output missing %s: %w", name, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outDir), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(outDir); err != nil {
		return err
	}
	if err := os.Rename(scratch, outDir); err != nil {
		return err
	}
	cleanup = false

	effW, effH := video.EffectiveSize()
	width := (media.IFrameHeight * effW / effH) &^ 1

	info := media.IFramePlaylistInfo{
		ItemID:       video.ID,
		Width:        width,
		Height:       media.IFrameHeight,
		SegmentCount: segments,
		Bandwidth:    int(8 * maxSize), // peak segment size, as HLS requires
	}
	if err := b.store.UpsertIFrame(ctx, info); err != nil {
		return err
	}
	logger.Info().
		Str(xglog.FieldItemID, video.ID).
		Int(xglog.FieldSegments, segments).
		Int(xglog.FieldBandwidth, info.Bandwidth).
		Msg("I-frame playlist built")
	return nil
}

// scanSegments counts *.m4s files and tracks the largest one.
func scanSegments(dir string) (int, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	count := 0
	var maxSize int64
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".m4s") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, 0, err
		}
		count++
		if info.Size() > maxSize {
			maxSize = info.Size()
		}
	}
	return count, maxSize, nil
}
