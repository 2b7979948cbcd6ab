// SPDX-License-Identifier: MIT

// Package trickplay builds scrubbing-preview tile sets and orchestrates
// artifact refreshes.
package trickplay

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/metrics"
	"github.com/strmforge/mediapack/internal/store"
)

// minInterval is the lowest allowed spacing between thumbnails.
const minInterval = 1000

// Options carries the configured trickplay tunables.
type Options struct {
	Interval    int // milliseconds between thumbnails
	Widths      []int
	TileWidth   int
	TileHeight  int
	JpegQuality int
	HwAccel     []string
	Threads     int
	Priority    int
	IFramesOnly bool
}

// Generator builds tile sets for one width at a time. A process-wide lock
// serialises the heavy media-encoder work.
type Generator struct {
	store   *store.Store
	encoder media.Encoder
	images  media.ImageEncoder

	// genMu is the process-wide trickplay generation lock
	genMu sync.Mutex
}

// NewGenerator wires a generator.
func NewGenerator(s *store.Store, enc media.Encoder, img media.ImageEncoder) *Generator {
	return &Generator{store: s, encoder: enc, images: img}
}

// dirName is the artifact sub-directory of one (width, grid) combination.
func dirName(width int, opts Options) string {
	return fmt.Sprintf("%d - %dx%d", width, opts.TileWidth, opts.TileHeight)
}

// eligible applies the shared generation preconditions. Failing them is not
// an error.
func eligible(video media.VideoRef, interval int, logger *zerolog.Logger) bool {
	if reason := video.IneligibleReason(time.Duration(interval) * time.Millisecond); reason != "" {
		logger.Debug().Msg(reason)
		return false
	}
	return true
}

// Generate builds (or adopts) the tile set of one width under the
// generation lock and persists its row. replace forces a rebuild.
func (g *Generator) Generate(ctx context.Context, video media.VideoRef, root string, width int, opts Options, replace bool) error {
	g.genMu.Lock()
	defer g.genMu.Unlock()

	logger := xglog.WithComponentFromContext(ctx, "trickplay")
	logger = logger.With().
		Str(xglog.FieldItemID, video.ID).
		Int(xglog.FieldWidth, width).
		Logger()

	if opts.Interval < minInterval {
		logger.Warn().
			Int(xglog.FieldInterval, opts.Interval).
			Msgf("interval below %dms, clamping", minInterval)
		opts.Interval = minInterval
	}
	if !eligible(video, opts.Interval, &logger) {
		return nil
	}
	if _, err := os.Stat(video.Path); err != nil {
		logger.Warn().Str(xglog.FieldPath, video.Path).Msg("media file missing")
		return nil
	}

	actualW := width &^ 1
	effW, _ := video.EffectiveSize()
	if effW < width {
		actualW = effW &^ 1
		logger.Warn().Int("effective_width", effW).Msg("source narrower than requested width")
	}
	if actualW < 2 {
		logger.Debug().Msg("effective width too small")
		return nil
	}

	outDir := filepath.Join(root, dirName(width, opts))

	if !replace {
		if done, err := g.adoptExisting(ctx, video, outDir, width, opts); err != nil || done {
			return err
		}
	}

	start := time.Now()
	err := g.build(ctx, video, outDir, width, actualW, opts)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ObserveTrickplayGeneration(result, time.Since(start))
	return err
}

// adoptExisting imports a tile directory left by a previous install when no
// row exists yet, measuring tiles instead of rebuilding them. Returns true
// when the import satisfied this width.
func (g *Generator) adoptExisting(ctx context.Context, video media.VideoRef, outDir string, width int, opts Options) (bool, error) {
	if _, err := g.store.GetTrickplay(ctx, video.ID, width); err == nil {
		return false, nil
	}
	tiles, err := listTiles(outDir)
	if err != nil || len(tiles) == 0 {
		return false, nil
	}

	logger := xglog.WithComponentFromContext(ctx, "trickplay")
	intervalS := float64(opts.Interval) / 1000
	info := media.TrickplayInfo{
		ItemID:         video.ID,
		Width:          width,
		TileWidth:      opts.TileWidth,
		TileHeight:     opts.TileHeight,
		Interval:       opts.Interval,
		ThumbnailCount: len(tiles),
	}
	for _, tile := range tiles {
		_, imgH, err := g.images.Size(tile)
		if err != nil {
			return false, nil
		}
		if h := ceilDiv(imgH, opts.TileHeight); h > info.Height {
			info.Height = h
		}
		st, err := os.Stat(tile)
		if err != nil {
			return false, nil
		}
		bw := int(math.Ceil(float64(st.Size()*8) / (float64(opts.TileWidth*opts.TileHeight) * intervalS)))
		if bw > info.Bandwidth {
			info.Bandwidth = bw
		}
	}
	if err := g.store.UpsertTrickplay(ctx, info); err != nil {
		return false, err
	}
	logger.Info().
		Str(xglog.FieldItemID, video.ID).
		Int(xglog.FieldWidth, width).
		Int(xglog.FieldTileCount, len(tiles)).
		Msg("adopted existing trickplay tiles")
	return true, nil
}

// build extracts thumbnails, composes tiles into a scratch directory and
// atomically swaps it into place.
func (g *Generator) build(ctx context.Context, video media.VideoRef, outDir string, width, actualW int, opts Options) error {
	logger := xglog.WithComponentFromContext(ctx, "trickplay")

	thumbDir, err := g.encoder.ExtractThumbs(ctx, video, media.ExtractOptions{
		Width:       actualW,
		Interval:    opts.Interval,
		HwAccel:     opts.HwAccel,
		Threads:     opts.Threads,
		Qscale:      opts.JpegQuality,
		Priority:    opts.Priority,
		IFramesOnly: opts.IFramesOnly,
	})
	if err != nil {
		return fmt.Errorf("extract thumbnails: %w", err)
	}
	defer func() { _ = os.RemoveAll(thumbDir) }()

	thumbs, err := listTiles(thumbDir)
	if err != nil {
		return err
	}
	if len(thumbs) == 0 {
		return fmt.Errorf("encoder produced no thumbnails")
	}

	scratch := outDir + ".tmp-" + uuid.NewString()
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return err
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(scratch)
		}
	}()

	perTile := opts.TileWidth * opts.TileHeight
	intervalS := float64(opts.Interval) / 1000
	info := media.TrickplayInfo{
		ItemID:         video.ID,
		Width:          width,
		TileWidth:      opts.TileWidth,
		TileHeight:     opts.TileHeight,
		Interval:       opts.Interval,
		ThumbnailCount: len(thumbs),
	}

	for k := 0; k*perTile < len(thumbs); k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := thumbs[k*perTile:min(len(thumbs), (k+1)*perTile)]
		tilePath := filepath.Join(scratch, fmt.Sprintf("%d.jpg", k))
		h, err := g.images.ComposeTile(media.TileOptions{
			OutputPath:  tilePath,
			InputPaths:  batch,
			TileWidth:   opts.TileWidth,
			TileHeight:  opts.TileHeight,
			Width:       actualW * opts.TileWidth,
			JpegQuality: opts.JpegQuality,
			FixedHeight: info.Height,
		})
		if err != nil {
			return fmt.Errorf("compose tile %d: %w", k, err)
		}
		if info.Height == 0 {
			info.Height = h
		}
		st, err := os.Stat(tilePath)
		if err != nil {
			return err
		}
		bw := int(math.Ceil(float64(st.Size()*8) / (float64(perTile) * intervalS)))
		if bw > info.Bandwidth {
			info.Bandwidth = bw
		}
		metrics.TrickplayTilesBuilt.Inc()
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

	if err := g.store.UpsertTrickplay(ctx, info); err != nil {
		return err
	}
	logger.Info().
		Str(xglog.FieldItemID, video.ID).
		Int(xglog.FieldWidth, width).
		Int(xglog.FieldTileCount, ceilDiv(len(thumbs), perTile)).
		Int(xglog.FieldBandwidth, info.Bandwidth).
		Msg("trickplay tiles built")
	return nil
}

// Prune removes sub-directories under root that no persisted row accounts
// for.
func (g *Generator) Prune(ctx context.Context, video media.VideoRef, root string, opts Options) error {
	rows, err := g.store.ListTrickplayByItem(ctx, video.ID)
	if err != nil {
		return err
	}
	keep := map[string]bool{filepath.Base(media.IFrameDir(root)): true}
	for _, row := range rows {
		keep[fmt.Sprintf("%d - %dx%d", row.Width, row.TileWidth, row.TileHeight)] = true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	logger := xglog.WithComponentFromContext(ctx, "trickplay")
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] {
			continue
		}
		logger.Info().Str(xglog.FieldDir, e.Name()).Msg("pruning stale trickplay directory")
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// listTiles returns the JPEG files of a directory in lexicographic order.
func listTiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
