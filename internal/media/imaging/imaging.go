// SPDX-License-Identifier: MIT

// Package imaging implements the media.ImageEncoder contract: probing image
// dimensions and compositing thumbnail grids into tiled JPEGs.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"

	"github.com/strmforge/mediapack/internal/media"
)

// Encoder composes trickplay tiles with the standard image pipeline.
type Encoder struct{}

// New returns a tile encoder.
func New() *Encoder {
	return &Encoder{}
}

// Size probes the dimensions of an image file.
func (e *Encoder) Size(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// ComposeTile glues up to TileWidth*TileHeight thumbnails into one JPEG of
// opts.Width x (rows*thumbHeight) and returns the thumbnail row height. A
// non-zero FixedHeight, established by the first tile of a set, is honoured
// for all later tiles.
func (e *Encoder) ComposeTile(opts media.TileOptions) (int, error) {
	if len(opts.InputPaths) == 0 {
		return 0, fmt.Errorf("compose tile: no inputs")
	}
	if capacity := opts.TileWidth * opts.TileHeight; len(opts.InputPaths) > capacity {
		return 0, fmt.Errorf("compose tile: %d inputs exceed %dx%d grid", len(opts.InputPaths), opts.TileWidth, opts.TileHeight)
	}

	thumbW := opts.Width / opts.TileWidth
	if thumbW < 1 {
		return 0, fmt.Errorf("compose tile: width %d too small for %d columns", opts.Width, opts.TileWidth)
	}

	first, err := loadImage(opts.InputPaths[0])
	if err != nil {
		return 0, err
	}
	thumbH := opts.FixedHeight
	if thumbH == 0 {
		b := first.Bounds()
		thumbH = b.Dy() * thumbW / b.Dx()
		if thumbH < 1 {
			thumbH = 1
		}
	}

	rows := (len(opts.InputPaths) + opts.TileWidth - 1) / opts.TileWidth
	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, rows*thumbH))

	for i, path := range opts.InputPaths {
		img := first
		if i > 0 {
			if img, err = loadImage(path); err != nil {
				return 0, err
			}
		}
		x := (i % opts.TileWidth) * thumbW
		y := (i / opts.TileWidth) * thumbH
		blit(canvas, img, x, y, thumbW, thumbH)
	}

	out, err := os.Create(opts.OutputPath)
	if err != nil {
		return 0, err
	}
	quality := opts.JpegQuality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: quality}); err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return thumbH, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// blit draws src scaled to w x h at (x, y) using nearest-neighbour
// sampling. Extraction already produces thumbnails at the cell size, so
// this is normally a plain copy.
func blit(dst *image.RGBA, src image.Image, x, y, w, h int) {
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), src, sb.Min, draw.Src)
		return
	}
	for dy := 0; dy < h; dy++ {
		sy := sb.Min.Y + dy*sb.Dy()/h
		for dx := 0; dx < w; dx++ {
			sx := sb.Min.X + dx*sb.Dx()/w
			dst.Set(x+dx, y+dy, src.At(sx, sy))
		}
	}
}
