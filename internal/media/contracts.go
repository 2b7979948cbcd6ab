// SPDX-License-Identifier: MIT

package media

import "context"

// ExtractOptions carries the tunables for thumbnail extraction.
type ExtractOptions struct {
	Width       int
	Interval    int // milliseconds between thumbnails
	HwAccel     []string
	Threads     int
	Qscale      int
	Priority    int
	IFramesOnly bool
}

// Encoder is the external media-decoding tool. Implementations spawn the
// tool; both calls produce a fresh scratch directory that the caller owns
// and eventually deletes.
type Encoder interface {
	// ExtractThumbs produces interval-spaced JPEG thumbnails 00001.jpg,
	// 00002.jpg, ... in lexicographic chronological order.
	ExtractThumbs(ctx context.Context, video VideoRef, opts ExtractOptions) (string, error)

	// GenerateIFrameHLS produces iframe.m3u8, init.mp4 and *.m4s segments
	// at the given target height.
	GenerateIFrameHLS(ctx context.Context, video VideoRef, targetHeight int, opts ExtractOptions) (string, error)
}

// TileOptions enumerates the inputs of one composite tile.
type TileOptions struct {
	OutputPath  string
	InputPaths  []string
	TileWidth   int
	TileHeight  int
	Width       int
	JpegQuality int
	// FixedHeight, when non-zero, is the thumbnail row height established by
	// the first tile of the set; later tiles must honour it.
	FixedHeight int
}

// ImageEncoder is the external image-compositing library.
type ImageEncoder interface {
	// ComposeTile glues the input thumbnails into a single tiled JPEG and
	// returns the pixel height of one thumbnail row.
	ComposeTile(opts TileOptions) (int, error)

	// Size probes the dimensions of an existing image.
	Size(path string) (int, int, error)
}
