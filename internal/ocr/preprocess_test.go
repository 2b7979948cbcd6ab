// SPDX-License-Identifier: MIT

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canvas builds a transparent RGBA buffer.
func canvas(w, h int) []byte {
	return make([]byte, 4*w*h)
}

// paintBlack sets an opaque black rectangle.
func paintBlack(rgba []byte, w, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			rgba[4*(y*w+x)+3] = 255
		}
	}
}

func TestCompositeOverWhite(t *testing.T) {
	rgba := canvas(2, 1)
	// pixel 0 transparent -> white; pixel 1 opaque black -> black
	rgba[7] = 255

	gray := compositeOverWhite(rgba, 2, 1)
	assert.Equal(t, byte(255), gray[0])
	assert.Equal(t, byte(0), gray[1])
}

func TestDetectRegions_SingleLine(t *testing.T) {
	const w, h = 100, 60
	rgba := canvas(w, h)
	paintBlack(rgba, w, 20, 25, 80, 35)

	gray := compositeOverWhite(rgba, w, h)
	regions := detectRegions(gray, w, h)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 20, r.y0) // 25 - 5 padding
	assert.Equal(t, 40, r.y1) // 35 + 5 padding
	assert.Equal(t, 15, r.x0) // 20 - 5 padding
	assert.Equal(t, 85, r.x1) // 80 + 5 padding
}

func TestDetectRegions_TwoLines(t *testing.T) {
	const w, h = 100, 100
	rgba := canvas(w, h)
	paintBlack(rgba, w, 10, 10, 90, 20)
	paintBlack(rgba, w, 10, 50, 90, 60)

	gray := compositeOverWhite(rgba, w, h)
	regions := detectRegions(gray, w, h)
	assert.Len(t, regions, 2)
}

func TestDetectRegions_DropsNarrow(t *testing.T) {
	const w, h = 100, 40
	rgba := canvas(w, h)
	// a 2px-wide speck is below the minimum region width
	paintBlack(rgba, w, 50, 10, 52, 30)

	gray := compositeOverWhite(rgba, w, h)
	assert.Empty(t, detectRegions(gray, w, h))
}

func TestDetectRegions_BlankImage(t *testing.T) {
	const w, h = 50, 50
	gray := compositeOverWhite(canvas(w, h), w, h)
	assert.Empty(t, detectRegions(gray, w, h))
}

func TestResizeRegion_AspectAndClamp(t *testing.T) {
	const w, h = 200, 100
	rgba := canvas(w, h)
	r := region{x0: 0, y0: 0, x1: 96, y1: 48}

	rgb, outW := resizeRegion(rgba, w, r)
	assert.Equal(t, 96, outW) // 96 * 48/48
	assert.Len(t, rgb, 96*recHeight*3)

	// degenerate sliver clamps to a 1px-wide tensor
	r = region{x0: 0, y0: 0, x1: 1, y1: 100}
	_, outW = resizeRegion(rgba, w, r)
	assert.Equal(t, 1, outW)
}

func TestChwTensor_Normalisation(t *testing.T) {
	// one-pixel-wide column, every pixel (0, 127, 255)
	rgb := make([]byte, 0, 3*recHeight)
	for i := 0; i < recHeight; i++ {
		rgb = append(rgb, 0, 127, 255)
	}
	tensor := chwTensor(rgb, 1)
	require.Len(t, tensor, 3*recHeight*1)

	assert.InDelta(t, -1.0, tensor[0], 1e-5)
	assert.InDelta(t, -0.0039, tensor[recHeight], 1e-3)
	assert.InDelta(t, 1.0, tensor[2*recHeight], 1e-5)
}
