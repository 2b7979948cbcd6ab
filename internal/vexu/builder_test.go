// SPDX-License-Identifier: MIT

package vexu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/mediapack/internal/isobmff"
	"github.com/strmforge/mediapack/internal/media"
)

// findPath descends a chain of child box types and returns the offset of the
// last box in the chain.
func findPath(t *testing.T, buf []byte, path ...string) int {
	t.Helper()
	pos, end := 0, len(buf)
	for _, boxType := range path {
		child := isobmff.FindBox(buf, pos, end, boxType)
		require.GreaterOrEqual(t, child, 0, "missing %s", boxType)
		end = child + int(isobmff.BoxSize(buf, child))
		pos = child + 8
	}
	return pos - 8
}

func TestBuild_Stereo180Sbs(t *testing.T) {
	buf := Build(media.SpatialStereo180Sbs)
	require.NotEmpty(t, buf)

	// header: big-endian size then type, size covers the whole box
	require.Equal(t, uint32(len(buf)), binary.BigEndian.Uint32(buf))
	require.Equal(t, "vexu", string(buf[4:8]))

	assert.True(t, bytes.Contains(buf, []byte("eyes")))

	prji := findPath(t, buf, "vexu", "proj", "prji")
	assert.Equal(t, "hequ", string(buf[prji+12:prji+16]))

	pkin := findPath(t, buf, "vexu", "pack", "pkin")
	assert.Equal(t, "side", string(buf[pkin+12:pkin+16]))
}

func TestBuild_Mono360(t *testing.T) {
	buf := Build(media.SpatialMono360)
	require.NotEmpty(t, buf)

	prji := findPath(t, buf, "vexu", "proj", "prji")
	assert.Equal(t, "equi", string(buf[prji+12:prji+16]))

	assert.False(t, bytes.Contains(buf, []byte("eyes")))
	assert.False(t, bytes.Contains(buf, []byte("pack")))
}

func TestBuild_PackedOnlyFormats(t *testing.T) {
	tests := []struct {
		format media.SpatialFormat
		pkin   string
	}{
		{media.SpatialHalfSbs, "side"},
		{media.SpatialFullSbs, "side"},
		{media.SpatialMvc, "side"},
		{media.SpatialHalfOu, "over"},
		{media.SpatialFullOu, "over"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			buf := Build(tt.format)
			require.NotEmpty(t, buf)

			assert.False(t, bytes.Contains(buf, []byte("proj")))
			assert.True(t, bytes.Contains(buf, []byte("eyes")))

			pkin := findPath(t, buf, "vexu", "pack", "pkin")
			assert.Equal(t, tt.pkin, string(buf[pkin+12:pkin+16]))
		})
	}
}

func TestBuild_EyesContents(t *testing.T) {
	buf := Build(media.SpatialFullSbs)

	stri := findPath(t, buf, "vexu", "eyes", "stri")
	assert.Equal(t, byte(0x03), buf[stri+12])

	hero := findPath(t, buf, "vexu", "eyes", "hero")
	assert.Equal(t, byte(0x01), buf[hero+12])

	blin := findPath(t, buf, "vexu", "eyes", "cams", "blin")
	assert.Equal(t, uint32(65000), binary.BigEndian.Uint32(buf[blin+12:]))
}

func TestBuild_None(t *testing.T) {
	assert.Empty(t, Build(media.SpatialNone))
}

// Every declared box size must keep its children exactly covered.
func TestBuild_SizesConsistent(t *testing.T) {
	formats := []media.SpatialFormat{
		media.SpatialStereo180Sbs, media.SpatialStereo360Ou,
		media.SpatialMono360, media.SpatialFullSbs, media.SpatialHalfOu,
	}
	for _, f := range formats {
		buf := Build(f)
		require.NotEmpty(t, buf, f.String())
		checkBoxTree(t, buf, 0, len(buf))
	}
}

// checkBoxTree verifies that sibling sizes tile [start, end) exactly.
func checkBoxTree(t *testing.T, buf []byte, start, end int) {
	t.Helper()
	pos := start
	for pos < end {
		require.LessOrEqual(t, pos+8, end)
		size := int(binary.BigEndian.Uint32(buf[pos:]))
		require.GreaterOrEqual(t, size, 8)
		require.LessOrEqual(t, pos+size, end)
		pos += size
	}
	require.Equal(t, end, pos)
}
