// SPDX-License-Identifier: MIT

package pgs

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSegment appends one PG record with the given PTS and payload.
func writeSegment(buf *bytes.Buffer, pts time.Duration, segType byte, payload []byte) {
	var hdr [13]byte
	hdr[0], hdr[1] = 'P', 'G'
	binary.BigEndian.PutUint32(hdr[2:], uint32(pts*ptsClock/time.Second))
	hdr[10] = segType
	binary.BigEndian.PutUint16(hdr[11:], uint16(len(payload)))
	buf.Write(hdr[:])
	buf.Write(payload)
}

// writeCue appends a full display set: composition, palette, object, end.
func writeCue(buf *bytes.Buffer, pts time.Duration, w, h int) {
	pcs := make([]byte, 11)
	binary.BigEndian.PutUint16(pcs, 1920)
	binary.BigEndian.PutUint16(pcs[2:], 1080)
	writeSegment(buf, pts, segComposition, pcs)

	// palette 1 -> opaque mid-gray
	pds := []byte{0, 0, 1, 128, 128, 128, 255}
	writeSegment(buf, pts, segPalette, pds)

	// single-object bitmap filled with colour 1, one RLE row at a time
	var rle []byte
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rle = append(rle, 1)
		}
		rle = append(rle, 0, 0)
	}
	ods := make([]byte, 11, 11+len(rle))
	binary.BigEndian.PutUint16(ods, 1) // object id
	ods[3] = 0x80                      // first in sequence
	binary.BigEndian.PutUint16(ods[7:], uint16(w))
	binary.BigEndian.PutUint16(ods[9:], uint16(h))
	ods = append(ods, rle...)
	writeSegment(buf, pts, segObject, ods)

	writeSegment(buf, pts, segEnd, nil)
}

func collect(t *testing.T, d *Decoder) []*DisplaySet {
	t.Helper()
	var out []*DisplaySet
	for {
		ds, err := d.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, ds)
	}
}

func TestDecoder_ChainsEndTimes(t *testing.T) {
	var buf bytes.Buffer
	writeCue(&buf, 1*time.Second, 4, 2)
	writeCue(&buf, 2*time.Second, 4, 2)
	writeCue(&buf, 3*time.Second, 4, 2)

	sets := collect(t, NewDecoder(&buf))
	require.Len(t, sets, 3)

	assert.Equal(t, 1*time.Second, sets[0].Start)
	assert.Equal(t, 2*time.Second, sets[0].End)
	assert.Equal(t, 3*time.Second, sets[1].End)
	// final set has no successor
	assert.Equal(t, 8*time.Second, sets[2].End)
}

func TestDecoder_RGBAInvariant(t *testing.T) {
	var buf bytes.Buffer
	writeCue(&buf, time.Second, 6, 3)

	sets := collect(t, NewDecoder(&buf))
	require.Len(t, sets, 1)

	ds := sets[0]
	assert.Equal(t, 6, ds.Width)
	assert.Equal(t, 3, ds.Height)
	require.Len(t, ds.RGBA, 4*ds.Width*ds.Height)

	// colour 1 was defined as opaque mid-gray
	assert.Equal(t, uint8(128), ds.RGBA[0])
	assert.Equal(t, uint8(255), ds.RGBA[3])
}

func TestDecoder_TimeWindow(t *testing.T) {
	var buf bytes.Buffer
	for _, pts := range []time.Duration{1, 2, 3, 4} {
		writeCue(&buf, pts*time.Second, 2, 1)
	}

	d := NewDecoderRange(&buf, 1500*time.Millisecond, 3*time.Second)
	sets := collect(t, d)
	require.Len(t, sets, 1)
	assert.Equal(t, 2*time.Second, sets[0].Start)
	assert.Equal(t, 3*time.Second, sets[0].End)
}

func TestDecoder_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	writeCue(&buf, time.Second, 2, 1)
	writeCue(&buf, 2*time.Second, 2, 1)
	full := buf.Bytes()

	// cut inside the second cue's object segment
	truncated := full[:len(full)-20]

	sets := collect(t, NewDecoder(bytes.NewReader(truncated)))
	require.Len(t, sets, 1)
	assert.Equal(t, time.Second, sets[0].Start)
	assert.Equal(t, 6*time.Second, sets[0].End)
}

func TestDecoder_UnknownSegmentSkipped(t *testing.T) {
	var buf bytes.Buffer
	writeSegment(&buf, time.Second, 0x42, []byte{1, 2, 3})
	writeCue(&buf, 2*time.Second, 2, 1)

	sets := collect(t, NewDecoder(&buf))
	require.Len(t, sets, 1)
	assert.Equal(t, 2*time.Second, sets[0].Start)
}

func TestDecoder_EmptyCompositionEndsPrevious(t *testing.T) {
	var buf bytes.Buffer
	writeCue(&buf, time.Second, 2, 1)
	// clear-screen composition: no object, just PCS + END
	pcs := make([]byte, 11)
	writeSegment(&buf, 2500*time.Millisecond, segComposition, pcs)
	writeSegment(&buf, 2500*time.Millisecond, segEnd, nil)

	sets := collect(t, NewDecoder(&buf))
	require.Len(t, sets, 1)
	assert.Equal(t, 2500*time.Millisecond, sets[0].End)
}

func TestDecoder_EmptyInput(t *testing.T) {
	sets := collect(t, NewDecoder(bytes.NewReader(nil)))
	assert.Empty(t, sets)
}
