// SPDX-License-Identifier: MIT

package vexu

import (
	"bytes"
	"fmt"

	"github.com/strmforge/mediapack/internal/isobmff"
	"github.com/strmforge/mediapack/internal/media"
)

// videoSampleEntryHeader is the fixed portion of a VisualSampleEntry after
// the box header: 6 reserved + data_reference_index + pre_defined/reserved
// fields + width/height + resolutions + frame_count + compressorname +
// depth + pre_defined.
const videoSampleEntryHeader = 78

// stsdChildOffset skips the stsd box header plus its version/flags and
// entry_count fields.
const stsdChildOffset = 16

// conflicting child boxes removed from the sample entry before injection.
var strippedChildren = []string{"sv3d", "st3d", "vexu"}

// PatchInit injects the vexu box for format into an fMP4 initialization
// segment and returns the patched buffer. Segments without an HEVC sample
// entry, and formats that need no injection, pass through unchanged. On a
// malformed box tree the original buffer is returned together with
// isobmff.ErrMalformedBox; callers treat that as non-fatal.
func PatchInit(buf []byte, format media.SpatialFormat) ([]byte, error) {
	if !bytes.Contains(buf, []byte("hvc1")) && !bytes.Contains(buf, []byte("dvh1")) {
		return buf, nil
	}
	vexuBox := Build(format)
	if len(vexuBox) == 0 {
		return buf, nil
	}

	moov := isobmff.FindBox(buf, 0, len(buf), "moov")
	if moov < 0 {
		// init segments commonly lead with ftyp; fall back to a raw scan
		moov = isobmff.ScanBox(buf, "moov")
	}
	if moov < 0 {
		return buf, fmt.Errorf("%w: no moov", isobmff.ErrMalformedBox)
	}

	ancestors := []int{moov}
	pos := moov
	for _, link := range []string{"trak", "mdia", "minf", "stbl"} {
		end := pos + int(isobmff.BoxSize(buf, pos))
		child := isobmff.FindBox(buf, pos+8, end, link)
		if child < 0 {
			return buf, fmt.Errorf("%w: no %s", isobmff.ErrMalformedBox, link)
		}
		ancestors = append(ancestors, child)
		pos = child
	}

	stblEnd := pos + int(isobmff.BoxSize(buf, pos))
	stsd := isobmff.FindBox(buf, pos+8, stblEnd, "stsd")
	if stsd < 0 {
		return buf, fmt.Errorf("%w: no stsd", isobmff.ErrMalformedBox)
	}
	ancestors = append(ancestors, stsd)

	stsdEnd := stsd + int(isobmff.BoxSize(buf, stsd))
	entry := isobmff.FindBox(buf, stsd+stsdChildOffset, stsdEnd, "hvc1")
	if entry < 0 {
		entry = isobmff.FindBox(buf, stsd+stsdChildOffset, stsdEnd, "dvh1")
	}
	if entry < 0 {
		return buf, fmt.Errorf("%w: no HEVC sample entry", isobmff.ErrMalformedBox)
	}

	// Work on a copy from here on; the input stays untouched.
	out := make([]byte, len(buf))
	copy(out, buf)

	entrySize := int(isobmff.BoxSize(out, entry))
	removed := 0
	childStart := entry + 8 + videoSampleEntryHeader
	for _, childType := range strippedChildren {
		for {
			child := isobmff.FindBox(out, childStart, entry+entrySize-removed, childType)
			if child < 0 {
				break
			}
			size := int(isobmff.BoxSize(out, child))
			out = isobmff.StripBox(out, child, size)
			removed += size
		}
	}

	out = isobmff.Insert(out, entry+entrySize-removed, vexuBox)
	isobmff.RenameDvwCToDvcC(out)

	delta := len(vexuBox) - removed
	isobmff.SetBoxSize(out, entry, uint32(entrySize+delta))
	for i := len(ancestors) - 1; i >= 0; i-- {
		p := ancestors[i]
		isobmff.SetBoxSize(out, p, uint32(int(isobmff.BoxSize(out, p))+delta))
	}
	return out, nil
}
