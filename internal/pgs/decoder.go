// SPDX-License-Identifier: MIT

// Package pgs decodes Presentation Graphics Stream (.sup) bitmap subtitles
// into timed RGBA display sets.
package pgs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// Segment type codes of the PGS wire format.
const (
	segPalette     = 0x14
	segObject      = 0x15
	segComposition = 0x16
	segWindow      = 0x17
	segEnd         = 0x80
)

// ptsClock is the PGS presentation timestamp tick rate.
const ptsClock = 90000

// lastSetDuration is the synthetic duration of the final display set, which
// has no successor to borrow an end time from.
const lastSetDuration = 5 * time.Second

// DisplaySet is one on-screen subtitle cue: a bitmap and its time span.
// The RGBA buffer is always 4*Width*Height bytes and is owned by the
// receiver; it is never shared.
type DisplaySet struct {
	Start  time.Duration
	End    time.Duration
	Width  int
	Height int
	RGBA   []byte
}

// Decoder produces display sets lazily from a sequential byte source. It is
// finite and non-restartable. Truncated input ends the sequence silently.
type Decoder struct {
	r        *bufio.Reader
	windowed bool
	from     time.Duration
	to       time.Duration

	pal     Palette
	compW   int
	compH   int
	objW    int
	objH    int
	rle     []byte
	started bool // a composition opened the current display set
	setPTS  time.Duration

	pending *DisplaySet
	done    bool
}

// NewDecoder returns a decoder over the full stream.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// NewDecoderRange returns a decoder that drops display sets whose start time
// lies outside [from, to). Filtering by start time only keeps cues from
// duplicating across adjacent HLS segments.
func NewDecoderRange(r io.Reader, from, to time.Duration) *Decoder {
	return &Decoder{r: bufio.NewReader(r), windowed: true, from: from, to: to}
}

// Next returns the next display set, or io.EOF when the stream is exhausted.
// The end time of each set is the start time of its successor; the final set
// runs for five seconds.
func (d *Decoder) Next() (*DisplaySet, error) {
	for !d.done {
		raw, pts, err := d.readDisplaySet()
		if err != nil {
			d.done = true
			break
		}
		out := d.pending
		d.pending = raw
		if out != nil {
			out.End = pts
			if d.keep(out) {
				return out, nil
			}
		}
	}
	if d.pending != nil {
		out := d.pending
		d.pending = nil
		out.End = out.Start + lastSetDuration
		if d.keep(out) {
			return out, nil
		}
	}
	return nil, io.EOF
}

func (d *Decoder) keep(ds *DisplaySet) bool {
	if !d.windowed {
		return true
	}
	return ds.Start >= d.from && ds.Start < d.to
}

// readDisplaySet consumes segments until an end-of-display-set record and
// returns the assembled bitmap (nil when the set carried none) and the PTS
// the set became active at. Any parse error, including truncation, surfaces
// as io.EOF.
func (d *Decoder) readDisplaySet() (*DisplaySet, time.Duration, error) {
	for {
		segType, pts, payload, err := d.readSegment()
		if err != nil {
			return nil, 0, io.EOF
		}
		switch segType {
		case segComposition:
			if len(payload) >= 4 {
				d.compW = int(binary.BigEndian.Uint16(payload))
				d.compH = int(binary.BigEndian.Uint16(payload[2:]))
			}
			d.started = true
			d.setPTS = pts
			d.objW, d.objH = 0, 0
			d.rle = d.rle[:0]
		case segPalette:
			d.parsePalette(payload)
		case segObject:
			d.parseObject(payload)
		case segWindow:
			// window geometry is not needed for OCR output
		case segEnd:
			if !d.started {
				continue
			}
			d.started = false
			return d.closeSet(), d.setPTS, nil
		default:
			// unknown segment types are skipped
		}
	}
}

// closeSet renders the accumulated object, if any, into a display set. The
// composition dimensions bound the object: a corrupt object segment cannot
// allocate beyond the declared canvas.
func (d *Decoder) closeSet() *DisplaySet {
	w, h := d.objW, d.objH
	if d.compW > 0 && w > d.compW {
		w = d.compW
	}
	if d.compH > 0 && h > d.compH {
		h = d.compH
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	indices := decodeRLE(d.rle, w, h)
	return &DisplaySet{
		Start:  d.setPTS,
		Width:  w,
		Height: h,
		RGBA:   render(indices, &d.pal),
	}
}

// readSegment reads one "PG" record header and its payload.
func (d *Decoder) readSegment() (byte, time.Duration, []byte, error) {
	var hdr [13]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return 0, 0, nil, err
	}
	if hdr[0] != 'P' || hdr[1] != 'G' {
		return 0, 0, nil, errors.New("pgs: bad magic")
	}
	pts := time.Duration(binary.BigEndian.Uint32(hdr[2:])) * time.Second / ptsClock
	segType := hdr[10]
	size := int(binary.BigEndian.Uint16(hdr[11:]))
	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return 0, 0, nil, err
	}
	return segType, pts, payload, nil
}

// parsePalette merges (id, Y, Cr, Cb, alpha) entries into the current
// palette. The two-byte palette id/version prefix is skipped.
func (d *Decoder) parsePalette(payload []byte) {
	if len(payload) < 2 {
		return
	}
	entries := payload[2:]
	for len(entries) >= 5 {
		id := entries[0]
		d.pal[id] = PaletteEntry{Y: entries[1], Cr: entries[2], Cb: entries[3], Alpha: entries[4]}
		entries = entries[5:]
	}
}

// parseObject appends object definition data. The first segment of an object
// carries a 0x80 flag in its sequence byte and declares width/height at
// offset 7; continuation segments only extend the RLE stream.
func (d *Decoder) parseObject(payload []byte) {
	if len(payload) < 4 {
		return
	}
	if payload[3]&0x80 != 0 {
		if len(payload) < 11 {
			return
		}
		d.objW = int(binary.BigEndian.Uint16(payload[7:]))
		d.objH = int(binary.BigEndian.Uint16(payload[9:]))
		d.rle = append(d.rle[:0], payload[11:]...)
		return
	}
	d.rle = append(d.rle, payload[4:]...)
}
