// SPDX-License-Identifier: MIT

// Package isobmff provides low-level helpers for locating, sizing and
// rewriting boxes inside ISO base-media-file-format byte buffers.
//
// Only the 32-bit size form [size u32 BE][type 4 bytes][payload] is
// supported. Boxes claiming a size below the 8-byte header are invalid.
// All functions are pure; buffers returned by mutating helpers are fresh
// allocations and never alias their input.
package isobmff

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// headerSize is the fixed length of a box header.
const headerSize = 8

// ErrMalformedBox indicates a structurally invalid box tree.
var ErrMalformedBox = errors.New("isobmff: malformed box")

// FindBox walks sibling boxes from start, bounded by end, and returns the
// offset of the first box whose type matches boxType. It returns -1 when no
// sibling matches or when a box header is invalid.
func FindBox(buf []byte, start, end int, boxType string) int {
	if len(boxType) != 4 || start < 0 {
		return -1
	}
	if end > len(buf) {
		end = len(buf)
	}
	pos := start
	for pos+headerSize <= end {
		size := int(binary.BigEndian.Uint32(buf[pos:]))
		if size < headerSize || pos+size > end {
			return -1
		}
		if string(buf[pos+4:pos+8]) == boxType {
			return pos
		}
		pos += size
	}
	return -1
}

// BoxSize returns the declared size of the box at pos.
func BoxSize(buf []byte, pos int) uint32 {
	if pos < 0 || pos+headerSize > len(buf) {
		return 0
	}
	return binary.BigEndian.Uint32(buf[pos:])
}

// SetBoxSize rewrites the declared size of the box at pos in place.
func SetBoxSize(buf []byte, pos int, size uint32) {
	if pos < 0 || pos+4 > len(buf) {
		return
	}
	binary.BigEndian.PutUint32(buf[pos:], size)
}

// ScanBox scans every byte offset for the given type, validating that the
// preceding four bytes form a size that keeps the box in bounds. It is used
// when the buffer may not start on a box boundary. Returns the offset of the
// size field, or -1.
func ScanBox(buf []byte, boxType string) int {
	if len(boxType) != 4 {
		return -1
	}
	needle := []byte(boxType)
	off := 0
	for {
		idx := bytes.Index(buf[off:], needle)
		if idx < 0 {
			return -1
		}
		typePos := off + idx
		boxPos := typePos - 4
		if boxPos >= 0 {
			size := int(binary.BigEndian.Uint32(buf[boxPos:]))
			if size >= headerSize && boxPos+size <= len(buf) {
				return boxPos
			}
		}
		off = typePos + 1
		if off >= len(buf) {
			return -1
		}
	}
}

// StripBox returns a fresh buffer with size bytes removed at pos. Ancestor
// sizes are the caller's responsibility.
func StripBox(buf []byte, pos, size int) []byte {
	if pos < 0 || size < 0 || pos+size > len(buf) {
		out := make([]byte, len(buf))
		copy(out, buf)
		return out
	}
	out := make([]byte, 0, len(buf)-size)
	out = append(out, buf[:pos]...)
	out = append(out, buf[pos+size:]...)
	return out
}

// Insert returns a fresh buffer with data inserted at pos.
func Insert(buf []byte, pos int, data []byte) []byte {
	if pos < 0 {
		pos = 0
	}
	if pos > len(buf) {
		pos = len(buf)
	}
	out := make([]byte, 0, len(buf)+len(data))
	out = append(out, buf[:pos]...)
	out = append(out, data...)
	out = append(out, buf[pos:]...)
	return out
}

// RenameDvwCToDvcC replaces the first occurrence of the literal "dvwC" with
// "dvcC" in place. visionOS only recognises the dvcC form of the Dolby
// Vision configuration box. Returns true when a replacement happened.
func RenameDvwCToDvcC(buf []byte) bool {
	idx := bytes.Index(buf, []byte("dvwC"))
	if idx < 0 {
		return false
	}
	copy(buf[idx:], []byte("dvcC"))
	return true
}
