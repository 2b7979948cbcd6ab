// SPDX-License-Identifier: MIT

// Package vexu constructs Apple Video Extended Usage metadata boxes and
// injects them into fMP4 initialization segments so visionOS-class clients
// recognise spatial and 360-degree sources.
package vexu

import (
	"encoding/binary"

	"github.com/strmforge/mediapack/internal/media"
)

// Projection codes carried inside prji.
const (
	projHalfEquirect = "hequ"
	projEquirect     = "equi"
)

// Packing codes carried inside pkin.
const (
	packSideBySide = "side"
	packOverUnder  = "over"
)

// baselineMicrometers is the stereo camera baseline written into cams/blin,
// approximately the human interpupillary distance.
const baselineMicrometers = 65000

// Build returns the bytes of a single vexu box describing the given spatial
// format, or an empty slice when the format requires no injection.
func Build(format media.SpatialFormat) []byte {
	switch format {
	case media.SpatialStereo180Sbs:
		return plainBox("vexu", eyesBox(), projBox(projHalfEquirect), packBox(packSideBySide))
	case media.SpatialStereo180Ou:
		return plainBox("vexu", eyesBox(), projBox(projHalfEquirect), packBox(packOverUnder))
	case media.SpatialStereo360Sbs:
		return plainBox("vexu", eyesBox(), projBox(projEquirect), packBox(packSideBySide))
	case media.SpatialStereo360Ou:
		return plainBox("vexu", eyesBox(), projBox(projEquirect), packBox(packOverUnder))
	case media.SpatialMono360:
		return plainBox("vexu", projBox(projEquirect))
	case media.SpatialHalfSbs, media.SpatialFullSbs, media.SpatialMvc:
		return plainBox("vexu", eyesBox(), packBox(packSideBySide))
	case media.SpatialHalfOu, media.SpatialFullOu:
		return plainBox("vexu", eyesBox(), packBox(packOverUnder))
	default:
		return nil
	}
}

// plainBox emits [size][type] followed by the concatenated children.
func plainBox(boxType string, children ...[]byte) []byte {
	size := 8
	for _, c := range children {
		size += len(c)
	}
	out := make([]byte, 8, size)
	binary.BigEndian.PutUint32(out, uint32(size))
	copy(out[4:], boxType)
	for _, c := range children {
		out = append(out, c...)
	}
	return out
}

// fullBox emits [size][type][version/flags=0] followed by the payload.
func fullBox(boxType string, payload []byte) []byte {
	size := 12 + len(payload)
	out := make([]byte, 12, size)
	binary.BigEndian.PutUint32(out, uint32(size))
	copy(out[4:], boxType)
	return append(out, payload...)
}

// eyesBox describes a two-eye stereo source with the right eye primary.
func eyesBox() []byte {
	stri := fullBox("stri", []byte{0x03}) // both eyes present
	hero := fullBox("hero", []byte{0x01}) // right eye primary
	blin := make([]byte, 4)
	binary.BigEndian.PutUint32(blin, baselineMicrometers)
	cams := plainBox("cams", fullBox("blin", blin))
	return plainBox("eyes", stri, hero, cams)
}

func projBox(code string) []byte {
	return plainBox("proj", fullBox("prji", []byte(code)))
}

func packBox(code string) []byte {
	return plainBox("pack", fullBox("pkin", []byte(code)))
}
