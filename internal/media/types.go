// SPDX-License-Identifier: MIT

// Package media defines the shared domain types and external collaborator
// contracts of the artifact core.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// SpatialFormat describes the 3D/360 layout of a video source.
type SpatialFormat int

const (
	SpatialNone SpatialFormat = iota
	SpatialHalfSbs
	SpatialFullSbs
	SpatialHalfOu
	SpatialFullOu
	SpatialMvc
	SpatialStereo180Sbs
	SpatialStereo180Ou
	SpatialStereo360Sbs
	SpatialStereo360Ou
	SpatialMono360
)

// String returns the tag name used in logs and configuration.
func (f SpatialFormat) String() string {
	switch f {
	case SpatialHalfSbs:
		return "half-sbs"
	case SpatialFullSbs:
		return "full-sbs"
	case SpatialHalfOu:
		return "half-ou"
	case SpatialFullOu:
		return "full-ou"
	case SpatialMvc:
		return "mvc"
	case SpatialStereo180Sbs:
		return "stereo-180-sbs"
	case SpatialStereo180Ou:
		return "stereo-180-ou"
	case SpatialStereo360Sbs:
		return "stereo-360-sbs"
	case SpatialStereo360Ou:
		return "stereo-360-ou"
	case SpatialMono360:
		return "mono-360"
	default:
		return "none"
	}
}

// ParseSpatialFormat maps a tag name back to its format. Unknown tags map to
// SpatialNone.
func ParseSpatialFormat(s string) SpatialFormat {
	switch s {
	case "half-sbs":
		return SpatialHalfSbs
	case "full-sbs":
		return SpatialFullSbs
	case "half-ou":
		return SpatialHalfOu
	case "full-ou":
		return SpatialFullOu
	case "mvc":
		return SpatialMvc
	case "stereo-180-sbs":
		return SpatialStereo180Sbs
	case "stereo-180-ou":
		return SpatialStereo180Ou
	case "stereo-360-sbs":
		return SpatialStereo360Sbs
	case "stereo-360-ou":
		return SpatialStereo360Ou
	case "mono-360":
		return SpatialMono360
	default:
		return SpatialNone
	}
}

// VideoShape flags mark source shapes that are ineligible for artifact
// generation.
type VideoShape uint8

const (
	ShapeISO VideoShape = 1 << iota
	ShapeDVD
	ShapeBluRay
	ShapePlaceholder
	ShapeShortcut
	ShapeIncomplete
)

// VideoRef identifies one video source within a refresh. It is immutable for
// the duration of the refresh.
type VideoRef struct {
	ID          string
	Path        string
	Container   string
	MediaSource string
	VideoStream int // index of the selected video stream
	StreamCount int // number of video streams in the source
	Spatial     SpatialFormat
	Width       int
	Height      int
	Duration    time.Duration
	Shape       VideoShape
}

// HasShape reports whether any of the given shape flags are set.
func (v VideoRef) HasShape(s VideoShape) bool {
	return v.Shape&s != 0
}

// EffectiveSize returns the post-spatial-transform display dimensions of the
// source. Side-by-side packings halve the stored width, over-under packings
// halve the stored height, and 360-degree sources reproject to a 1:1 view of
// half the equirectangular width.
func (v VideoRef) EffectiveSize() (int, int) {
	w, h := v.Width, v.Height

	// unpack one eye
	switch v.Spatial {
	case SpatialHalfSbs, SpatialFullSbs, SpatialMvc,
		SpatialStereo180Sbs, SpatialStereo360Sbs:
		w /= 2
	case SpatialHalfOu, SpatialFullOu,
		SpatialStereo180Ou, SpatialStereo360Ou:
		h /= 2
	}

	// a 2:1 equirectangular frame reprojects to a roughly square viewport
	switch v.Spatial {
	case SpatialMono360, SpatialStereo360Sbs, SpatialStereo360Ou:
		w /= 2
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// TrickplayInfo is the persisted metadata for one generated tile set, keyed
// by (item, width).
type TrickplayInfo struct {
	ItemID         string
	Width          int
	TileWidth      int
	TileHeight     int
	Interval       int // milliseconds between thumbnails, never below 1000
	ThumbnailCount int
	Height         int // pixel height of one thumbnail row inside a tile
	Bandwidth      int // peak bits per second
}

// IFramePlaylistInfo is the persisted metadata for one I-frame HLS artifact,
// keyed by item. Exactly one row exists per video.
type IFramePlaylistInfo struct {
	ItemID       string
	Width        int
	Height       int // fixed at 160
	SegmentCount int
	Bandwidth    int
}

// IFrameHeight is the fixed output height of I-frame playlist segments.
const IFrameHeight = 160

// LibraryOptions carries the per-library feature toggles that gate artifact
// generation.
type LibraryOptions struct {
	EnableTrickplayImageExtraction  bool
	DisableIFramePlaylistGeneration bool
	SaveWithMedia                   bool
}

// disallowedShapes are the source shapes artifact generation refuses.
const disallowedShapes = ShapeISO | ShapeDVD | ShapeBluRay |
	ShapePlaceholder | ShapeShortcut | ShapeIncomplete

// IneligibleReason explains why a video cannot receive generated artifacts,
// or returns the empty string when it can. minDuration is the configured
// thumbnail interval.
func (v VideoRef) IneligibleReason(minDuration time.Duration) string {
	switch {
	case v.HasShape(disallowedShapes):
		return "video shape ineligible"
	case v.StreamCount < 1:
		return "no video stream"
	case v.Duration < minDuration:
		return "video shorter than thumbnail interval"
	case strings.EqualFold(filepath.Base(filepath.Dir(v.Path)), "backdrops"):
		return "backdrop clips are excluded"
	default:
		return ""
	}
}
