// SPDX-License-Identifier: MIT

package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpatialFormat_RoundTrip(t *testing.T) {
	formats := []SpatialFormat{
		SpatialNone, SpatialHalfSbs, SpatialFullSbs, SpatialHalfOu,
		SpatialFullOu, SpatialMvc, SpatialStereo180Sbs, SpatialStereo180Ou,
		SpatialStereo360Sbs, SpatialStereo360Ou, SpatialMono360,
	}
	for _, f := range formats {
		assert.Equal(t, f, ParseSpatialFormat(f.String()), f.String())
	}
	assert.Equal(t, SpatialNone, ParseSpatialFormat("bogus"))
}

func TestEffectiveSize(t *testing.T) {
	tests := []struct {
		name  string
		video VideoRef
		w, h  int
	}{
		{"flat", VideoRef{Width: 1920, Height: 1080}, 1920, 1080},
		{"half sbs", VideoRef{Width: 1920, Height: 1080, Spatial: SpatialHalfSbs}, 960, 1080},
		{"full sbs", VideoRef{Width: 3840, Height: 1080, Spatial: SpatialFullSbs}, 1920, 1080},
		{"half ou", VideoRef{Width: 1920, Height: 1080, Spatial: SpatialHalfOu}, 1920, 540},
		{"mono 360", VideoRef{Width: 4096, Height: 2048, Spatial: SpatialMono360}, 2048, 2048},
		{"stereo 360 sbs", VideoRef{Width: 8192, Height: 2048, Spatial: SpatialStereo360Sbs}, 2048, 2048},
		{"degenerate", VideoRef{Width: 1, Height: 1, Spatial: SpatialHalfSbs}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.video.EffectiveSize()
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestIneligibleReason(t *testing.T) {
	ok := VideoRef{Path: "/media/movie.mkv", StreamCount: 1, Duration: time.Hour}
	assert.Empty(t, ok.IneligibleReason(10*time.Second))

	iso := ok
	iso.Shape = ShapeISO
	assert.NotEmpty(t, iso.IneligibleReason(10*time.Second))

	short := ok
	short.Duration = 5 * time.Second
	assert.NotEmpty(t, short.IneligibleReason(10*time.Second))

	backdrop := ok
	backdrop.Path = "/media/Backdrops/clip.mkv"
	assert.NotEmpty(t, backdrop.IneligibleReason(10*time.Second))
}

func TestPathManager(t *testing.T) {
	pm := PathManager{DataDir: "/var/lib/mediapack"}
	video := VideoRef{ID: "item-1", Path: "/media/movies/film/film.mkv"}

	assert.Equal(t, "/media/movies/film/.trickplay", pm.TrickplayDir(video, true))
	assert.Equal(t, "/var/lib/mediapack/trickplay/item-1", pm.TrickplayDir(video, false))
	assert.Equal(t, "/var/lib/mediapack/trickplay/item-1/iframe", IFrameDir(pm.TrickplayDir(video, false)))
}
