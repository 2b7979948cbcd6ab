// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/mediapack/internal/api"
	"github.com/strmforge/mediapack/internal/media"
)

func TestFileResolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	manifest := `[
		{
			"id": "item-1",
			"path": "/media/movie.mkv",
			"mediaSourceId": "src-1",
			"streamCount": 1,
			"spatialFormat": "half-sbs",
			"width": 3840,
			"height": 1080,
			"durationMs": 7200000
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	r := newFileResolver(path)
	v, err := r.Resolve(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "/media/movie.mkv", v.Path)
	assert.Equal(t, media.SpatialHalfSbs, v.Spatial)
	assert.Equal(t, 2*time.Hour, v.Duration)

	_, err = r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, api.ErrUnknownItem)
}

func TestFileResolver_MissingManifest(t *testing.T) {
	r := newFileResolver(filepath.Join(t.TempDir(), "absent.json"))
	_, err := r.Resolve(context.Background(), "item-1")
	assert.ErrorIs(t, err, api.ErrUnknownItem)
}

func TestFileResolver_DefaultsStreamCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","path":"/m.mkv"}]`), 0o644))

	r := newFileResolver(path)
	v, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v.StreamCount)
}
