// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/mediapack/internal/media"
)

func TestVfChain(t *testing.T) {
	assert.Equal(t, "fps=1/10,scale=320:-2", vfChain("fps=1/10", "", "scale=320:-2"))
	assert.Equal(t, "crop=iw/2:ih:0:0", vfChain("", "crop=iw/2:ih:0:0"))
	assert.Equal(t, "", vfChain("", ""))
}

func TestSpatialCrop(t *testing.T) {
	assert.Equal(t, "crop=iw/2:ih:0:0", spatialCrop(media.SpatialHalfSbs))
	assert.Equal(t, "crop=iw:ih/2:0:0", spatialCrop(media.SpatialFullOu))
	assert.Equal(t, "", spatialCrop(media.SpatialNone))
	assert.Equal(t, "", spatialCrop(media.SpatialMono360))
}

func TestRun_FailureRemovesScratch(t *testing.T) {
	e := New("false", t.TempDir()) // /bin/false: exits non-zero immediately

	scratch, err := e.newScratch("thumbs")
	require.NoError(t, err)

	err = e.run(context.Background(), scratch, []string{"-version"})
	require.Error(t, err)

	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_CancellationSurfacesContextError(t *testing.T) {
	e := New("sleep", t.TempDir())

	scratch, err := e.newScratch("thumbs")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = e.run(ctx, scratch, []string{"5"})
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))
}
