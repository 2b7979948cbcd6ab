// SPDX-License-Identifier: MIT

package iframe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/store"
)

// fakeEncoder emits a synthetic fMP4 HLS scratch directory.
type fakeEncoder struct {
	segments    int
	segmentSize int
	calls       int
	omitInit    bool
}

func (f *fakeEncoder) ExtractThumbs(context.Context, media.VideoRef, media.ExtractOptions) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeEncoder) GenerateIFrameHLS(_ context.Context, _ media.VideoRef, _ int, _ media.ExtractOptions) (string, error) {
	f.calls++
	dir, err := os.MkdirTemp("", "iframe")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, PlaylistName), []byte("#EXTM3U\n"), 0o644); err != nil {
		return "", err
	}
	if !f.omitInit {
		if err := os.WriteFile(filepath.Join(dir, InitSegmentName), []byte("init"), 0o644); err != nil {
			return "", err
		}
	}
	size := f.segmentSize
	if size == 0 {
		size = 1024
	}
	for i := 0; i < f.segments; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.m4s", i)), make([]byte, size), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func testVideo(t *testing.T) media.VideoRef {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movie.mkv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return media.VideoRef{
		ID:          "item-1",
		Path:        path,
		StreamCount: 1,
		Width:       1920,
		Height:      1080,
		Duration:    time.Hour,
	}
}

func newBuilder(t *testing.T, enc media.Encoder) (*Builder, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewBuilder(s, enc), s
}

func TestBuild_PersistsRowAndArtifacts(t *testing.T) {
	enc := &fakeEncoder{segments: 5, segmentSize: 4000}
	b, s := newBuilder(t, enc)
	video := testVideo(t)
	root := t.TempDir()
	ctx := context.Background()

	require.NoError(t, b.Build(ctx, video, root, media.ExtractOptions{}, false))

	info, err := s.GetIFrame(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, info.SegmentCount)
	assert.Equal(t, media.IFrameHeight, info.Height)
	assert.Equal(t, 284, info.Width) // 160*1920/1080 rounded down to even
	assert.Equal(t, 8*4000, info.Bandwidth)

	_, err = os.Stat(filepath.Join(media.IFrameDir(root), PlaylistName))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(media.IFrameDir(root), InitSegmentName))
	assert.NoError(t, err)
}

func TestBuild_SkipsWhenArtifactAndRowExist(t *testing.T) {
	enc := &fakeEncoder{segments: 2}
	b, _ := newBuilder(t, enc)
	video := testVideo(t)
	root := t.TempDir()
	ctx := context.Background()

	require.NoError(t, b.Build(ctx, video, root, media.ExtractOptions{}, false))
	require.NoError(t, b.Build(ctx, video, root, media.ExtractOptions{}, false))
	assert.Equal(t, 1, enc.calls)

	require.NoError(t, b.Build(ctx, video, root, media.ExtractOptions{}, true))
	assert.Equal(t, 2, enc.calls)
}

func TestBuild_NoSegmentsFails(t *testing.T) {
	enc := &fakeEncoder{segments: 0}
	b, s := newBuilder(t, enc)
	video := testVideo(t)
	ctx := context.Background()

	require.Error(t, b.Build(ctx, video, t.TempDir(), media.ExtractOptions{}, false))
	_, err := s.GetIFrame(ctx, video.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuild_MissingInitFails(t *testing.T) {
	enc := &fakeEncoder{segments: 2, omitInit: true}
	b, _ := newBuilder(t, enc)
	video := testVideo(t)
	root := t.TempDir()
	ctx := context.Background()

	require.Error(t, b.Build(ctx, video, root, media.ExtractOptions{}, false))
	assert.NoDirExists(t, media.IFrameDir(root))
}

func TestBuild_IneligibleSkips(t *testing.T) {
	enc := &fakeEncoder{segments: 2}
	b, s := newBuilder(t, enc)
	ctx := context.Background()

	video := media.VideoRef{ID: "v", Shape: media.ShapeBluRay, StreamCount: 1, Duration: time.Hour}
	require.NoError(t, b.Build(ctx, video, t.TempDir(), media.ExtractOptions{}, false))
	assert.Zero(t, enc.calls)
	_, err := s.GetIFrame(ctx, "v")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRewritePlaylist(t *testing.T) {
	playlist := `#EXTM3U
#EXT-X-VERSION:7
#EXT-X-MAP:URI="init.mp4",BYTERANGE="720@0"
#EXTINF:4.0,
0.m4s
#EXTINF:4.0,
1.m4s
#EXT-X-ENDLIST
`
	out := RewritePlaylist(playlist, "src-1", "key-1")

	assert.Contains(t, out, `#EXT-X-MAP:URI="init.mp4?MediaSourceId=src-1&ApiKey=key-1",BYTERANGE="720@0"`)
	assert.Contains(t, out, "0.m4s?MediaSourceId=src-1&ApiKey=key-1\n")
	assert.Contains(t, out, "1.m4s?MediaSourceId=src-1&ApiKey=key-1\n")
	// directives pass through untouched
	assert.Contains(t, out, "#EXT-X-VERSION:7\n")
	assert.Contains(t, out, "#EXTINF:4.0,\n")
	assert.Contains(t, out, "#EXT-X-ENDLIST\n")
}

func TestRewritePlaylist_NoMapURI(t *testing.T) {
	out := RewritePlaylist("#EXT-X-MAP:BYTERANGE=\"1@0\"\n", "s", "k")
	assert.Equal(t, "#EXT-X-MAP:BYTERANGE=\"1@0\"\n", out)
}
