// SPDX-License-Identifier: MIT

package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelServer serves fake model files, optionally failing a path.
func modelServer(t *testing.T, failPath string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if failPath != "" && strings.HasSuffix(r.URL.Path, failPath) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("model-bytes:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsure_InstallsAllFiles(t *testing.T) {
	dir := t.TempDir()
	srv := modelServer(t, "", nil)
	reg := NewRegistry(dir, srv.URL)

	require.False(t, reg.HasModels(FamilyLatin))
	require.NoError(t, reg.Ensure(context.Background(), FamilyLatin))
	assert.True(t, reg.HasModels(FamilyLatin))

	p := reg.Paths(FamilyLatin)
	for _, f := range []string{p.DetModel, p.RecModel, p.Dict} {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.Contains(t, string(data), "model-bytes:")
	}
}

func TestEnsure_SharedDetectionModel(t *testing.T) {
	dir := t.TempDir()
	srv := modelServer(t, "", nil)
	reg := NewRegistry(dir, srv.URL)

	require.NoError(t, reg.Ensure(context.Background(), FamilyLatin))
	require.NoError(t, reg.Ensure(context.Background(), FamilyCJK))

	assert.Equal(t, reg.Paths(FamilyLatin).DetModel, reg.Paths(FamilyCJK).DetModel)
}

func TestEnsure_FailureLeavesNoRecModel(t *testing.T) {
	dir := t.TempDir()
	srv := modelServer(t, "rec.onnx", nil)
	reg := NewRegistry(dir, srv.URL)

	err := reg.Ensure(context.Background(), FamilyLatin)
	require.Error(t, err)

	assert.False(t, reg.HasModels(FamilyLatin))
	_, statErr := os.Stat(reg.Paths(FamilyLatin).RecModel)
	assert.True(t, os.IsNotExist(statErr))

	// no stray temp files either
	entries, readErr := os.ReadDir(filepath.Join(dir, "ocr-models", "latin"))
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	dir := t.TempDir()
	var hits atomic.Int64
	srv := modelServer(t, "", &hits)
	reg := NewRegistry(dir, srv.URL)

	require.NoError(t, reg.Ensure(context.Background(), FamilyLatin))
	first := hits.Load()
	require.NoError(t, reg.Ensure(context.Background(), FamilyLatin))
	assert.Equal(t, first, hits.Load())
}

func TestEnsure_ConcurrentCallersSerialize(t *testing.T) {
	dir := t.TempDir()
	var hits atomic.Int64
	srv := modelServer(t, "", &hits)
	reg := NewRegistry(dir, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.Ensure(context.Background(), FamilyLatin))
		}()
	}
	wg.Wait()

	// three files, downloaded exactly once despite eight callers
	assert.Equal(t, int64(3), hits.Load())
}

func TestEnsureCommon(t *testing.T) {
	dir := t.TempDir()
	srv := modelServer(t, "", nil)
	reg := NewRegistry(dir, srv.URL)

	require.NoError(t, reg.EnsureCommon(context.Background()))
	assert.True(t, reg.HasModels(FamilyLatin))
	assert.True(t, reg.HasModels(FamilyCJK))
	assert.False(t, reg.HasModels(FamilyKorean))
}

func TestEnsure_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	srv := modelServer(t, "", nil)
	reg := NewRegistry(dir, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := reg.Ensure(ctx, FamilyLatin)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadDict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFa\r\nb\n\nc\n"), 0o644))

	dict, err := loadDict(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, dict)
}
