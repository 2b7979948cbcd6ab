// SPDX-License-Identifier: MIT

package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/metrics"
)

// ModelPaths locates the artifacts of one family on disk. The detection
// model is shared across families.
//
// TODO: the detection model is downloaded and declared here but the engine
// currently detects lines with a row scan; wire DetModel into a fallback
// detection pass.
type ModelPaths struct {
	DetModel string
	RecModel string
	Dict     string
}

// Registry downloads and installs per-family OCR models. Installs are
// atomic: a family is either fully present or absent.
type Registry struct {
	root    string
	baseURL string
	client  *http.Client

	// one process-wide mutex serialises all downloads; download I/O is not
	// the bottleneck and serialising keeps the commit protocol simple
	mu sync.Mutex
}

// NewRegistry creates a registry rooted at <dataDir>/ocr-models downloading
// from baseURL.
func NewRegistry(dataDir, baseURL string) *Registry {
	return &Registry{
		root:    filepath.Join(dataDir, "ocr-models"),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// Paths returns the on-disk locations for a family without checking
// existence.
func (r *Registry) Paths(family Family) ModelPaths {
	return ModelPaths{
		DetModel: filepath.Join(r.root, "det.onnx"),
		RecModel: filepath.Join(r.root, family.String(), "rec.onnx"),
		Dict:     filepath.Join(r.root, family.String(), "dict.txt"),
	}
}

// HasModels reports whether every file of the family is installed.
func (r *Registry) HasModels(family Family) bool {
	p := r.Paths(family)
	for _, f := range []string{p.DetModel, p.RecModel, p.Dict} {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

// Ensure downloads any missing file of the family. Concurrent callers
// serialise on the registry mutex; whoever arrives second re-checks and
// returns immediately when the first finished the install. HTTP failures
// propagate to the caller without retry; the background downloader tries
// again on next startup.
func (r *Registry) Ensure(ctx context.Context, family Family) error {
	if r.HasModels(family) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.HasModels(family) {
		return nil
	}

	logger := xglog.WithComponentFromContext(ctx, "ocr-registry")
	p := r.Paths(family)
	// rec.onnx commits last so a failed install never leaves a family that
	// looks complete to HasModels
	files := []struct{ dst, rel string }{
		{p.DetModel, "det.onnx"},
		{p.Dict, family.String() + "/dict.txt"},
		{p.RecModel, family.String() + "/rec.onnx"},
	}
	for _, f := range files {
		dst, rel := f.dst, f.rel
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := r.download(ctx, rel, dst); err != nil {
			metrics.IncModelDownload("error")
			return fmt.Errorf("download %s: %w", rel, err)
		}
		logger.Info().
			Str(xglog.FieldFamily, family.String()).
			Str(xglog.FieldFinalPath, dst).
			Msg("installed OCR model file")
		metrics.IncModelDownload("ok")
	}
	return nil
}

// EnsureCommon installs the Latin and CJK families, which cover the bulk of
// subtitle tracks.
func (r *Registry) EnsureCommon(ctx context.Context) error {
	for _, f := range []Family{FamilyLatin, FamilyCJK} {
		if err := r.Ensure(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAll installs every supported family.
func (r *Registry) EnsureAll(ctx context.Context) error {
	for _, f := range Families {
		if err := r.Ensure(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// download streams one file to a pending temp file and renames it into
// place. The rename is the atomic commit point; on any failure the temp
// file is removed and no partial file becomes visible.
func (r *Registry) download(ctx context.Context, rel, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+rel, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	pending, err := renameio.NewPendingFile(dst)
	if err != nil {
		return fmt.Errorf("create pending model file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, resp.Body); err != nil {
		return fmt.Errorf("stream model body: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit model file: %w", err)
	}
	return nil
}
