// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/strmforge/mediapack/internal/api"
	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
)

// libraryEntry is one video in the library manifest. The full library
// database lives in the media server; this daemon only needs the handful of
// fields that drive artifact generation.
type libraryEntry struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Container   string `json:"container"`
	MediaSource string `json:"mediaSourceId"`
	VideoStream int    `json:"videoStream"`
	StreamCount int    `json:"streamCount"`
	Spatial     string `json:"spatialFormat"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	DurationMs  int64  `json:"durationMs"`
}

// fileResolver loads the library manifest lazily and caches it briefly, so
// an updated manifest is picked up without a restart.
type fileResolver struct {
	path string

	mu       sync.Mutex
	videos   map[string]media.VideoRef
	loadedAt time.Time
}

const resolverTTL = 30 * time.Second

func newFileResolver(path string) *fileResolver {
	return &fileResolver{path: path}
}

func (r *fileResolver) Resolve(_ context.Context, itemID string) (media.VideoRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.videos == nil || time.Since(r.loadedAt) > resolverTTL {
		if err := r.reload(); err != nil {
			logger := xglog.WithComponent("resolver")
			logger.Warn().Err(err).Msg("library manifest unreadable")
		}
	}
	v, ok := r.videos[itemID]
	if !ok {
		return media.VideoRef{}, api.ErrUnknownItem
	}
	return v, nil
}

func (r *fileResolver) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var entries []libraryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	videos := make(map[string]media.VideoRef, len(entries))
	for _, e := range entries {
		streams := e.StreamCount
		if streams == 0 {
			streams = 1
		}
		videos[e.ID] = media.VideoRef{
			ID:          e.ID,
			Path:        e.Path,
			Container:   e.Container,
			MediaSource: e.MediaSource,
			VideoStream: e.VideoStream,
			StreamCount: streams,
			Spatial:     media.ParseSpatialFormat(e.Spatial),
			Width:       e.Width,
			Height:      e.Height,
			Duration:    time.Duration(e.DurationMs) * time.Millisecond,
		}
	}
	r.videos = videos
	r.loadedAt = time.Now()
	return nil
}
