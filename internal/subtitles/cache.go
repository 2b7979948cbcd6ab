// SPDX-License-Identifier: MIT

package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strmforge/mediapack/internal/cache"
	"github.com/strmforge/mediapack/internal/metrics"
)

// trackTTL is how long a converted track stays cached. OCR over a PGS
// window costs seconds; players re-request the same HLS subtitle segment
// many times within a session.
const trackTTL = 24 * time.Hour

// TrackCache memoises converted subtitle tracks in a cache backend.
type TrackCache struct {
	c cache.Cache
}

// NewTrackCache wraps the given backend.
func NewTrackCache(c cache.Cache) *TrackCache {
	return &TrackCache{c: c}
}

// Key derives the cache key for one conversion window.
func Key(itemID, lang string, from, to time.Duration) string {
	return fmt.Sprintf("subs:%s:%s:%d:%d", itemID, lang, from, to)
}

// Get returns a cached track, if present.
func (tc *TrackCache) Get(ctx context.Context, key string) (Track, bool) {
	raw, ok := tc.c.Get(ctx, key)
	if !ok {
		metrics.IncSubtitleCache("miss")
		return Track{}, false
	}
	var t Track
	if err := json.Unmarshal(raw, &t); err != nil {
		metrics.IncSubtitleCache("miss")
		return Track{}, false
	}
	metrics.IncSubtitleCache("hit")
	return t, true
}

// Put stores a converted track.
func (tc *TrackCache) Put(ctx context.Context, key string, t Track) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	tc.c.Set(ctx, key, raw, trackTTL)
}
