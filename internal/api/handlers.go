// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/strmforge/mediapack/internal/iframe"
	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/store"
	"github.com/strmforge/mediapack/internal/subtitles"
	"github.com/strmforge/mediapack/internal/trickplay"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// resolve loads the video and its active artifact root.
func (s *Server) resolve(r *http.Request) (media.VideoRef, string, error) {
	itemID := chi.URLParam(r, "itemId")
	video, err := s.resolver.Resolve(r.Context(), itemID)
	if err != nil {
		return media.VideoRef{}, "", err
	}
	lib := libraryOptions(s.cfg.Current())
	return video, s.coord.Root(video, lib), nil
}

func (s *Server) handleTrickplayPlaylist(w http.ResponseWriter, r *http.Request) {
	video, _, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	width, err := strconv.Atoi(chi.URLParam(r, "width"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := s.store.GetTrickplay(r.Context(), video.ID, width)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	mediaSource := r.URL.Query().Get("mediaSourceId")
	if mediaSource == "" {
		mediaSource = video.MediaSource
	}
	w.Header().Set("Content-Type", playlistContentType)
	_, _ = w.Write([]byte(trickplay.HLSPlaylist(info, mediaSource, s.cfg.Current().APIKey)))
}

func (s *Server) handleTrickplayTile(w http.ResponseWriter, r *http.Request) {
	video, root, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	width, err := strconv.Atoi(chi.URLParam(r, "width"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		http.NotFound(w, r)
		return
	}
	info, err := s.store.GetTrickplay(r.Context(), video.ID, width)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	dir := fmt.Sprintf("%d - %dx%d", info.Width, info.TileWidth, info.TileHeight)
	path := filepath.Join(root, dir, fmt.Sprintf("%d.jpg", index))
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) handleIFramePlaylist(w http.ResponseWriter, r *http.Request) {
	video, root, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := s.store.GetIFrame(r.Context(), video.ID); err != nil {
		http.NotFound(w, r)
		return
	}
	raw, err := os.ReadFile(filepath.Join(media.IFrameDir(root), iframe.PlaylistName))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	mediaSource := r.URL.Query().Get("mediaSourceId")
	if mediaSource == "" {
		mediaSource = video.MediaSource
	}
	// segment URLs are rewritten on every request to carry the caller's key
	out := iframe.RewritePlaylist(string(raw), mediaSource, s.cfg.Current().APIKey)
	w.Header().Set("Content-Type", playlistContentType)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleIFrameFile(w http.ResponseWriter, r *http.Request) {
	video, root, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := s.store.GetIFrame(r.Context(), video.ID); err != nil {
		http.NotFound(w, r)
		return
	}

	name := chi.URLParam(r, "fileName")
	path, err := confineFile(media.IFrameDir(root), name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case strings.HasSuffix(name, ".m3u8"):
		w.Header().Set("Content-Type", playlistContentType)
	case strings.HasSuffix(name, ".mp4"), strings.HasSuffix(name, ".m4s"):
		w.Header().Set("Content-Type", "video/mp4")
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleSubtitleTrack(w http.ResponseWriter, r *http.Request) {
	if s.converter == nil {
		http.NotFound(w, r)
		return
	}
	video, _, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	lang := chi.URLParam(r, "lang")

	from := parseMillis(r.URL.Query().Get("startMs"), 0)
	to := parseMillis(r.URL.Query().Get("endMs"), video.Duration)

	key := subtitles.Key(video.ID, lang, from, to)
	if s.tracks != nil {
		if track, ok := s.tracks.Get(r.Context(), key); ok {
			writeJSON(w, track)
			return
		}
	}

	f, err := os.Open(subtitlePath(video))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	track, err := s.converter.ConvertRange(r.Context(), f, lang, from, to)
	if err != nil {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
		return
	}
	if s.tracks != nil {
		s.tracks.Put(r.Context(), key, track)
	}
	writeJSON(w, track)
}

// subtitlePath locates the sidecar .sup of a video. Embedded PGS streams
// are extracted to this path by the library scanner before conversion.
func subtitlePath(video media.VideoRef) string {
	ext := filepath.Ext(video.Path)
	return strings.TrimSuffix(video.Path, ext) + ".sup"
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	video, _, err := s.resolve(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	cfg := s.cfg.Current()

	jobID := uuid.NewString()
	go func() {
		ctx := xglog.ContextWithJobID(context.Background(), jobID)
		err := s.coord.Refresh(ctx, video, libraryOptions(cfg), trickplayOptions(cfg), replace)
		if err != nil {
			logger := xglog.WithComponentFromContext(ctx, "api")
			logger.Error().Err(err).
				Str(xglog.FieldItemID, video.ID).
				Msg("refresh failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"jobId": jobID})
}

// confineFile resolves name inside dir, rejecting traversal and absolute
// paths.
func confineFile(dir, name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || filepath.IsAbs(clean) || strings.Contains(clean, "..") ||
		strings.ContainsRune(clean, filepath.Separator) {
		return "", fmt.Errorf("unsafe file name: %s", name)
	}
	return filepath.Join(dir, clean), nil
}

func parseMillis(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
