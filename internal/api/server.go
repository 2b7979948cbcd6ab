// SPDX-License-Identifier: MIT

// Package api serves the generated artifacts over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strmforge/mediapack/internal/config"
	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/ratelimit"
	"github.com/strmforge/mediapack/internal/store"
	"github.com/strmforge/mediapack/internal/subtitles"
	"github.com/strmforge/mediapack/internal/trickplay"
)

// ErrUnknownItem is returned by resolvers for items outside the library.
var ErrUnknownItem = errors.New("api: unknown item")

// VideoResolver looks up the video behind an item ID. The library database
// is an external collaborator; only this lookup crosses the boundary.
type VideoResolver interface {
	Resolve(ctx context.Context, itemID string) (media.VideoRef, error)
}

// Server wires the artifact routes.
type Server struct {
	cfg       *config.Manager
	store     *store.Store
	resolver  VideoResolver
	coord     *trickplay.Coordinator
	converter *subtitles.Converter
	tracks    *subtitles.TrackCache
	limiter   *ratelimit.Limiter
}

// NewServer builds a server; tracks may be nil to disable subtitle caching.
func NewServer(
	cfg *config.Manager,
	s *store.Store,
	resolver VideoResolver,
	coord *trickplay.Coordinator,
	converter *subtitles.Converter,
	tracks *subtitles.TrackCache,
	limiter *ratelimit.Limiter,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     s,
		resolver:  resolver,
		coord:     coord,
		converter: converter,
		tracks:    tracks,
		limiter:   limiter,
	}
}

// Router assembles the middleware stack and routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(httprate.LimitByIP(300, time.Minute))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/Videos/{itemId}", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "artifacts")
		})
		r.Get("/Trickplay/{width}/tiles.m3u8", s.handleTrickplayPlaylist)
		r.Get("/Trickplay/{width}/{index}.jpg", s.handleTrickplayTile)
		r.Get("/IFrame/iframe.m3u8", s.handleIFramePlaylist)
		r.Get("/IFrame/{fileName}", s.handleIFrameFile)
		r.Get("/Subtitles/{lang}/track.json", s.handleSubtitleTrack)
		r.Post("/Refresh", s.handleRefresh)
	})
	return r
}

// requireAPIKey rejects requests without the configured key. An empty
// configured key disables the check (the deployment fronts the daemon with
// its own auth).
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.cfg.Current().APIKey
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.URL.Query().Get("ApiKey")
		if got == "" {
			got = r.Header.Get("X-Api-Key")
		}
		if got != key {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := xglog.ContextWithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger := xglog.WithComponentFromContext(ctx, "api")
		logger.Debug().
			Str("method", r.Method).
			Str(xglog.FieldPath, r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
