// SPDX-License-Identifier: MIT

// Command daemon runs the media-artifact service: it generates trickplay
// tiles, I-frame playlists and OCR subtitle tracks, and serves them over
// HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/strmforge/mediapack/internal/api"
	"github.com/strmforge/mediapack/internal/cache"
	"github.com/strmforge/mediapack/internal/config"
	"github.com/strmforge/mediapack/internal/iframe"
	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
	"github.com/strmforge/mediapack/internal/media/ffmpeg"
	"github.com/strmforge/mediapack/internal/media/imaging"
	"github.com/strmforge/mediapack/internal/ocr"
	"github.com/strmforge/mediapack/internal/ratelimit"
	"github.com/strmforge/mediapack/internal/store"
	"github.com/strmforge/mediapack/internal/subtitles"
	"github.com/strmforge/mediapack/internal/telemetry"
	"github.com/strmforge/mediapack/internal/trickplay"
)

func main() {
	if err := run(); err != nil {
		logger := xglog.Base()
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfgm, err := config.NewManager(*configPath)
	if err != nil {
		return err
	}
	cfg := cfgm.Current()

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "mediapack"})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "mediapack",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	st, err := store.New(filepath.Join(cfg.DataDir, "artifacts.db"))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	trackCache, err := newTrackCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = trackCache.Close() }()

	registry := ocr.NewRegistry(cfg.DataDir, cfg.ModelBaseURL)
	engine := ocr.NewEngine(registry, ocr.EngineOptions{
		Workers:     cfg.OCR.Workers,
		LibraryPath: cfg.OCR.LibraryPath,
	})
	defer engine.Close()

	// common models install in the background; a failure here only delays
	// subtitle OCR until the next startup
	go func() {
		if err := registry.EnsureCommon(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("background model download failed")
		}
	}()

	encoder := ffmpeg.New(cfg.FFmpegPath, filepath.Join(cfg.DataDir, "scratch"))
	images := imaging.New()
	gen := trickplay.NewGenerator(st, encoder, images)
	ib := iframe.NewBuilder(st, encoder)
	paths := media.PathManager{DataDir: cfg.DataDir}
	coord := trickplay.NewCoordinator(gen, ib, st, paths)
	converter := subtitles.NewConverter(registry, engine)

	limiter := ratelimit.New(ratelimit.DefaultConfig())
	defer limiter.Close()

	resolver := newFileResolver(filepath.Join(cfg.DataDir, "library.json"))
	server := api.NewServer(cfgm, st, resolver, coord, converter, subtitles.NewTrackCache(trackCache), limiter)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := cfgm.Watch(ctx); err != nil {
			logger.Warn().Err(err).Msg("config watcher stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("serving artifacts")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newTrackCache(cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "badger":
		return cache.NewBadgerCache(filepath.Join(cfg.DataDir, "subtitle-cache"), xglog.WithComponent("cache"))
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, xglog.WithComponent("cache"))
	default:
		return cache.NewMemoryCache(10 * time.Minute), nil
	}
}
