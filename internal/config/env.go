// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"

	xglog "github.com/strmforge/mediapack/internal/log"
)

// applyEnv overlays MEDIAPACK_* environment variables over the loaded
// configuration. Environment always wins over the file.
func applyEnv(cfg *Config) {
	cfg.Listen = parseString("MEDIAPACK_LISTEN", cfg.Listen)
	cfg.DataDir = parseString("MEDIAPACK_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = parseString("MEDIAPACK_LOG_LEVEL", cfg.LogLevel)
	cfg.APIKey = parseString("MEDIAPACK_API_KEY", cfg.APIKey)
	cfg.FFmpegPath = parseString("MEDIAPACK_FFMPEG_PATH", cfg.FFmpegPath)
	cfg.ModelBaseURL = parseString("MEDIAPACK_MODEL_BASE_URL", cfg.ModelBaseURL)

	cfg.Trickplay.IntervalMs = parseInt("MEDIAPACK_TRICKPLAY_INTERVAL_MS", cfg.Trickplay.IntervalMs)
	cfg.Trickplay.Threads = parseInt("MEDIAPACK_TRICKPLAY_THREADS", cfg.Trickplay.Threads)
	cfg.Trickplay.JpegQuality = parseInt("MEDIAPACK_TRICKPLAY_JPEG_QUALITY", cfg.Trickplay.JpegQuality)

	cfg.Library.EnableTrickplayImageExtraction = parseBool("MEDIAPACK_ENABLE_TRICKPLAY", cfg.Library.EnableTrickplayImageExtraction)
	cfg.Library.DisableIFramePlaylistGeneration = parseBool("MEDIAPACK_DISABLE_IFRAME", cfg.Library.DisableIFramePlaylistGeneration)
	cfg.Library.SaveWithMedia = parseBool("MEDIAPACK_SAVE_WITH_MEDIA", cfg.Library.SaveWithMedia)

	cfg.Cache.Backend = parseString("MEDIAPACK_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Redis.Addr = parseString("MEDIAPACK_REDIS_ADDR", cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = parseString("MEDIAPACK_REDIS_PASSWORD", cfg.Cache.Redis.Password)

	cfg.OCR.Workers = parseInt("MEDIAPACK_OCR_WORKERS", cfg.OCR.Workers)
	cfg.OCR.LibraryPath = parseString("MEDIAPACK_ONNXRUNTIME_PATH", cfg.OCR.LibraryPath)
}

// parseString reads a string environment variable or returns the default.
func parseString(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	logger := xglog.WithComponent("config")
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "key") || strings.Contains(lowerKey, "password") {
		logger.Debug().Str("key", key).Bool("sensitive", true).Msg("using environment variable")
	} else {
		logger.Debug().Str("key", key).Str("value", value).Msg("using environment variable")
	}
	return value
}

// parseInt reads an integer environment variable or returns the default.
func parseInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger := xglog.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Msg("invalid integer, using default")
		return defaultValue
	}
	return parsed
}

// parseBool reads a boolean environment variable or returns the default.
func parseBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger := xglog.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Msg("invalid boolean, using default")
		return defaultValue
	}
	return parsed
}
