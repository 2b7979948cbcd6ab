// SPDX-License-Identifier: MIT

// Package config loads, validates and hot-reloads the daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Listen       string `yaml:"listen"`
	DataDir      string `yaml:"data_dir"`
	LogLevel     string `yaml:"log_level"`
	APIKey       string `yaml:"api_key"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	ModelBaseURL string `yaml:"model_base_url"`

	Trickplay TrickplayConfig `yaml:"trickplay"`
	Library   LibraryConfig   `yaml:"library"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	OCR       OCRConfig       `yaml:"ocr"`
}

// TrickplayConfig is the trickplay options table.
type TrickplayConfig struct {
	IntervalMs  int      `yaml:"interval_ms"`
	Widths      []int    `yaml:"widths"`
	TileWidth   int      `yaml:"tile_width"`
	TileHeight  int      `yaml:"tile_height"`
	JpegQuality int      `yaml:"jpeg_quality"`
	HwAccel     []string `yaml:"hw_accel"`
	Threads     int      `yaml:"threads"`
	IFramesOnly bool     `yaml:"iframes_only"`
}

// LibraryConfig carries the per-library feature toggles.
type LibraryConfig struct {
	EnableTrickplayImageExtraction  bool `yaml:"enable_trickplay_image_extraction"`
	DisableIFramePlaylistGeneration bool `yaml:"disable_iframe_playlist_generation"`
	SaveWithMedia                   bool `yaml:"save_with_media"`
}

// CacheConfig selects the subtitle-track cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // "memory", "badger" or "redis"
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// OCRConfig tunes the recognition engine.
type OCRConfig struct {
	Workers     int    `yaml:"workers"`
	LibraryPath string `yaml:"library_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:       ":8096",
		DataDir:      "data",
		LogLevel:     "info",
		ModelBaseURL: "https://repo.mediapack.dev/ocr-models",
		Trickplay: TrickplayConfig{
			IntervalMs:  10000,
			Widths:      []int{320},
			TileWidth:   10,
			TileHeight:  10,
			JpegQuality: 4,
			Threads:     1,
		},
		Library: LibraryConfig{
			EnableTrickplayImageExtraction: true,
		},
		Cache: CacheConfig{Backend: "memory"},
		Telemetry: TelemetryConfig{
			ExporterType: "noop",
			SamplingRate: 0.1,
		},
		OCR: OCRConfig{Workers: 4},
	}
}

// Load reads the YAML file (when path is non-empty), applies environment
// overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.Trickplay.TileWidth < 1 || c.Trickplay.TileHeight < 1 {
		return fmt.Errorf("config: tile grid must be at least 1x1")
	}
	for _, w := range c.Trickplay.Widths {
		if w < 2 {
			return fmt.Errorf("config: trickplay width %d too small", w)
		}
	}
	switch c.Cache.Backend {
	case "memory", "badger", "redis":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}
