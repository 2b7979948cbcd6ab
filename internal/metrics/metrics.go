// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for artifact
// generation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrickplayGenerationDuration tracks wall time of one per-width tile build.
	TrickplayGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediapack_trickplay_generation_duration_seconds",
		Help:    "Time taken to build one trickplay resolution",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"result"})

	// TrickplayTilesBuilt counts composite tiles written to disk.
	TrickplayTilesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediapack_trickplay_tiles_built_total",
		Help: "Total composite trickplay tiles written",
	})

	// IFrameGenerationDuration tracks wall time of one I-frame playlist build.
	IFrameGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediapack_iframe_generation_duration_seconds",
		Help:    "Time taken to build one I-frame HLS artifact",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"result"})

	// OcrRecognizeDuration tracks per-image OCR latency.
	OcrRecognizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediapack_ocr_recognize_duration_seconds",
		Help:    "Time taken to recognise one subtitle bitmap",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// ModelDownloadTotal counts model file download outcomes.
	ModelDownloadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediapack_ocr_model_download_total",
		Help: "Total OCR model file downloads by result",
	}, []string{"result"})

	// SubtitleCache counts subtitle-track cache hits and misses.
	SubtitleCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediapack_subtitle_cache_total",
		Help: "Subtitle track cache lookups by result",
	}, []string{"result"})
)

// ObserveTrickplayGeneration records one per-width build.
func ObserveTrickplayGeneration(result string, d time.Duration) {
	TrickplayGenerationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveIFrameGeneration records one I-frame artifact build.
func ObserveIFrameGeneration(result string, d time.Duration) {
	IFrameGenerationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// IncModelDownload records a model file download outcome.
func IncModelDownload(result string) {
	ModelDownloadTotal.WithLabelValues(result).Inc()
}

// IncSubtitleCache records a subtitle cache lookup outcome.
func IncSubtitleCache(result string) {
	SubtitleCache.WithLabelValues(result).Inc()
}
