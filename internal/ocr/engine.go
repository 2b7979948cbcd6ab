// SPDX-License-Identifier: MIT

package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/metrics"
)

// ErrModelUnavailable is returned when a family's models are not installed.
var ErrModelUnavailable = errors.New("ocr: model not available")

// Result is the outcome of recognising one bitmap.
type Result struct {
	Text       string
	Confidence float64
	Regions    int
}

// Image is one RGBA bitmap handed to the batch API.
type Image struct {
	RGBA   []byte
	Width  int
	Height int
}

// Engine runs recognition sessions. It is safe for concurrent use and holds
// at most one loaded session per family.
type Engine struct {
	reg        *Registry
	workers    int
	inputName  string
	outputName string

	envOnce sync.Once
	envErr  error

	mu       sync.RWMutex
	sessions map[Family]*recSession
	group    singleflight.Group
}

// recSession pairs a loaded model with its glyph dictionary.
type recSession struct {
	sess *ort.DynamicAdvancedSession
	dict []string
}

// EngineOptions tunes the engine; zero values select defaults.
type EngineOptions struct {
	Workers     int    // batch parallelism, default 4
	InputName   string // recognition model input, default "x"
	OutputName  string // recognition model output, default "softmax_0.tmp_0"
	LibraryPath string // optional onnxruntime shared library location
}

// NewEngine creates an engine over the given registry.
func NewEngine(reg *Registry, opts EngineOptions) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.InputName == "" {
		opts.InputName = "x"
	}
	if opts.OutputName == "" {
		opts.OutputName = "softmax_0.tmp_0"
	}
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	return &Engine{
		reg:        reg,
		workers:    opts.Workers,
		inputName:  opts.InputName,
		outputName: opts.OutputName,
		sessions:   make(map[Family]*recSession),
	}
}

// Close destroys loaded sessions and the runtime environment.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for f, s := range e.sessions {
		_ = s.sess.Destroy()
		delete(e.sessions, f)
	}
	_ = ort.DestroyEnvironment()
}

// Recognize runs OCR over one RGBA bitmap. Inference failures degrade to an
// empty result; only missing models surface as an error.
func (e *Engine) Recognize(rgba []byte, w, h int, family Family) (Result, error) {
	sess, err := e.session(family)
	if err != nil {
		return Result{}, err
	}
	start := time.Now()
	defer func() { metrics.OcrRecognizeDuration.Observe(time.Since(start).Seconds()) }()

	gray := compositeOverWhite(rgba, w, h)
	regions := detectRegions(gray, w, h)

	var texts []string
	var confSum float64
	emitted := 0
	for _, r := range regions {
		text, conf := e.runRegion(sess, rgba, w, r)
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
		confSum += conf
		emitted++
	}
	if emitted == 0 {
		return Result{}, nil
	}
	return Result{
		Text:       strings.Join(texts, "\n"),
		Confidence: confSum / float64(emitted),
		Regions:    emitted,
	}, nil
}

// RecognizeBatch runs the images in parallel on a bounded worker pool and
// returns results in input order.
func (e *Engine) RecognizeBatch(ctx context.Context, images []Image, family Family) ([]Result, error) {
	// fail fast before spawning workers
	if _, err := e.session(family); err != nil {
		return nil, err
	}
	out := make([]Result, len(images))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, img := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Recognize(img.RGBA, img.Width, img.Height, family)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// runRegion resizes one region, runs inference, and decodes. Any failure,
// including a panic out of the runtime bindings, degrades to empty text.
func (e *Engine) runRegion(sess *recSession, rgba []byte, w int, r region) (text string, conf float64) {
	logger := xglog.WithComponent("ocr-engine")
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("inference panicked")
			text, conf = "", 0
		}
	}()

	rgb, outW := resizeRegion(rgba, w, r)
	tensorData := chwTensor(rgb, outW)

	input, err := ort.NewTensor(ort.NewShape(1, 3, recHeight, int64(outW)), tensorData)
	if err != nil {
		logger.Error().Err(err).Msg("create input tensor")
		return "", 0
	}
	defer func() { _ = input.Destroy() }()

	outputs := []ort.Value{nil}
	if err := sess.sess.Run([]ort.Value{input}, outputs); err != nil {
		logger.Error().Err(err).Msg("inference failed")
		return "", 0
	}
	defer func() { _ = outputs[0].Destroy() }()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		logger.Error().Msg("unexpected output tensor type")
		return "", 0
	}
	shape := logitsTensor.GetShape()
	if len(shape) != 3 {
		logger.Error().Ints64("shape", shape).Msg("unexpected output shape")
		return "", 0
	}
	steps, classes := int(shape[1]), int(shape[2])
	return ctcDecode(logitsTensor.GetData(), steps, classes, sess.dict)
}

// session returns the loaded session for a family, loading it at most once
// across concurrent callers.
func (e *Engine) session(family Family) (*recSession, error) {
	e.mu.RLock()
	s, ok := e.sessions[family]
	e.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := e.group.Do(family.String(), func() (any, error) {
		e.mu.RLock()
		s, ok := e.sessions[family]
		e.mu.RUnlock()
		if ok {
			return s, nil
		}
		loaded, err := e.load(family)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.sessions[family] = loaded
		e.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*recSession), nil
}

// load parses the dictionary and opens the recognition model.
func (e *Engine) load(family Family) (*recSession, error) {
	if !e.reg.HasModels(family) {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, family)
	}
	e.envOnce.Do(func() {
		if !ort.IsInitialized() {
			e.envErr = ort.InitializeEnvironment()
		}
	})
	if e.envErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", e.envErr)
	}

	p := e.reg.Paths(family)
	dict, err := loadDict(p.Dict)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	// graph optimization on, sequential execution, 1 inter-op + 4 intra-op
	// threads; parallelism comes from the batch pool, not the runtime
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, err
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, err
	}
	if err := opts.SetIntraOpNumThreads(4); err != nil {
		return nil, err
	}

	sess, err := ort.NewDynamicAdvancedSession(p.RecModel, []string{e.inputName}, []string{e.outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("open recognition model: %w", err)
	}

	logger := xglog.WithComponent("ocr-engine")
	logger.Info().
		Str(xglog.FieldFamily, family.String()).
		Int("glyphs", len(dict)).
		Msg("loaded recognition session")
	return &recSession{sess: sess, dict: dict}, nil
}

// loadDict parses dict.txt into the ordered glyph list, trimming a UTF-8
// BOM and dropping empty lines.
func loadDict(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimPrefix(string(raw), "\uFEFF")
	var dict []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		dict = append(dict, line)
	}
	return dict, nil
}
