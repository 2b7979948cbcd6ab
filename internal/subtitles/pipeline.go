// SPDX-License-Identifier: MIT

// Package subtitles converts PGS bitmap subtitle streams into timed text
// tracks by running OCR over each display set.
package subtitles

import (
	"context"
	"io"
	"strings"
	"time"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/ocr"
	"github.com/strmforge/mediapack/internal/pgs"
)

// batchSize bounds how many display sets are held in memory at once.
const batchSize = 50

// Event is one subtitle cue.
type Event struct {
	ID    int           `json:"id"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Track is an ordered list of cues for one language.
type Track struct {
	Language string  `json:"language"`
	Events   []Event `json:"events"`
}

// Converter glues the PGS decoder and the OCR engine together.
type Converter struct {
	reg    *ocr.Registry
	engine *ocr.Engine
}

// NewConverter creates a converter over the given registry and engine.
func NewConverter(reg *ocr.Registry, engine *ocr.Engine) *Converter {
	return &Converter{reg: reg, engine: engine}
}

// ConvertRange converts the display sets whose start time falls inside
// [from, to). Unsupported languages and missing models yield an empty
// track, not an error.
func (c *Converter) ConvertRange(ctx context.Context, r io.Reader, lang string, from, to time.Duration) (Track, error) {
	return c.convert(ctx, lang, func() *pgs.Decoder { return pgs.NewDecoderRange(r, from, to) })
}

// ConvertFull converts the whole stream.
func (c *Converter) ConvertFull(ctx context.Context, r io.Reader, lang string) (Track, error) {
	return c.convert(ctx, lang, func() *pgs.Decoder { return pgs.NewDecoder(r) })
}

func (c *Converter) convert(ctx context.Context, lang string, newDecoder func() *pgs.Decoder) (Track, error) {
	logger := xglog.WithComponentFromContext(ctx, "subtitles")
	track := Track{Language: lang}

	family, ok := ocr.FamilyForLanguage(lang)
	if !ok {
		logger.Debug().Str(xglog.FieldLanguage, lang).Msg("unsupported subtitle language")
		return track, nil
	}
	if !c.reg.HasModels(family) {
		logger.Debug().
			Str(xglog.FieldLanguage, lang).
			Str(xglog.FieldFamily, family.String()).
			Msg("OCR models not installed")
		return track, nil
	}

	dec := newDecoder()
	nextID := 1
	for {
		if err := ctx.Err(); err != nil {
			return Track{Language: lang}, err
		}
		batch, done := readBatch(dec)
		if len(batch) == 0 {
			if done {
				break
			}
			continue
		}

		images := make([]ocr.Image, len(batch))
		for i, ds := range batch {
			images[i] = ocr.Image{RGBA: ds.RGBA, Width: ds.Width, Height: ds.Height}
		}
		results, err := c.engine.RecognizeBatch(ctx, images, family)
		if err != nil {
			return Track{Language: lang}, err
		}

		for i, res := range results {
			if strings.TrimSpace(res.Text) == "" {
				continue
			}
			track.Events = append(track.Events, Event{
				ID:    nextID,
				Start: batch[i].Start,
				End:   batch[i].End,
				Text:  res.Text,
			})
			nextID++
		}
		if done {
			break
		}
	}
	return track, nil
}

// readBatch pulls up to batchSize display sets; done reports stream end.
func readBatch(dec *pgs.Decoder) ([]*pgs.DisplaySet, bool) {
	var batch []*pgs.DisplaySet
	for len(batch) < batchSize {
		ds, err := dec.Next()
		if err != nil {
			return batch, true
		}
		batch = append(batch, ds)
	}
	return batch, false
}
