package ocr

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/trace"
)

// Provider runs engines against frames and scores their readings.
// It never retries: the next scheduler tick is the retry.
type Provider struct {
	lang Language
}

// NewProvider creates a provider scoring text as lang.
func NewProvider(lang Language) *Provider {
	return &Provider{lang: lang}
}

// Language returns the language results are scored as.
func (p *Provider) Language() Language { return p.lang }

// Detect runs one engine synchronously. Engine failures and panics come back
// as DetectionFailed errors naming the engine.
func (p *Provider) Detect(ctx context.Context, e Engine, frame []byte) (res DetectionResult, err error) {
	ref := e.Ref()
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Detection(ref.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	rec, err := e.Recognize(ctx, frame)
	if err != nil {
		return DetectionResult{}, apperrors.Detection(ref.ID, err)
	}

	text := strings.TrimSpace(rec.Text)
	score := Score(text, p.lang.Asian)
	if rec.Confidence > 0 {
		score *= rec.Confidence
	}
	trace.Logger(ctx).Debug("engine detection", "engine", ref.ID, "score", score, "chars", len(text))

	return DetectionResult{
		Text:          text,
		ValidatedText: Validate(text, p.lang.Asian),
		Score:         score,
		Engine:        ref,
		Language:      p.lang,
	}, nil
}

// Outcome is the settled value of an asynchronous detection.
type Outcome struct {
	Result DetectionResult
	Err    error
}

// DetectAsync starts Detect in a goroutine. The channel receives exactly one Outcome.
func (p *Provider) DetectAsync(ctx context.Context, e Engine, frame []byte) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		res, err := p.Detect(ctx, e, frame)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// DetectAll runs every engine concurrently and waits for all of them.
// Results keep the engines' order. The first failure is returned.
func (p *Provider) DetectAll(ctx context.Context, engines []Engine, frame []byte) ([]DetectionResult, error) {
	results := make([]DetectionResult, len(engines))
	var g errgroup.Group
	for i, e := range engines {
		g.Go(func() error {
			res, err := p.Detect(ctx, e, frame)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
