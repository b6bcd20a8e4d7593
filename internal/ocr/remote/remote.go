// Package remote implements an OCR engine served by the inference gRPC server.
package remote

import (
	"context"

	"github.com/GriffinCanCode/screenlate/internal/grpcclient"
	"github.com/GriffinCanCode/screenlate/internal/ocr"
	"github.com/GriffinCanCode/screenlate/internal/resilience"
)

// Recognizer is the subset of grpcclient.Client the engine needs.
type Recognizer interface {
	ExtractText(ctx context.Context, image []byte, format, language string) (grpcclient.Result, error)
	Close() error
}

// Engine forwards frames to the inference server behind a circuit breaker,
// so a dead server costs one fast failure per tick instead of a timeout.
type Engine struct {
	ref     ocr.EngineRef
	lang    string
	client  Recognizer
	breaker *resilience.Breaker
}

// New creates a remote engine.
func New(ref ocr.EngineRef, lang string, client Recognizer) *Engine {
	return &Engine{
		ref:     ref,
		lang:    lang,
		client:  client,
		breaker: resilience.New(resilience.OCRConfig(ref.ID)),
	}
}

func (e *Engine) Ref() ocr.EngineRef { return e.ref }

func (e *Engine) Recognize(ctx context.Context, frame []byte) (ocr.Recognition, error) {
	res, err := resilience.ExecuteWithResult(e.breaker, func() (grpcclient.Result, error) {
		return e.client.ExtractText(ctx, frame, "png", e.lang)
	})
	if err != nil {
		return ocr.Recognition{}, err
	}
	return ocr.Recognition{Text: res.Text, Confidence: res.Confidence}, nil
}

func (e *Engine) Close() error { return e.client.Close() }
