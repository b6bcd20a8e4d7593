// Package ocr wraps OCR engines behind a single detection contract: one call
// per engine and frame, producing a scored DetectionResult.
package ocr

import (
	"cmp"
	"context"
	"math"
	"strings"

	"golang.org/x/text/language"
)

// ConsensusScore marks a result confirmed by a majority of engines.
const ConsensusScore = math.MaxFloat64

// EngineRef identifies an engine and carries its scheduling attributes.
type EngineRef struct {
	ID             string
	Priority       int
	Confidence     float64
	SecondaryCheck bool
}

// Recognition is the raw output of one engine call. Confidence is the
// engine-reported certainty in [0,1], or 0 when the engine has none.
type Recognition struct {
	Text       string
	Confidence float64
}

// Engine is one OCR backend.
type Engine interface {
	Ref() EngineRef
	Recognize(ctx context.Context, frame []byte) (Recognition, error)
	Close() error
}

// Language describes the source language of the captured text.
type Language struct {
	Code  string
	Asian bool
}

var asianBases = map[string]bool{"ja": true, "zh": true, "ko": true}

// LanguageFor returns the Language for a BCP 47 / ISO code.
func LanguageFor(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	l := Language{Code: code}
	if tag, err := language.Parse(code); err == nil {
		base, _ := tag.Base()
		l.Asian = asianBases[base.String()]
	}
	return l
}

// DetectionResult is a scored reading of one frame by one engine.
type DetectionResult struct {
	Text          string
	ValidatedText string
	Score         float64
	Engine        EngineRef
	Language      Language
}

// Empty reports whether the result carries no usable text.
func (r DetectionResult) Empty() bool {
	return r.Score == 0 || strings.TrimSpace(r.Text) == ""
}

// Compare orders results by score, then by engine confidence.
func (r DetectionResult) Compare(o DetectionResult) int {
	if c := cmp.Compare(r.Score, o.Score); c != 0 {
		return c
	}
	return cmp.Compare(r.Engine.Confidence, o.Engine.Confidence)
}

// Primary returns the engine with the highest priority. Ties keep the
// earlier engine. The rest are returned in their original order.
func Primary(engines []Engine) (Engine, []Engine) {
	if len(engines) == 0 {
		return nil, nil
	}
	best := 0
	for i, e := range engines[1:] {
		if e.Ref().Priority > engines[best].Ref().Priority {
			best = i + 1
		}
	}
	others := make([]Engine, 0, len(engines)-1)
	others = append(others, engines[:best]...)
	others = append(others, engines[best+1:]...)
	return engines[best], others
}
