// Package dedup decides whether a reading is genuinely new, both before
// translation (source text) and after it (translated text).
package dedup

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// MinScoreThreshold is the validity score a reading must exceed to be translated.
	MinScoreThreshold = 2.1

	// StaleAfter is how many iterations an unanswered iteration id is remembered.
	StaleAfter = 64
)

// Tracker remembers the last accepted text and the iterations whose
// translations are still in flight. It is safe for concurrent use.
type Tracker struct {
	mu              sync.Mutex
	threshold       float64
	lastText        string
	lastTranslation string
	iteration       uint64
	pending         map[uuid.UUID]uint64
	emitted         map[uuid.UUID]uint64
}

// New creates a tracker gating on threshold.
func New(threshold float64) *Tracker {
	return &Tracker{
		threshold: threshold,
		pending:   make(map[uuid.UUID]uint64),
		emitted:   make(map[uuid.UUID]uint64),
	}
}

// Threshold returns the score gate.
func (t *Tracker) Threshold() float64 { return t.threshold }

// IsCached is the cheap check run on the primary engine's reading. Blank text
// is always cached. In sequential mode a text contained in the last accepted
// text counts as already seen.
func (t *Tracker) IsCached(text string, sequential bool) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seenLocked(text, sequential)
}

func (t *Tracker) seenLocked(text string, sequential bool) bool {
	if text == t.lastText {
		return true
	}
	return sequential && t.lastText != "" && strings.Contains(t.lastText, text)
}

// Check is the full check run on the fused reading. A reading at or below the
// threshold is reported as not cached with a nil id and leaves no trace. A new
// reading becomes the last accepted text and gets a fresh iteration id.
func (t *Tracker) Check(text string, score float64, sequential bool) (uuid.UUID, bool) {
	if score <= t.threshold {
		return uuid.Nil, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return uuid.Nil, true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seenLocked(text, sequential) {
		return uuid.Nil, true
	}

	t.lastText = text
	id := uuid.New()
	t.pending[id] = t.iteration
	return id, false
}

// IsTranslatedCached reports whether a translation should be suppressed: it is
// blank, repeats the last emitted translation, or its iteration already emitted.
// Unknown or stale ids are judged by text alone.
func (t *Tracker) IsTranslatedCached(translation string, id uuid.UUID) bool {
	translation = strings.TrimSpace(translation)
	if translation == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if translation == t.lastTranslation {
		return true
	}
	if id != uuid.Nil {
		if _, done := t.emitted[id]; done {
			return true
		}
		delete(t.pending, id)
		t.emitted[id] = t.iteration
	}
	t.lastTranslation = translation
	return false
}

// EndIteration advances the iteration counter and forgets ids older than StaleAfter.
func (t *Tracker) EndIteration() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.iteration++
	for id, at := range t.pending {
		if t.iteration-at > StaleAfter {
			delete(t.pending, id)
		}
	}
	for id, at := range t.emitted {
		if t.iteration-at > StaleAfter {
			delete(t.emitted, id)
		}
	}
}

// Pending returns the number of iterations awaiting a translation.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastText = ""
	t.lastTranslation = ""
	t.iteration = 0
	clear(t.pending)
	clear(t.emitted)
}
