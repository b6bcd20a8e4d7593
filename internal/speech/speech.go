// Package speech forwards translated text to a speech synthesizer without
// blocking the translation pipeline.
package speech

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultQueueSize bounds the texts waiting to be spoken.
const DefaultQueueSize = 16

// Engine synthesizes and plays text.
type Engine interface {
	Speak(ctx context.Context, text string) error
	Close() error
}

// Noop discards everything. Used when speech is disabled.
type Noop struct{}

func (Noop) Speak(context.Context, string) error { return nil }
func (Noop) Close() error                        { return nil }

// Queue serializes speech on a single worker. Speak never blocks: when the
// queue is full the text is dropped.
type Queue struct {
	engine Engine
	ch     chan string

	mu      sync.Mutex
	dropped int
}

// NewQueue creates a queue in front of engine.
func NewQueue(engine Engine, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{engine: engine, ch: make(chan string, size)}
}

// Speak enqueues text and reports whether it was accepted.
func (q *Queue) Speak(text string) bool {
	if text == "" {
		return false
	}
	select {
	case q.ch <- text:
		return true
	default:
		q.mu.Lock()
		q.dropped++
		q.mu.Unlock()
		slog.Debug("speech queue full, dropping text", "chars", len(text))
		return false
	}
}

// Dropped returns how many texts were discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Run speaks queued texts until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-q.ch:
			if err := q.engine.Speak(ctx, text); err != nil {
				slog.Warn("speech failed", "error", err)
			}
		}
	}
}

// Close releases the engine.
func (q *Queue) Close() error {
	return q.engine.Close()
}
