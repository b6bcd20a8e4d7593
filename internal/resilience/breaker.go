// Package resilience provides the circuit breaker wrapped around translators,
// remote OCR engines and the speech service, and the retry loop used while
// waiting for the inference server.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

// State is the breaker position.
type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ErrOpen is the cause of every call the breaker rejects.
var ErrOpen = errors.New("circuit breaker open")

// Breaker fails fast once a backend keeps failing. After cfg.Threshold
// consecutive failures it opens and rejects calls for cfg.ResetTimeout. It then
// admits one trial call at a time; cfg.HalfOpenSuccesses passing trials close
// it and a failing trial opens it again.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	passes   int
	trial    bool
	openedAt time.Time
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// admit decides whether a call may run. trial marks the half-open trial call,
// whose outcome alone decides the next position.
func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false, ErrOpen
		}
		b.moveLocked(HalfOpen)
	}
	if b.state == HalfOpen {
		if b.trial {
			return false, ErrOpen
		}
		b.trial = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case trial:
		b.trial = false
		if err != nil {
			b.moveLocked(Open)
			return
		}
		b.passes++
		if b.passes >= b.cfg.HalfOpenSuccesses {
			b.moveLocked(Closed)
		}
	case b.state != Closed:
		// Admitted before the breaker opened; the trial decides from here.
	case err == nil:
		b.failures = 0
	default:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.moveLocked(Open)
		}
	}
}

func (b *Breaker) moveLocked(to State) {
	if b.state == to {
		return
	}
	b.state = to
	b.passes = 0
	switch to {
	case Open:
		b.openedAt = b.now()
		slog.Warn("circuit breaker opened", "breaker", b.cfg.Name, "failures", b.failures)
	case HalfOpen:
		slog.Info("circuit breaker half-open", "breaker", b.cfg.Name)
	case Closed:
		b.failures = 0
		slog.Info("circuit breaker closed", "breaker", b.cfg.Name)
	}
}

func (b *Breaker) rejected(err error) error {
	return apperrors.Wrapf(err, apperrors.Unavailable, "%s unavailable", b.cfg.Name)
}

// Execute runs fn unless the breaker rejects it. A rejection is an
// Unavailable AppError wrapping ErrOpen.
func (b *Breaker) Execute(fn func() error) error {
	trial, err := b.admit()
	if err != nil {
		return b.rejected(err)
	}
	err = fn()
	b.record(trial, err)
	return err
}

// ExecuteWithResult is Execute for calls that return a value.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	trial, err := b.admit()
	if err != nil {
		return zero, b.rejected(err)
	}
	result, err := fn()
	b.record(trial, err)
	if err != nil {
		return zero, err
	}
	return result, nil
}
