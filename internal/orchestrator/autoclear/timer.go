// Package autoclear decides when displayed text has gone stale.
package autoclear

import (
	"sync"
	"time"
)

// Timer tracks the last successful translation. Due reports true once per
// quiet period longer than the delay.
type Timer struct {
	mu      sync.Mutex
	enabled bool
	delay   time.Duration
	last    time.Time
	cleared bool
	now     func() time.Time
}

// New creates a timer. A disabled timer is never due.
func New(enabled bool, delay time.Duration) *Timer {
	return &Timer{enabled: enabled, delay: delay, cleared: true, now: time.Now}
}

// Touch records a successful translation.
func (t *Timer) Touch() {
	t.mu.Lock()
	t.last = t.now()
	t.cleared = false
	t.mu.Unlock()
}

// Last returns the time of the last Touch.
func (t *Timer) Last() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Due reports whether the output should be cleared now.
func (t *Timer) Due() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.cleared {
		return false
	}
	if t.now().Sub(t.last) <= t.delay {
		return false
	}
	t.cleared = true
	return true
}

// Configure changes the settings without losing the last timestamp.
func (t *Timer) Configure(enabled bool, delay time.Duration) {
	t.mu.Lock()
	t.enabled = enabled
	t.delay = delay
	t.mu.Unlock()
}

// Reset forgets the last translation.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.last = time.Time{}
	t.cleared = true
	t.mu.Unlock()
}
