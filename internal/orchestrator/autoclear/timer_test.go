package autoclear

import (
	"testing"
	"time"
)

func TestTimerDue(t *testing.T) {
	now := time.Now()
	tm := New(true, 10*time.Second)
	tm.now = func() time.Time { return now }

	if tm.Due() {
		t.Error("Due() before any translation should be false")
	}

	tm.Touch()
	now = now.Add(5 * time.Second)
	if tm.Due() {
		t.Error("Due() inside the window should be false")
	}

	now = now.Add(6 * time.Second)
	if !tm.Due() {
		t.Error("Due() after the window should be true")
	}
	if tm.Due() {
		t.Error("Due() should fire once per quiet period")
	}

	tm.Touch()
	now = now.Add(11 * time.Second)
	if !tm.Due() {
		t.Error("Due() should fire again after a new translation")
	}
}

func TestTimerDisabled(t *testing.T) {
	now := time.Now()
	tm := New(false, time.Second)
	tm.now = func() time.Time { return now }
	tm.Touch()
	now = now.Add(time.Hour)

	if tm.Due() {
		t.Error("disabled timer should never be due")
	}

	tm.Configure(true, time.Second)
	if !tm.Due() {
		t.Error("Due() after enabling should be true")
	}
}

func TestTimerReset(t *testing.T) {
	tm := New(true, 0)
	tm.Touch()
	tm.Reset()

	if !tm.Last().IsZero() {
		t.Errorf("Last() = %v, want zero", tm.Last())
	}
	if tm.Due() {
		t.Error("Due() after Reset should be false")
	}
}
