package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(42)

	if got := g.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}

	g.Set(100)
	if got := g.Get(); got != 100 {
		t.Errorf("Get() after Set = %d, want 100", got)
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard("hello")

	old := g.Swap("world")
	if old != "hello" {
		t.Errorf("Swap returned %q, want %q", old, "hello")
	}
	if got := g.Get(); got != "world" {
		t.Errorf("Get() after Swap = %q, want %q", got, "world")
	}
}

func TestGuardRead(t *testing.T) {
	g := NewGuard([]int{1, 2, 3})

	if got := Read(g, func(v []int) int { return len(v) }); got != 3 {
		t.Errorf("Read() = %d, want 3", got)
	}
}

func TestGuardUpdate(t *testing.T) {
	g := NewGuard(10)

	old := Update(g, func(v *int) int {
		prev := *v
		*v = 20
		return prev
	})

	if old != 10 {
		t.Errorf("Update returned %d, want 10", old)
	}
	if got := g.Get(); got != 20 {
		t.Errorf("Get() = %d, want 20", got)
	}
}

func TestGuardSnapshotPointer(t *testing.T) {
	type snapshot struct{ engines []string }
	g := NewGuard(&snapshot{engines: []string{"a"}})

	held := g.Get()
	g.Set(&snapshot{engines: []string{"b", "c"}})

	if len(held.engines) != 1 || held.engines[0] != "a" {
		t.Errorf("held snapshot = %v, want [a]", held.engines)
	}
	if got := len(g.Get().engines); got != 2 {
		t.Errorf("len(current engines) = %d, want 2", got)
	}
}

func TestGuardConcurrentSafety(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Write(func(v *int) { *v++ })
		}()
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}
	wg.Wait()

	if got := g.Get(); got != 100 {
		t.Errorf("Get() = %d, want 100", got)
	}
}
