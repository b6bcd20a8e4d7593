package dedup

import (
	"testing"

	"github.com/google/uuid"
)

func TestIsCached(t *testing.T) {
	tr := New(MinScoreThreshold)
	if _, cached := tr.Check("hello world", 3, false); cached {
		t.Fatal("first reading should be new")
	}

	tests := []struct {
		text       string
		sequential bool
		want       bool
	}{
		{"", false, true},
		{"   ", false, true},
		{"hello world", false, true},
		{"hello world ", false, true},
		{"hello", false, false},
		{"hello", true, true},
		{"goodbye", true, false},
	}
	for _, tt := range tests {
		if got := tr.IsCached(tt.text, tt.sequential); got != tt.want {
			t.Errorf("IsCached(%q, %v) = %v, want %v", tt.text, tt.sequential, got, tt.want)
		}
	}
}

func TestCheckScoreGate(t *testing.T) {
	tr := New(MinScoreThreshold)

	for _, score := range []float64{0, 1, MinScoreThreshold} {
		id, cached := tr.Check("some text", score, false)
		if cached || id != uuid.Nil {
			t.Errorf("Check(score=%v) = (%v, %v), want (Nil, false)", score, id, cached)
		}
	}
	if tr.IsCached("some text", false) {
		t.Error("gated reading must not become the last accepted text")
	}
}

func TestCheckAllocatesIterationID(t *testing.T) {
	tr := New(MinScoreThreshold)

	id1, cached := tr.Check("first line", 3, false)
	if cached || id1 == uuid.Nil {
		t.Fatalf("Check() = (%v, %v), want fresh id", id1, cached)
	}
	if _, cached := tr.Check("first line", 3, false); !cached {
		t.Error("repeat should be cached")
	}
	id2, _ := tr.Check("second line", 3, false)
	if id2 == id1 || id2 == uuid.Nil {
		t.Errorf("second id = %v, want new id", id2)
	}
	if got := tr.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
}

func TestIsTranslatedCached(t *testing.T) {
	tr := New(MinScoreThreshold)
	id1, _ := tr.Check("chat", 3, false)
	id2, _ := tr.Check("dog", 3, false)

	if tr.IsTranslatedCached("", id1) != true {
		t.Error("blank translation should be cached")
	}
	if tr.IsTranslatedCached("кот", id1) {
		t.Error("first translation should pass")
	}
	if !tr.IsTranslatedCached("кот", id2) {
		t.Error("same translation from another iteration should be suppressed")
	}
	if !tr.IsTranslatedCached("другое", id1) {
		t.Error("an iteration may emit only once")
	}
	if tr.IsTranslatedCached("собака", id2) {
		t.Error("new translation for a pending iteration should pass")
	}
	if got := tr.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestStaleIDsAreTreatedAsNew(t *testing.T) {
	tr := New(MinScoreThreshold)
	id, _ := tr.Check("old text", 3, false)

	for i := 0; i <= StaleAfter; i++ {
		tr.EndIteration()
	}
	if got := tr.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want stale id pruned", got)
	}
	if tr.IsTranslatedCached("late translation", id) {
		t.Error("stale id should be judged by text only")
	}
}

func TestReset(t *testing.T) {
	tr := New(MinScoreThreshold)
	id, _ := tr.Check("text", 3, false)
	tr.IsTranslatedCached("текст", id)

	tr.Reset()

	if tr.IsCached("text", false) {
		t.Error("Reset should forget the last text")
	}
	if tr.IsTranslatedCached("текст", uuid.New()) {
		t.Error("Reset should forget the last translation")
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		prev, text, want string
	}{
		{"Hello", "Hello world", " world"},
		{"Hello world", "Hello world", ""},
		{"", "Hello", "Hello"},
		{"   ", "Hello", "Hello"},
		{"abc", "xyz", "xyz"},
		{"ab", "ab ab ", ""},
	}
	for _, tt := range tests {
		if got := Diff(tt.prev, tt.text); got != tt.want {
			t.Errorf("Diff(%q, %q) = %q, want %q", tt.prev, tt.text, got, tt.want)
		}
	}
}

func TestIsTruncation(t *testing.T) {
	tests := []struct {
		prev, text string
		want       bool
	}{
		{"hello world again", "world again", true},
		{"hello world", "hello worl", false},
		{"hello world", "hello wo", false},
		{"hello world", "hello ", true},
		{"привет мир", "мир", true},
		{"hello", "", true},
		{"hey", "  ", false},
	}
	for _, tt := range tests {
		if got := IsTruncation(tt.prev, tt.text); got != tt.want {
			t.Errorf("IsTruncation(%q, %q) = %v, want %v", tt.prev, tt.text, got, tt.want)
		}
	}
}
