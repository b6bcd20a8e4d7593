package history

import (
	"testing"
	"time"
)

func TestStoreSendText(t *testing.T) {
	s := NewStore(10, 10)
	s.SendText("Hello", false)
	s.SendText("Привет", true)

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", len(entries))
	}
	if entries[1].Text != "Привет" || !entries[1].Translation {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	ev := <-s.Events()
	if ev.Kind != EventText || ev.Text != "Hello" || ev.Translation {
		t.Errorf("first event = %+v", ev)
	}
}

func TestStoreMaxSize(t *testing.T) {
	s := NewStore(3, 10)
	for _, txt := range []string{"a", "b", "c", "d", "e"} {
		s.SendText(txt, true)
	}

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}
	if entries[0].Text != "c" || entries[2].Text != "e" {
		t.Errorf("entries = %+v, want c..e", entries)
	}
}

func TestStoreSince(t *testing.T) {
	s := NewStore(10, 10)
	now := time.Now()
	s.now = func() time.Time { return now.Add(-time.Minute) }
	s.SendText("old", true)
	s.now = func() time.Time { return now }
	s.SendText("new", true)

	got := s.Since(30)
	if len(got) != 1 || got[0].Text != "new" {
		t.Errorf("Since(30) = %+v, want [new]", got)
	}
	if got := s.Since(120); len(got) != 2 {
		t.Errorf("len(Since(120)) = %d, want 2", len(got))
	}
}

func TestStoreClearTexts(t *testing.T) {
	s := NewStore(10, 10)
	s.SendText("x", true)
	<-s.Events()

	s.ClearTexts()

	ev := <-s.Events()
	if ev.Kind != EventClear {
		t.Errorf("event kind = %q, want clear", ev.Kind)
	}
	if len(s.Entries()) != 1 {
		t.Error("ClearTexts should keep stored history")
	}
}

func TestStoreEmitNonBlocking(t *testing.T) {
	s := NewStore(10, 1)
	done := make(chan struct{})
	go func() {
		s.SendText("a", true)
		s.SendText("b", true)
		s.ClearTexts()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendText blocked on a full event buffer")
	}
}
