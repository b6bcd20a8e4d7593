// Package history keeps the recent pipeline output and streams it to listeners.
package history

import (
	"sync"
	"time"
)

// EventKind distinguishes text from clear events.
type EventKind string

const (
	EventText  EventKind = "text"
	EventClear EventKind = "clear"
)

// Event is one output notification.
type Event struct {
	Kind        EventKind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Translation bool      `json:"translation"`
	Timestamp   time.Time `json:"timestamp"`
}

// Entry is a stored text.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Text        string    `json:"text"`
	Translation bool      `json:"translation"`
}

// Store is an output channel that remembers the last maxEntries texts.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	maxSize  int
	eventsCh chan Event
	now      func() time.Time
}

// NewStore creates a store. Events beyond eventBuffer are dropped.
func NewStore(maxEntries, eventBuffer int) *Store {
	return &Store{
		entries:  make([]Entry, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan Event, eventBuffer),
		now:      time.Now,
	}
}

// SendText records text and emits a text event.
func (s *Store) SendText(text string, isTranslation bool) {
	now := s.now()
	s.mu.Lock()
	s.entries = append(s.entries, Entry{Timestamp: now, Text: text, Translation: isTranslation})
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventText, Text: text, Translation: isTranslation, Timestamp: now})
}

// ClearTexts emits a clear event. Stored history is kept.
func (s *Store) ClearTexts() {
	s.emit(Event{Kind: EventClear, Timestamp: s.now()})
}

// Since returns entries from the last seconds seconds, oldest first.
func (s *Store) Since(seconds int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-time.Duration(seconds) * time.Second)
	var result []Entry
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result
}

// Entries returns a copy of all entries.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Entry, len(s.entries))
	copy(result, s.entries)
	return result
}

// Events returns the event stream.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

func (s *Store) emit(event Event) {
	select {
	case s.eventsCh <- event:
	default:
	}
}
