// Package history holds the in-memory clipboard history.
//
// The store is a recency stack: index 0 is always the entry that was most
// recently created or promoted. Entries are keyed for deduplication by their
// content bytes alone; type and timestamp play no part in equality.
package history

import (
	"bytes"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"
)

// ContentType tells how an entry's content is interpreted.
type ContentType string

const (
	Text  ContentType = "text"
	Image ContentType = "image"
)

// ID identifies an entry for the lifetime of the process. IDs are never reused.
type ID uint64

// ErrNotFound is returned when an operation names an entry that is not in
// the store. Under correct client usage this should not happen.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one recorded clipboard payload.
//
// Rich is set when Text content is HTML: it came from the clipboard's rich
// text slot or was confirmed through the rich-text editor. Plain entries are
// written and shown verbatim, whatever characters they contain.
type Entry struct {
	ID        ID          `json:"id"`
	Type      ContentType `json:"type"`
	Rich      bool        `json:"rich,omitempty"`
	Content   []byte      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store owns every Entry. Callers only ever see copies.
type Store struct {
	mu      sync.RWMutex
	entries []*Entry // most recent first
	nextID  ID
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upsert records a freshly observed payload. If an entry with byte-identical
// content exists it is promoted to the top with a refreshed timestamp and
// returned; otherwise a new entry is created at the top. rich records the
// slot of the latest observation, so a promoted entry is written back the
// way it was last copied.
func (s *Store) Upsert(content []byte, typ ContentType, rich bool) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if i := s.indexOfContentLocked(content); i >= 0 {
		e := s.entries[i]
		e.Timestamp = now
		e.Rich = rich && e.Type == Text
		s.moveToFrontLocked(i)
		return e.clone()
	}

	s.nextID++
	e := &Entry{
		ID:        s.nextID,
		Type:      typ,
		Rich:      rich && typ == Text,
		Content:   bytes.Clone(content),
		Timestamp: now,
	}
	s.entries = slices.Insert(s.entries, 0, e)
	return e.clone()
}

// Remove drops the entry with the given id.
func (s *Store) Remove(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfIDLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return nil
}

// Clear empties the store and reports how many entries were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = nil
	return n
}

// PromoteAndEdit replaces an entry's content, type and rich flag, refreshes its
// timestamp and moves it to the top. The entry keeps its ID. Any other entry
// that already held the new content is dropped so content stays unique.
func (s *Store) PromoteAndEdit(id ID, content []byte, typ ContentType, rich bool) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfIDLocked(id)
	if i < 0 {
		return Entry{}, ErrNotFound
	}
	e := s.entries[i]
	e.Content = bytes.Clone(content)
	e.Type = typ
	e.Rich = rich && typ == Text
	e.Timestamp = s.now()
	s.moveToFrontLocked(i)

	s.entries = slices.DeleteFunc(s.entries, func(other *Entry) bool {
		return other != e && bytes.Equal(other.Content, e.Content)
	})
	return e.clone(), nil
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id ID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOfIDLocked(id)
	if i < 0 {
		return Entry{}, false
	}
	return s.entries[i].clone(), true
}

// Top returns the most recent entry, if any.
func (s *Store) Top() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0].clone(), true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a snapshot of the history, most recent first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// All iterates over a snapshot of the history, most recent first.
func (s *Store) All() iter.Seq[Entry] {
	snapshot := s.Entries()
	return func(yield func(Entry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// Must be called with s.mu held.
func (s *Store) moveToFrontLocked(i int) {
	if i == 0 {
		return
	}
	e := s.entries[i]
	copy(s.entries[1:i+1], s.entries[:i])
	s.entries[0] = e
}

func (s *Store) indexOfContentLocked(content []byte) int {
	return slices.IndexFunc(s.entries, func(e *Entry) bool {
		return bytes.Equal(e.Content, content)
	})
}

func (s *Store) indexOfIDLocked(id ID) int {
	return slices.IndexFunc(s.entries, func(e *Entry) bool { return e.ID == id })
}

func (e *Entry) clone() Entry {
	c := *e
	c.Content = bytes.Clone(e.Content)
	return c
}
