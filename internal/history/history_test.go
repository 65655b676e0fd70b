package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances one second per call.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore() (*Store, *fakeClock) {
	c := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(c.Now)), c
}

func contents(s *Store) []string {
	var out []string
	for e := range s.All() {
		out = append(out, string(e.Content))
	}
	return out
}

func TestUpsertIdenticalContentPromotes(t *testing.T) {
	t.Parallel()
	s, c := newTestStore()

	first := s.Upsert([]byte("hello"), Text, false)
	s.Upsert([]byte("other"), Text, false)
	second := s.Upsert([]byte("hello"), Text, false)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, c.t, second.Timestamp)
	assert.True(t, second.Timestamp.After(first.Timestamp))

	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, first.ID, top.ID)
}

func TestUpsertDistinctContentsMostRecentFirst(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	a := s.Upsert([]byte("a"), Text, false)
	b := s.Upsert([]byte("b"), Text, false)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, a.ID, entries[1].ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpsertDedupIgnoresType(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	first := s.Upsert([]byte{0x89, 'P', 'N', 'G'}, Image, false)
	again := s.Upsert([]byte{0x89, 'P', 'N', 'G'}, Text, false)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, Image, again.Type)
}

func TestMixedScenarioKeepsTwoEntries(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	hello := s.Upsert([]byte("hello"), Text, false)
	img := s.Upsert([]byte{1, 2, 3}, Image, false)
	s.Upsert([]byte("hello"), Text, false)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, hello.ID, entries[0].ID)
	assert.Equal(t, Text, entries[0].Type)
	assert.Equal(t, img.ID, entries[1].ID)
	assert.Equal(t, Image, entries[1].Type)
	assert.Equal(t, []byte{1, 2, 3}, entries[1].Content)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	a := s.Upsert([]byte("a"), Text, false)
	s.Upsert([]byte("b"), Text, false)

	require.NoError(t, s.Remove(a.ID))
	assert.Equal(t, []string{"b"}, contents(s))

	_, ok := s.Get(a.ID)
	assert.False(t, ok)
}

func TestRemoveUnknownID(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()
	s.Upsert([]byte("a"), Text, false)

	err := s.Remove(42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestClear(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()
	for _, c := range []string{"a", "b", "c"} {
		s.Upsert([]byte(c), Text, false)
	}

	assert.Equal(t, 3, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Entries())
	_, ok := s.Top()
	assert.False(t, ok)

	// IDs keep increasing after a clear.
	e := s.Upsert([]byte("a"), Text, false)
	assert.Equal(t, ID(4), e.ID)
}

func TestPromoteAndEditImageBecomesText(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	img := s.Upsert([]byte{9, 9, 9}, Image, false)
	s.Upsert([]byte("later"), Text, false)

	edited, err := s.PromoteAndEdit(img.ID, []byte("<p>caption</p>"), Text, true)
	require.NoError(t, err)
	assert.Equal(t, img.ID, edited.ID)
	assert.Equal(t, Text, edited.Type)
	assert.True(t, edited.Rich)
	assert.True(t, edited.Timestamp.After(img.Timestamp))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, img.ID, entries[0].ID)
	assert.Equal(t, "<p>caption</p>", string(entries[0].Content))
	for _, e := range entries {
		assert.NotEqual(t, []byte{9, 9, 9}, e.Content)
	}
}

func TestUpsertRecordsLatestSlot(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	plain := s.Upsert([]byte("Vec<String>"), Text, false)
	assert.False(t, plain.Rich)

	rich := s.Upsert([]byte("Vec<String>"), Text, true)
	assert.Equal(t, plain.ID, rich.ID)
	assert.True(t, rich.Rich)

	img := s.Upsert([]byte{1, 2}, Image, true)
	assert.False(t, img.Rich, "only text can be rich")
}

func TestPromoteAndEditMergesDuplicate(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	a := s.Upsert([]byte("a"), Text, false)
	s.Upsert([]byte("b"), Text, false)

	_, err := s.PromoteAndEdit(a.ID, []byte("b"), Text, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, contents(s))

	top, _ := s.Top()
	assert.Equal(t, a.ID, top.ID)
}

func TestPromoteAndEditUnknownID(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	_, err := s.PromoteAndEdit(7, []byte("x"), Text, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()
	s.Upsert([]byte("abc"), Text, false)

	snap := s.Entries()
	snap[0].Content[0] = 'X'

	assert.Equal(t, []string{"abc"}, contents(s))
}

func TestUpsertCopiesInput(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	buf := []byte("abc")
	s.Upsert(buf, Text, false)
	buf[0] = 'X'

	assert.Equal(t, []string{"abc"}, contents(s))
}

func TestAllStopsEarly(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()
	for _, c := range []string{"a", "b", "c"} {
		s.Upsert([]byte(c), Text, false)
	}

	var seen []string
	for e := range s.All() {
		seen = append(seen, string(e.Content))
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"c", "b"}, seen)
}
