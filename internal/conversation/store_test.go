package conversation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memBackend struct {
	records map[string][]byte
	puts    int
	putErr  error
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string][]byte)}
}

func (m *memBackend) Get(key string) ([]byte, error) {
	v, ok := m.records[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return v, nil
}

func (m *memBackend) Put(key string, value []byte) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func fixedClock() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestStore_CreatePrependsAndSelects(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b, WithClock(fixedClock))

	first := s.Create()
	second := s.Create()

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
	require.Equal(t, DefaultTitle, second.Title)
	require.Empty(t, second.Messages)
	require.Equal(t, fixedClock(), second.CreatedAt)

	cur, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, second.ID, cur.ID)
	require.Equal(t, 2, b.puts)
}

func TestStore_CreateThenDeleteRestoresCollection(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b, WithClock(fixedClock))
	existing := s.Create()
	before := s.List()
	beforeBytes := string(b.records[CollectionKey])

	c := s.Create()
	s.Delete(c.ID)

	require.Equal(t, before, s.List())
	require.Equal(t, beforeBytes, string(b.records[CollectionKey]))
	cur, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, existing.ID, cur.ID)
}

func TestStore_DeleteCurrentSelectsHeadOrNone(t *testing.T) {
	s := NewStore(newMemBackend())
	a := s.Create()
	b := s.Create()

	require.True(t, s.Select(a.ID))
	s.Delete(a.ID)
	cur, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, b.ID, cur.ID)

	s.Delete(b.ID)
	_, ok = s.Current()
	require.False(t, ok)
	require.Empty(t, s.List())
}

func TestStore_DeleteNonCurrentKeepsCurrent(t *testing.T) {
	s := NewStore(newMemBackend())
	a := s.Create()
	b := s.Create()
	s.Delete(a.ID)
	cur, _ := s.Current()
	require.Equal(t, b.ID, cur.ID)
}

func TestStore_DeleteUnknownIsNoop(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b)
	s.Create()
	puts := b.puts
	s.Delete("missing")
	require.Equal(t, puts, b.puts)
	require.Len(t, s.List(), 1)
}

func TestStore_AppendTurnReplacesAndRetitles(t *testing.T) {
	s := NewStore(newMemBackend())
	c := s.Create()

	msgs := []Message{
		NewMessage(RoleUser, "How do I center a div in CSS without flexbox?", "gemini"),
		NewMessage(RoleAssistant, "Use margin: auto.", "gemini"),
	}
	s.AppendTurn(c.ID, msgs)

	got, ok := s.Get(c.ID)
	require.True(t, ok)
	require.Equal(t, msgs, got.Messages)
	require.Equal(t, "How do I center a div in CSS w", got.Title)

	s.AppendTurn(c.ID, msgs[:0])
	got, _ = s.Get(c.ID)
	require.Empty(t, got.Messages)
	require.Equal(t, DefaultTitle, got.Title)
}

func TestStore_AppendTurnUnknownIDLeavesStorageUntouched(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b)
	c := s.Create()
	s.AppendTurn(c.ID, []Message{NewMessage(RoleUser, "hi", "deepseek")})

	before := string(b.records[CollectionKey])
	puts := b.puts
	list := s.List()

	s.AppendTurn("unknown", []Message{NewMessage(RoleUser, "x", "")})

	require.Equal(t, before, string(b.records[CollectionKey]))
	require.Equal(t, puts, b.puts)
	require.Equal(t, list, s.List())
}

func TestStore_Append(t *testing.T) {
	s := NewStore(newMemBackend())
	c := s.Create()
	u := NewMessage(RoleUser, "first", "gemini")
	a := NewMessage(RoleAssistant, "second", "gemini")

	got, ok := s.Append(c.ID, u)
	require.True(t, ok)
	require.Equal(t, []Message{u}, got.Messages)
	got, ok = s.Append(c.ID, a)
	require.True(t, ok)
	require.Equal(t, []Message{u, a}, got.Messages)
	require.Equal(t, "first", got.Title)

	_, ok = s.Append("missing", a)
	require.False(t, ok)
}

func TestStore_LoadRoundTrip(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b, WithClock(fixedClock))
	older := s.Create()
	newer := s.Create()
	s.AppendTurn(older.ID, []Message{NewMessage(RoleUser, "hello", "gemini")})

	fresh := NewStore(b)
	loaded := fresh.Load()
	require.Len(t, loaded, 2)
	require.Equal(t, newer.ID, loaded[0].ID)
	require.Equal(t, "hello", loaded[1].Title)
	require.Equal(t, fixedClock(), loaded[0].CreatedAt)

	cur, ok := fresh.Current()
	require.True(t, ok)
	require.Equal(t, newer.ID, cur.ID)
}

func TestStore_LoadCorruptOrMissingIsEmpty(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b)
	require.Empty(t, s.Load())

	b.records[CollectionKey] = []byte("{not json")
	require.Empty(t, s.Load())
	_, ok := s.Current()
	require.False(t, ok)

	b.records[CollectionKey] = []byte(`{"id":"object-not-array"}`)
	require.Empty(t, s.Load())
}

func TestStore_FlushFailureDoesNotBreakMutation(t *testing.T) {
	b := newMemBackend()
	b.putErr = errors.New("disk full")
	s := NewStore(b)
	c := s.Create()
	_, ok := s.Get(c.ID)
	require.True(t, ok)
	require.Error(t, s.Flush())
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore(newMemBackend())
	c := s.Create()
	s.AppendTurn(c.ID, []Message{NewMessage(RoleUser, "original", "")})

	got, _ := s.Get(c.ID)
	got.Messages[0].Content = "mutated"

	again, _ := s.Get(c.ID)
	require.Equal(t, "original", again.Messages[0].Content)
}

func TestTitle(t *testing.T) {
	require.Equal(t, DefaultTitle, Title(nil))
	require.Equal(t, DefaultTitle, Title([]Message{{Content: "   "}}))
	require.Equal(t, "short", Title([]Message{{Content: "short"}}))

	long := strings.Repeat("\u00e9", 40)
	require.Equal(t, strings.Repeat("\u00e9", 30), Title([]Message{{Content: long}}))

	// e + combining acute is composed before cutting
	decomposed := strings.Repeat("e\u0301", 31)
	require.Equal(t, strings.Repeat("\u00e9", 30), Title([]Message{{Content: decomposed}}))
}

func TestNewMessage_IDsAreOrdered(t *testing.T) {
	a := NewMessage(RoleUser, "a", "")
	b := NewMessage(RoleUser, "b", "")
	require.NotEqual(t, a.ID, b.ID)
	require.Less(t, a.ID, b.ID)
}
