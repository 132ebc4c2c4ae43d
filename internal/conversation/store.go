package conversation

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/halilintar-go/internal/logger"
)

// CollectionKey is the durable record holding the whole collection.
const CollectionKey = "conversations"

// Backend is durable key/value storage.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Store is the conversation collection, newest first, with at most one
// current conversation. Every mutation is flushed to the backend in full.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time

	convs   []Conversation
	current string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory collection with the durable one. Missing or
// corrupt storage yields an empty collection. The head becomes current.
func (s *Store) Load() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = nil
	s.current = ""

	data, err := s.backend.Get(CollectionKey)
	if err != nil {
		logger.L.Debug("no stored conversations", "error", err)
		return nil
	}
	var convs []Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		logger.L.Warn("stored conversations unreadable; starting empty", "error", err)
		return nil
	}
	s.convs = convs
	if len(convs) > 0 {
		s.current = convs[0].ID
	}
	return s.snapshot()
}

// Flush writes the whole collection.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Store) flush() error {
	convs := s.convs
	if convs == nil {
		convs = []Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.backend.Put(CollectionKey, data); err != nil {
		return fmt.Errorf("store conversations: %w", err)
	}
	return nil
}

func (s *Store) mutated(op string) {
	if err := s.flush(); err != nil {
		logger.L.Error("conversation flush failed", "op", op, "error", err)
	}
}

// Create prepends a new empty conversation and makes it current.
func (s *Store) Create() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Conversation{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: s.now().UTC(),
	}
	s.convs = slices.Insert(s.convs, 0, c)
	s.current = c.ID
	s.mutated("create")
	return c.clone()
}

// AppendTurn replaces the message list of id wholesale and recomputes the
// title. An unknown id is a caller bug and is ignored.
func (s *Store) AppendTurn(id string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		logger.L.Debug("append to unknown conversation ignored", "conversation", id)
		return
	}
	s.convs[i].Messages = slices.Clone(msgs)
	s.convs[i].Title = Title(msgs)
	s.mutated("append")
}

// Append adds msgs after the current messages of id and returns the result.
func (s *Store) Append(id string, msgs ...Message) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Conversation{}, false
	}
	next := append(slices.Clone(s.convs[i].Messages), msgs...)
	s.convs[i].Messages = next
	s.convs[i].Title = Title(next)
	s.mutated("append")
	return s.convs[i].clone(), true
}

// Delete removes id. When it was current, the new head becomes current.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	s.convs = slices.Delete(s.convs, i, i+1)
	if s.current == id {
		s.current = ""
		if len(s.convs) > 0 {
			s.current = s.convs[0].ID
		}
	}
	s.mutated("delete")
}

// Select makes id current if it exists.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(id) < 0 {
		return false
	}
	s.current = id
	return true
}

// Current returns the current conversation, if any.
func (s *Store) Current() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(s.current)
	if i < 0 {
		return Conversation{}, false
	}
	return s.convs[i].clone(), true
}

func (s *Store) Get(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return Conversation{}, false
	}
	return s.convs[i].clone(), true
}

// List returns a copy of the collection, newest first.
func (s *Store) List() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Conversation {
	out := make([]Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.clone()
	}
	return out
}

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.convs, func(c Conversation) bool { return c.ID == id })
}
