package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	order []string
	docs  map[string]Fields
}

// MemoryStore implements Store with in-memory storage. Subscriptions are
// notified after every successful write.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	newID       func() string
	closed      bool

	hub *hub
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithIDFunc overrides the id generator (useful in tests).
func WithIDFunc(fn func() string) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewMemoryStore creates an empty in-memory document store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memCollection),
		newID:       uuid.NewString,
		hub:         newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed inserts documents without going through validation and returns their ids.
func (s *MemoryStore) Seed(collection string, docs ...Fields) []string {
	ids := make([]string, 0, len(docs))
	s.mu.Lock()
	c := s.collection(collection)
	for _, f := range docs {
		id := s.newID()
		c.order = append(c.order, id)
		c.docs[id] = f.Clone()
		ids = append(ids, id)
	}
	s.mu.Unlock()

	s.hub.notify(collection)
	return ids
}

// collection must be called with mu held for writing.
func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Fields)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	c, ok := s.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Fields: c.docs[id].Clone()})
	}
	return docs, nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrStoreClosed
	}
	c := s.collection(collection)
	id := s.newID()
	c.order = append(c.order, id)
	c.docs[id] = fields.Clone()
	s.mu.Unlock()

	s.hub.notify(collection)
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := checkDocument(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	current, ok := c.docs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged := current.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	c.docs[id] = merged
	s.mu.Unlock()

	s.hub.notify(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkDocument(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, exists := c.docs[id]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.hub.notify(collection)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, onChange func(Snapshot)) (Unsubscribe, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if onChange == nil {
		return nil, ErrNilSubscriber
	}

	list := func(ctx context.Context) ([]Document, error) {
		return s.List(ctx, collection)
	}
	return s.hub.subscribe(ctx, collection, list, onChange), nil
}

// Close stops all subscriptions and rejects further calls.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.hub.close()
	return nil
}
