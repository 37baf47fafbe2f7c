package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"routinekeeper/internal/errs"
)

// MemoryStore is an in-memory DocumentStore. It backs tests and can fail
// the next N writes on demand to exercise rollback paths.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string][]byte
	failErr  error
	failLeft int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string][]byte)}
}

// FailWrites makes the next n Create/Update/Delete calls return err.
func (m *MemoryStore) FailWrites(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLeft = n
	m.failErr = err
}

func (m *MemoryStore) consumeFailure() error {
	if m.failLeft > 0 {
		m.failLeft--
		return m.failErr
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.docs[collection]
	if !ok {
		return nil, errs.ErrNotFound
	}
	doc, ok := coll[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.docs[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		doc := make([]byte, len(coll[id]))
		copy(doc, coll[id])
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.consumeFailure(); err != nil {
		return err
	}
	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string][]byte)
		m.docs[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return fmt.Errorf("duplicate key %s/%s", collection, id)
	}
	coll[id] = body
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.consumeFailure(); err != nil {
		return err
	}
	coll, ok := m.docs[collection]
	if !ok {
		return errs.ErrNotFound
	}
	if _, exists := coll[id]; !exists {
		return errs.ErrNotFound
	}
	coll[id] = body
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.consumeFailure(); err != nil {
		return err
	}
	coll, ok := m.docs[collection]
	if !ok {
		return errs.ErrNotFound
	}
	if _, exists := coll[id]; !exists {
		return errs.ErrNotFound
	}
	delete(coll, id)
	return nil
}
