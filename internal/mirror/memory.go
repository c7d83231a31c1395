package mirror

import (
	"context"
	"maps"
	"sync"
)

// MemoryMirror is an in-process Mirror used in development and tests.
type MemoryMirror struct {
	mu   sync.Mutex
	docs map[string]map[string]map[string]any
}

// NewMemoryMirror returns an empty MemoryMirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{docs: make(map[string]map[string]map[string]any)}
}

func (m *MemoryMirror) Set(_ context.Context, collection, id string, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.docs[collection] = coll
	}
	coll[id] = maps.Clone(doc)
	return nil
}

func (m *MemoryMirror) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return ErrDocumentMissing
	}
	maps.Copy(doc, fields)
	return nil
}

func (m *MemoryMirror) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *MemoryMirror) Close(context.Context) error { return nil }

// Get returns a copy of a document, or nil if absent.
func (m *MemoryMirror) Get(collection, id string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil
	}
	return maps.Clone(doc)
}

// Len returns the number of documents in a collection.
func (m *MemoryMirror) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}
