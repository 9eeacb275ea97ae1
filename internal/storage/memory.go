package storage

import (
	"context"
	"sync"

	"github.com/starford/devtally/internal/models"
)

// Memory implements Provider in process memory. Documents are deep-copied on
// the way in and out so callers never share state with the store.
type Memory struct {
	mu  sync.Mutex
	doc models.Document
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{doc: models.Document{}}
}

// Load returns a copy of the stored document.
func (m *Memory) Load(_ context.Context) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone(), nil
}

// Save replaces the stored document with a copy of doc.
func (m *Memory) Save(_ context.Context, doc models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	return nil
}
