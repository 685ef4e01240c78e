package storage

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StorageClient = (*Memory)(nil)

// Memory keeps objects in process memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// PutObject stores a copy of content.
func (m *Memory) PutObject(_ context.Context, key domain.ObjectKey, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key.Digest()] = slices.Clone(content)
	return nil
}

// GetObject returns a copy of the stored content.
func (m *Memory) GetObject(_ context.Context, key domain.ObjectKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key.Digest()]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrObjectNotFound, "missing object"), "key", key.String())
	}
	return slices.Clone(data), nil
}

// ObjectExists reports whether key is stored.
func (m *Memory) ObjectExists(_ context.Context, key domain.ObjectKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key.Digest()]
	return ok, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
