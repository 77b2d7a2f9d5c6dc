package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryArchive is an in-memory implementation of Archive.
type MemoryArchive struct {
	objects map[string]memoryObject
	mu      sync.RWMutex
}

// NewMemoryArchive creates a new instance of MemoryArchive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		objects: make(map[string]memoryObject),
	}
}

// Store keeps a copy of body under key.
func (a *MemoryArchive) Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read upload body: %w", err)
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

// Retrieve returns the object stored under key.
func (a *MemoryArchive) Retrieve(ctx context.Context, key string) (*Object, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	obj, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("retrieve %s: %w", key, ErrNotFound)
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

// Delete removes key; deleting a missing key is not an error.
func (a *MemoryArchive) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
