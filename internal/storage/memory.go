// internal/storage/memory.go
//
// In-memory ObjectStore used by tests and local development.
package storage

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Memory is a mutex-guarded map ObjectStore.
type Memory struct {
	mu sync.RWMutex
	m  map[string]Object
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]Object, 32)}
}

func (s *Memory) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	_ = size // recorded from the actual bytes read
	s.mu.Lock()
	s.m[key] = Object{Body: b, ContentType: contentType, Size: int64(len(b))}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	obj, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := obj
	return &cp, nil
}

func (s *Memory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Memory) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored objects; test helper.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
