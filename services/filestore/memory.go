package filestore

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

// MemoryObject is a file kept by the in-memory store.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps files in memory, for tests & local runs without an object store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
	baseURL string
}

var _ core.FileStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject), baseURL: baseURL}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading object %s", key)
	}
	s.mu.Lock()
	s.objects[key] = MemoryObject{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DownloadURL(_ context.Context, key, filename string) (string, error) {
	if _, ok := s.Object(key); !ok {
		return "", errors.Errorf("object %s not found", key)
	}
	return s.PublicURL(key) + "?filename=" + url.QueryEscape(filename), nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *MemoryStore) Object(key string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
