package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/story-cms-api/internal/models"
)

type memoryDoc struct {
	data    []byte
	modTime time.Time
}

// MemoryStore keeps encoded documents in a map. Documents are still
// serialized on every write so that tests observe the same decode failures
// and copy semantics as the persistent backends.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
	now  func() time.Time
}

var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		docs: make(map[string]memoryDoc),
		now:  o.now,
	}
}

// Exists checks if a document is stored under key
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[key]
	return ok, nil
}

// Read decodes the document stored under key
func (s *MemoryStore) Read(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.RLock()
	d, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	return decodeDocument(key, d.data, doc)
}

// Write stores doc under key
func (s *MemoryStore) Write(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = memoryDoc{data: data, modTime: s.now()}
	return nil
}

// Create stores doc under key unless the key is taken
func (s *MemoryStore) Create(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; ok {
		return fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
	}
	s.docs[key] = memoryDoc{data: data, modTime: s.now()}
	return nil
}

// Archive moves the document under key into the archive namespace
func (s *MemoryStore) Archive(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	archiveKey := ArchiveKey(key, s.now())
	if _, taken := s.docs[archiveKey]; taken {
		return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, archiveKey)
	}
	s.docs[archiveKey] = d
	delete(s.docs, key)
	return archiveKey, nil
}

// List returns the documents directly inside namespace
func (s *MemoryStore) List(ctx context.Context, namespace string) ([]Entry, error) {
	prefix := namespacePrefix(namespace)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0)
	for key, d := range s.docs {
		if isDirectChild(prefix, key) {
			entries = append(entries, Entry{Key: key, ModTime: d.modTime})
		}
	}
	return entries, nil
}

// Raw returns a copy of the encoded bytes under key, for tests
func (s *MemoryStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out, true
}

// PutRaw stores raw bytes under key, for tests that need legacy or corrupt documents
func (s *MemoryStore) PutRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = memoryDoc{data: data, modTime: s.now()}
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}
