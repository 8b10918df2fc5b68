package mocks

import (
	"context"
	"sync"

	"github.com/story-cms-api/internal/storage"
)

// FaultyStore wraps a DocumentStore and fails selected operations
type FaultyStore struct {
	storage.DocumentStore

	mu         sync.Mutex
	ReadErr    error
	WriteErr   error
	CreateErr  error
	ArchiveErr error
	ListErr    error
	Calls      map[string]int
}

// Verify interface compliance
var _ storage.DocumentStore = (*FaultyStore)(nil)

func NewFaultyStore(inner storage.DocumentStore) *FaultyStore {
	return &FaultyStore{
		DocumentStore: inner,
		Calls:         make(map[string]int),
	}
}

func (f *FaultyStore) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
}

// CallCount returns how often op was called
func (f *FaultyStore) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FaultyStore) Exists(ctx context.Context, key string) (bool, error) {
	f.record("exists")
	return f.DocumentStore.Exists(ctx, key)
}

func (f *FaultyStore) Read(ctx context.Context, key string, doc interface{}) error {
	f.record("read")
	if f.ReadErr != nil {
		return f.ReadErr
	}
	return f.DocumentStore.Read(ctx, key, doc)
}

func (f *FaultyStore) Write(ctx context.Context, key string, doc interface{}) error {
	f.record("write")
	if f.WriteErr != nil {
		return f.WriteErr
	}
	return f.DocumentStore.Write(ctx, key, doc)
}

func (f *FaultyStore) Create(ctx context.Context, key string, doc interface{}) error {
	f.record("create")
	if f.CreateErr != nil {
		return f.CreateErr
	}
	return f.DocumentStore.Create(ctx, key, doc)
}

func (f *FaultyStore) Archive(ctx context.Context, key string) (string, error) {
	f.record("archive")
	if f.ArchiveErr != nil {
		return "", f.ArchiveErr
	}
	return f.DocumentStore.Archive(ctx, key)
}

func (f *FaultyStore) List(ctx context.Context, namespace string) ([]storage.Entry, error) {
	f.record("list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.DocumentStore.List(ctx, namespace)
}
