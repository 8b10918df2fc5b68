package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// KeyLocker serializes read-modify-write sequences on a single key.
// The returned unlock func must be called exactly once, on every exit path.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// MutexLocker is an in-process lock per key. Entries are dropped once no
// goroutine holds or waits for them.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

var _ KeyLocker = (*MutexLocker)(nil)

// NewMutexLocker creates an empty lock table
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (m *MutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(key, l)
		})
	}, nil
}

func (m *MutexLocker) release(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// held returns the number of keys currently tracked, for tests
func (m *MutexLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// FileLocker adds an advisory flock per key on top of the in-process lock so
// that several processes sharing one data directory serialize as well.
// Lock files live in <root>/.locks and are never removed: deleting a lock
// file while another process waits on it would split the lock.
type FileLocker struct {
	dir        string
	local      *MutexLocker
	retryDelay time.Duration
}

var _ KeyLocker = (*FileLocker)(nil)

// NewFileLocker creates the lock directory below root
func NewFileLocker(root string) (*FileLocker, error) {
	dir := filepath.Join(root, ".locks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &FileLocker{
		dir:        dir,
		local:      NewMutexLocker(),
		retryDelay: 10 * time.Millisecond,
	}, nil
}

// Lock acquires the in-process lock, then the file lock
func (f *FileLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := f.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	name := strings.NewReplacer("/", "__", ".", "_").Replace(key) + ".lock"
	fl := flock.New(filepath.Join(f.dir, name))
	ok, err := fl.TryLockContext(ctx, f.retryDelay)
	if err != nil || !ok {
		unlockLocal()
		if err == nil {
			err = fmt.Errorf("could not lock %s", key)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fl.Unlock()
			unlockLocal()
		})
	}, nil
}
