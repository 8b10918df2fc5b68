package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func lockerContract(t *testing.T, locker KeyLocker) {
	ctx := context.Background()

	t.Run("serializes one key", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			inside  int
			maxSeen int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "stories/a.json")
				if err != nil {
					t.Errorf("Lock failed: %v", err)
					return
				}
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				unlock()
			}()
		}
		wg.Wait()
		if maxSeen != 1 {
			t.Errorf("Expected at most one holder, saw %d", maxSeen)
		}
	})

	t.Run("different keys do not block", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, "stories/a.json")
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}
		defer unlockA()

		tctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		unlockB, err := locker.Lock(tctx, "stories/b.json")
		if err != nil {
			t.Fatalf("Lock on another key blocked: %v", err)
		}
		unlockB()
	})

	t.Run("context cancels wait", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "stories/c.json")
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}
		defer unlock()

		tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		if _, err := locker.Lock(tctx, "stories/c.json"); err == nil {
			t.Error("Expected lock wait to fail once the context expires")
		}
	})
}

func TestMutexLocker(t *testing.T) {
	locker := NewMutexLocker()
	lockerContract(t, locker)

	if n := locker.held(); n != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", n)
	}
}

func TestMutexLocker_UnlockTwice(t *testing.T) {
	locker := NewMutexLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err = locker.Lock(ctx, "k")
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("Double unlock corrupted the lock")
	}
	unlock()
}

func TestFileLocker(t *testing.T) {
	locker, err := NewFileLocker(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLocker failed: %v", err)
	}
	lockerContract(t, locker)
}

func TestFileLocker_SeparateInstancesShareRoot(t *testing.T) {
	root := t.TempDir()
	first, _ := NewFileLocker(root)
	second, _ := NewFileLocker(root)

	unlock, err := first.Lock(context.Background(), "stories/a.json")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := second.Lock(ctx, "stories/a.json"); err == nil {
		t.Error("Second locker acquired a key held by the first")
	}

	unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	unlock2, err := second.Lock(ctx2, "stories/a.json")
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	unlock2()
}
