package utils

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	added := s.Add("1|a")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("1|a")
	if added {
		t.Error("second Add of same key should return false")
	}

	if !s.Contains("1|a") {
		t.Error("Contains should report an added key")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64

	pool := NewWorkerPool(10)
	for i := 0; i < 100; i++ {
		pool.Submit(func() error {
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const limit = 2
	pool := NewWorkerPool(limit)

	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			atomic.AddInt64(&running, -1)
			return nil
		})
	}
	_ = pool.Wait()

	if peak > limit {
		t.Errorf("peak concurrency: got %d, want <= %d", peak, limit)
	}
}

func TestWorkerPoolReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(1)
	boom := errors.New("boom")

	pool.Submit(func() error { return boom })
	pool.Submit(func() error { return nil })

	if err := pool.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait: got %v, want %v", err, boom)
	}
}
