package speechq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnqueueRunsInSubmissionOrder(t *testing.T) {
	q := New(16)
	defer q.Close()

	var (
		mu    sync.Mutex
		order []string
	)
	var waits []<-chan error
	for _, key := range []string{"a", "b", "c", "d"} {
		key := key
		waits = append(waits, q.Enqueue(key, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, key)
			mu.Unlock()
			return nil
		}))
	}
	for _, w := range waits {
		if err := <-w; err != nil {
			t.Fatalf("task error: %v", err)
		}
	}

	want := []string{"a", "b", "c", "d"}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	q := New(16)
	defer q.Close()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	var waits []<-chan error
	for i := 0; i < 8; i++ {
		waits = append(waits, q.Enqueue("p", func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}))
	}
	for _, w := range waits {
		<-w
	}

	if maxSeen != 1 {
		t.Fatalf("observed %d concurrent tasks, want 1", maxSeen)
	}
}

func TestEnqueueDeliversTaskError(t *testing.T) {
	q := New(4)
	defer q.Close()

	boom := errors.New("synthesis failed")
	err := <-q.Enqueue("p", func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	// the channel is closed after the single send
	ch := q.Enqueue("p2", func(ctx context.Context) error { return nil })
	if err := <-ch; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("result channel not closed after delivery")
	}
}

func TestEnqueueAfterCloseReturnsError(t *testing.T) {
	q := New(4)
	if err := <-q.Enqueue("p", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("task error: %v", err)
	}
	q.Close()

	ch := q.Enqueue("late", func(ctx context.Context) error {
		t.Error("task ran on a closed queue")
		return nil
	})
	if err := <-ch; !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want %v", err, ErrClosed)
	}
	if _, ok := <-ch; ok {
		t.Fatal("result channel not closed after delivery")
	}

	// a second Close is a no-op
	q.Close()
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	q := New(4)
	defer q.Close()

	err := <-q.Enqueue("bad", func(ctx context.Context) error { panic("boom") })
	if err == nil {
		t.Fatal("panic was not converted to an error")
	}

	// the worker survives and keeps serving
	if err := <-q.Enqueue("good", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("queue dead after panic: %v", err)
	}
}
