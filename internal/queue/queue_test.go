package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/untoldecay/Distillery/internal/logging"
)

func TestQueueRunsTasks(t *testing.T) {
	q := New(8, logging.Nop())
	q.Start(context.Background(), 2)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := q.Enqueue(Task{Name: "count", Run: func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		}})
		if !ok {
			t.Fatal("enqueue failed on non-full queue")
		}
	}
	wg.Wait()
	q.Close()

	if got := count.Load(); got != 5 {
		t.Errorf("ran %d tasks, want 5", got)
	}
}

func TestQueueSurvivesPanicAndError(t *testing.T) {
	q := New(8, logging.Nop())
	q.Start(context.Background(), 1)

	done := make(chan struct{})
	q.Enqueue(Task{Name: "panics", Run: func(ctx context.Context) error {
		panic("boom")
	}})
	q.Enqueue(Task{Name: "errors", Run: func(ctx context.Context) error {
		return errors.New("failed")
	}})
	q.Enqueue(Task{Name: "after", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panicking task")
	}
	q.Close()
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	q := New(8, logging.Nop())
	q.Start(context.Background(), 1)
	q.Close()
	if q.Enqueue(Task{Name: "late", Run: func(ctx context.Context) error { return nil }}) {
		t.Error("enqueue after close succeeded")
	}
}

func TestFullQueueDropsTask(t *testing.T) {
	q := New(1, logging.Nop())
	// No workers started: first task fills the buffer, second must drop.
	if !q.Enqueue(Task{Name: "first", Run: func(ctx context.Context) error { return nil }}) {
		t.Fatal("first enqueue failed")
	}
	if q.Enqueue(Task{Name: "second", Run: func(ctx context.Context) error { return nil }}) {
		t.Error("enqueue on full queue succeeded")
	}
}
