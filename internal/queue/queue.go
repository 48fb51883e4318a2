// Package queue runs build tasks on a small worker pool. The watcher
// enqueues; workers drain. Queue pressure never blocks the watcher: a full
// queue drops the task and reports it, and the debounced watcher will
// re-enqueue on the next change.
package queue

import (
	"context"
	"sync"

	"github.com/untoldecay/Distillery/internal/logging"
)

// Task is one unit of pipeline work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue is a bounded task queue with a fixed worker pool.
type Queue struct {
	tasks chan Task
	wg    sync.WaitGroup
	log   logging.Logger

	mu     sync.Mutex
	closed bool
}

func New(size int, log logging.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Queue{
		tasks: make(chan Task, size),
		log:   log,
	}
}

// Start launches the worker pool. Workers exit when the queue is closed or
// the context is canceled.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.runOne(ctx, id, task)
		}
	}
}

// runOne executes a task, containing panics so a bad build cannot take down
// the daemon.
func (q *Queue) runOne(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Logf("worker %d: panic in task %s: %v", workerID, task.Name, r)
		}
	}()
	if err := task.Run(ctx); err != nil {
		q.log.Logf("worker %d: task %s failed: %v", workerID, task.Name, err)
	}
}

// Enqueue adds a task without blocking. Returns false if the queue is full
// or closed.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.log.Logf("queue full, dropping task %s", task.Name)
		return false
	}
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	q.wg.Wait()
}
