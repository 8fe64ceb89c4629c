// Package speechq owns the process-wide FIFO queue that serializes all
// speech-synthesis work. Every project submits its whole audio batch as a
// single unit; units run one at a time, in submission order, so no two
// projects' synthesis calls ever overlap. Nothing outside this package
// touches the queue's internals.
package speechq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrClosed is delivered to enqueues that arrive after Close.
var ErrClosed = errors.New("speech queue closed")

// Task is one unit of speech work, typically a whole project's audio batch.
// An alias so callers can pass plain function literals against interfaces
// spelled with the underlying type.
type Task = func(ctx context.Context) error

type unit struct {
	key  string
	task Task
	done chan error
}

// Queue is the global speech-synthesis FIFO. Construct with New and share
// one instance per process.
type Queue struct {
	units chan unit

	mu     sync.Mutex
	closed bool
}

// New starts the queue's single worker goroutine. buffer bounds how many
// batches may wait before Enqueue blocks.
func New(buffer int) *Queue {
	q := &Queue{units: make(chan unit, buffer)}
	go q.run()
	return q
}

func (q *Queue) run() {
	for u := range q.units {
		log.Printf("[speechq] batch started: %s", u.key)
		err := runTask(u.task)
		if err != nil {
			log.Printf("[speechq] batch failed: %s: %v", u.key, err)
		} else {
			log.Printf("[speechq] batch completed: %s", u.key)
		}
		u.done <- err
		close(u.done)
	}
}

func runTask(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech task panic: %v", r)
		}
	}()
	return t(context.Background())
}

// Enqueue submits one unit of work under the given key and returns a
// channel that receives the unit's result exactly once. The caller blocks
// on the channel to await its turn and completion. After Close the channel
// delivers ErrClosed. The lock is held across the send so Close cannot
// slip in between the closed check and the send.
func (q *Queue) Enqueue(key string, task Task) <-chan error {
	u := unit{key: key, task: task, done: make(chan error, 1)}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		u.done <- ErrClosed
		close(u.done)
		return u.done
	}
	q.units <- u
	return u.done
}

// Close stops accepting work. Pending units still drain. Safe to call
// more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.units)
}
