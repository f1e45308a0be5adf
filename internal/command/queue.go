package command

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by a bounded queue that cannot accept more commands.
var ErrQueueFull = errors.New("command queue full")

// Queue is a FIFO of commands written by input goroutines and drained by the
// render goroutine. Enqueue never blocks.
type Queue struct {
	mu    sync.Mutex
	items []Command
	limit int
}

// NewQueue returns an unbounded queue.
func NewQueue() *Queue {
	return &Queue{}
}

// NewBoundedQueue returns a queue holding at most limit commands. A limit <= 0
// means unbounded.
func NewBoundedQueue(limit int) *Queue {
	if limit < 0 {
		limit = 0
	}
	return &Queue{limit: limit}
}

// Enqueue appends cmd to the tail. It only fails on a full bounded queue; a
// command is never dropped silently.
func (q *Queue) Enqueue(cmd Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		return ErrQueueFull
	}
	q.items = append(q.items, cmd)
	return nil
}

// DrainAll removes and returns every queued command in enqueue order.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Discard drops all queued commands and reports how many were dropped.
func (q *Queue) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
