package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned once the queue is closed and drained.
var ErrQueueClosed = errors.New("job queue closed")

const unknownFilename = "unknown"

// Queue is an unbounded FIFO of jobs. Submission never blocks; depth is
// not limited.
type Queue struct {
	mu     sync.Mutex
	items  []*Job
	ready  chan struct{}
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Submit appends job to the tail.
func (q *Queue) Submit(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, job)
	q.signalLocked()
	return nil
}

// Dequeue removes and returns the head, blocking until a job is available
// or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signalLocked()
			}
			q.mu.Unlock()
			return job, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// requeueFront puts a dequeued job back at the head.
func (q *Queue) requeueFront(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]*Job{job}, q.items...)
	q.signalLocked()
}

// Peek returns the filenames of queued jobs in submission order.
func (q *Queue) Peek() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.items))
	for i, job := range q.items {
		if name := job.Filename(); name != "" {
			out[i] = name
		} else {
			out[i] = unknownFilename
		}
	}
	return out
}

// Len returns the queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further submissions. Queued jobs can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

func (q *Queue) signalLocked() {
	if q.closed {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
