package audio

import (
	"context"
	"sync"

	"github.com/jscyril/golang_playback_engine/api"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Queue is an unbounded FIFO of commands with a single consumer. Send never
// waits on the consumer.
type Queue struct {
	mu     sync.Mutex
	items  []api.Command
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send appends cmd. It fails with ErrEngineStopped once the queue is closed.
func (q *Queue) Send(cmd api.Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return playerrors.ErrEngineStopped
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Receive returns the oldest command, blocking until one arrives. It returns
// false when ctx is done, or when the queue is closed and empty.
func (q *Queue) Receive(ctx context.Context) (api.Command, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items[0] = api.Command{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return api.Command{}, false
		}

		select {
		case <-ctx.Done():
			return api.Command{}, false
		case <-q.notify:
		case <-q.done:
		}
	}
}

// Close stops accepting commands. Commands already queued are still
// delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Len returns the number of pending commands
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
