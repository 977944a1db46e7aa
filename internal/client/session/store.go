package session

import (
	"context"
	"sync"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Change describes a write made by another holder of the same storage.
// NewValue is empty when the key was removed.
type Change struct {
	Key      string
	OldValue string
	NewValue string
}

// Store is durable key/value storage shared between several session holders.
// Subscribers only hear about writes made through other Store values, never
// their own, the way browser storage events behave.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// changeQueue buffers changes without bound so a slow reader never blocks a writer.
type changeQueue struct {
	mu      sync.Mutex
	pending []Change
	signal  chan struct{}
	out     chan Change
}

func newChangeQueue() *changeQueue {
	return &changeQueue{signal: make(chan struct{}, 1), out: make(chan Change)}
}

func (q *changeQueue) push(c Change) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *changeQueue) pop() (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Change{}, false
	}
	c := q.pending[0]
	q.pending = q.pending[1:]
	return c, true
}

// run delivers queued changes to out until ctx is done, then closes out.
func (q *changeQueue) run(ctx context.Context) {
	defer close(q.out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.signal:
		}
		for {
			c, ok := q.pop()
			if !ok {
				break
			}
			select {
			case q.out <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}
