package session

import (
	"context"
	"sync"
)

// MemoryBackend is storage shared by several in-process tabs.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	subs   map[*changeQueue]*MemoryTab
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
		subs:   make(map[*changeQueue]*MemoryTab),
	}
}

// Tab returns a new view of the backend acting as one browsing context.
func (b *MemoryBackend) Tab() *MemoryTab { return &MemoryTab{b: b} }

type MemoryTab struct {
	b *MemoryBackend
}

var _ Store = (*MemoryTab)(nil)

func (t *MemoryTab) Get(key string) (string, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	return t.b.values[key], nil
}

func (t *MemoryTab) Set(key, value string) error {
	if value == "" {
		return t.Remove(key)
	}
	t.b.write(t, key, value)
	return nil
}

func (t *MemoryTab) Remove(key string) error {
	t.b.write(t, key, "")
	return nil
}

func (t *MemoryTab) Subscribe(ctx context.Context) (<-chan Change, error) {
	q := newChangeQueue()
	t.b.mu.Lock()
	t.b.subs[q] = t
	t.b.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.b.mu.Lock()
		delete(t.b.subs, q)
		t.b.mu.Unlock()
	}()
	go q.run(ctx)
	return q.out, nil
}

func (b *MemoryBackend) write(from *MemoryTab, key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.values[key]
	if old == value {
		return
	}
	if value == "" {
		delete(b.values, key)
	} else {
		b.values[key] = value
	}
	for q, tab := range b.subs {
		if tab != from {
			q.push(Change{Key: key, OldValue: old, NewValue: value})
		}
	}
}
