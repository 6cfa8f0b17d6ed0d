package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process list store with the same semantics as
// RedisStore. Nothing survives a restart, so it is only meant for tests and
// dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	lists  map[string][]string
	closed bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]string)}
}

func (m *MemoryStore) PopFront(_ context.Context, queue string, count int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	list := m.lists[queue]
	if count <= 0 || len(list) == 0 {
		return nil, nil
	}
	if count > len(list) {
		count = len(list)
	}
	items := append([]string(nil), list[:count]...)
	m.set(queue, list[count:])
	return items, nil
}

func (m *MemoryStore) PushBack(_ context.Context, queue string, items ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	list := append(m.lists[queue], items...)
	m.set(queue, list)
	return int64(len(list)), nil
}

func (m *MemoryStore) Remove(_ context.Context, queue string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	kept := m.lists[queue][:0:0]
	for _, item := range m.lists[queue] {
		if _, ok := drop[item]; !ok {
			kept = append(kept, item)
		}
	}
	m.set(queue, kept)
	return nil
}

// Range follows LRANGE: stop is inclusive and negative indexes count from the tail.
func (m *MemoryStore) Range(_ context.Context, queue string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	list := m.lists[queue]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return []string{}, nil
	}
	return append([]string(nil), list[start:stop+1]...), nil
}

func (m *MemoryStore) Len(_ context.Context, queue string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.lists[queue])), nil
}

func (m *MemoryStore) Delete(_ context.Context, queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.lists, queue)
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close makes every later call fail with ErrClosed, like a lost connection.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// set drops empty lists so that a drained queue looks absent, as in Redis.
func (m *MemoryStore) set(queue string, list []string) {
	if len(list) == 0 {
		delete(m.lists, queue)
		return
	}
	m.lists[queue] = list
}
