package cstore

import (
	"context"
	"sync"

	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"
)

// MemoryStore is a Store kept in process memory. It coordinates the
// goroutines of a single process only, and is used for single instance
// deployments and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	keys     map[string]string
	watchers map[string][]chan error
	locks    map[string]chan struct{}
	closed   bool
}

// NewMemory returns an empty MemoryStore
func NewMemory() *MemoryStore {
	return &MemoryStore{
		keys:     make(map[string]string),
		watchers: make(map[string][]chan error),
		locks:    make(map[string]chan struct{}),
	}
}

func (m *MemoryStore) checkOpen(op string) error {
	if m.closed {
		return cerrors.E(cerrors.CoordinationUnavailable, op, errStoreClosed)
	}
	return nil
}

// Exists implements Store
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("exists"); err != nil {
		return false, err
	}
	_, ok := m.keys[key]
	return ok, nil
}

// Value implements Store
func (m *MemoryStore) Value(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("get"); err != nil {
		return "", false, err
	}
	v, ok := m.keys[key]
	return v, ok, nil
}

// CreateIfAbsent implements Store
func (m *MemoryStore) CreateIfAbsent(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("create"); err != nil {
		return false, err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value

	for _, w := range m.watchers[key] {
		w <- nil
		close(w)
	}
	delete(m.watchers, key)
	return true, nil
}

// DeleteTree implements Store
func (m *MemoryStore) DeleteTree(ctx context.Context, base string, children ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("delete"); err != nil {
		return false, err
	}
	if _, ok := m.keys[base]; !ok {
		return false, nil
	}
	for _, c := range children {
		delete(m.keys, c)
	}
	delete(m.keys, base)
	return true, nil
}

// WatchCreate implements Store
func (m *MemoryStore) WatchCreate(ctx context.Context, key string) (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen("watch"); err != nil {
		return nil, err
	}

	out := make(chan error, 1)
	if _, ok := m.keys[key]; ok {
		out <- nil
		close(out)
		return out, nil
	}

	w := make(chan error, 1)
	m.watchers[key] = append(m.watchers[key], w)

	go func() {
		defer close(out)
		select {
		case err, ok := <-w:
			if ok {
				out <- err
			}
		case <-ctx.Done():
			m.removeWatcher(key, w)
		}
	}()
	return out, nil
}

func (m *MemoryStore) removeWatcher(key string, w chan error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.watchers[key]
	for i := range ws {
		if ws[i] == w {
			m.watchers[key] = append(ws[:i], ws[i+1:]...)
			return
		}
	}
}

// NewLocker implements Store
func (m *MemoryStore) NewLocker(key string) Locker {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = lockPrefix + key
	sem, ok := m.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[key] = sem
	}
	return &memLocker{sem: sem}
}

// Close implements Store. Pending watches receive an error.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for key, ws := range m.watchers {
		for _, w := range ws {
			w <- cerrors.E(cerrors.CoordinationUnavailable, "watch", errStoreClosed)
			close(w)
		}
		delete(m.watchers, key)
	}
	return nil
}

type memLocker struct {
	sem chan struct{}
}

func (l *memLocker) Lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, lockObtainTimeout)
	defer cancel()
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrLockTimeout
	}
}

func (l *memLocker) Unlock(ctx context.Context) error {
	select {
	case <-l.sem:
	default:
	}
	return nil
}
