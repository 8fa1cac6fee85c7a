// Package memmap is an in-memory syncmap.Map, the reference implementation
// of the interface, covered by this package's own tests (the core packages'
// tests run without any map). It mirrors the teacher's
// connectorStore, which wraps consumer.JSONFileStore with a mutex-guarded
// in-memory value and fsync-on-commit; memmap drops the durability layer
// (there is no file to fsync) but keeps the same "guard state with one
// mutex, notify subscribers after each write" shape.
package memmap

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/docreplica/synclog/go/syncmap"
)

// Map is an in-memory syncmap.Map.
type Map struct {
	mu        sync.Mutex
	data      map[string][]byte
	listeners []listener
}

type listener struct {
	prefix string
	onDone <-chan struct{}
	fn     func(syncmap.Change)
}

// New returns an empty Map.
func New() *Map {
	return &Map{data: make(map[string][]byte)}
}

func (m *Map) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *Map) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Map) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	subs := m.matchingListeners(key)
	m.mu.Unlock()

	m.notify(subs, syncmap.Change{Key: key, Value: value, Kind: syncmap.Put})
	return nil
}

func (m *Map) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if _, ok := m.data[key]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.data, key)
	subs := m.matchingListeners(key)
	m.mu.Unlock()

	m.notify(subs, syncmap.Change{Key: key, Kind: syncmap.Delete})
	return nil
}

func (m *Map) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *Map) Entries(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *Map) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data), nil
}

func (m *Map) Subscribe(ctx context.Context, prefix string, onChange func(syncmap.Change)) error {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener{prefix: prefix, onDone: ctx.Done(), fn: onChange})
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *Map) Transact(ctx context.Context, key string, fn func(current []byte, exists bool) ([]byte, error)) error {
	for {
		m.mu.Lock()
		current, exists := m.data[key]
		m.mu.Unlock()

		next, err := fn(append([]byte(nil), current...), exists)
		if err != nil {
			return err
		}

		m.mu.Lock()
		stillCurrent, stillExists := m.data[key]
		if stillExists != exists || string(stillCurrent) != string(current) {
			m.mu.Unlock()
			logrus.WithField("key", key).Debug("memmap: concurrent write detected, retrying transaction")
			continue
		}
		m.data[key] = next
		subs := m.matchingListeners(key)
		m.mu.Unlock()

		m.notify(subs, syncmap.Change{Key: key, Value: next, Kind: syncmap.Put})
		return nil
	}
}

// matchingListeners must be called with m.mu held.
func (m *Map) matchingListeners(key string) []listener {
	var out []listener
	live := m.listeners[:0]
	for _, l := range m.listeners {
		select {
		case <-l.onDone:
			continue
		default:
		}
		live = append(live, l)
		if strings.HasPrefix(key, l.prefix) {
			out = append(out, l)
		}
	}
	m.listeners = live
	return out
}

func (m *Map) notify(subs []listener, change syncmap.Change) {
	for _, l := range subs {
		l.fn(change)
	}
}
