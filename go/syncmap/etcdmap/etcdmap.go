// Package etcdmap is a demonstration syncmap.Map backed by etcd. It is not
// exercised by any test, but shows how the same controller logic runs unmodified against a real
// shared store, the way the teacher's go/flow package drives catalog and
// journal state off clientv3 watches and mvccpb event kinds.
package etcdmap

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/docreplica/synclog/go/syncmap"
)

// Map is a syncmap.Map backed by an etcd keyspace rooted at a fixed prefix.
type Map struct {
	client *clientv3.Client
	root   string
}

// New returns a Map storing keys under root within client's keyspace.
func New(client *clientv3.Client, root string) *Map {
	return &Map{client: client, root: root}
}

func (m *Map) fullKey(key string) string { return m.root + key }

func (m *Map) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := m.client.Get(ctx, m.fullKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("etcdmap: get %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

func (m *Map) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Map) Set(ctx context.Context, key string, value []byte) error {
	if _, err := m.client.Put(ctx, m.fullKey(key), string(value)); err != nil {
		return fmt.Errorf("etcdmap: put %q: %w", key, err)
	}
	return nil
}

func (m *Map) Delete(ctx context.Context, key string) error {
	if _, err := m.client.Delete(ctx, m.fullKey(key)); err != nil {
		return fmt.Errorf("etcdmap: delete %q: %w", key, err)
	}
	return nil
}

func (m *Map) Keys(ctx context.Context, prefix string) ([]string, error) {
	resp, err := m.client.Get(ctx, m.fullKey(prefix), clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("etcdmap: list %q: %w", prefix, err)
	}
	out := make([]string, len(resp.Kvs))
	for i, kv := range resp.Kvs {
		out[i] = string(kv.Key)[len(m.root):]
	}
	return out, nil
}

func (m *Map) Entries(ctx context.Context, prefix string) (map[string][]byte, error) {
	resp, err := m.client.Get(ctx, m.fullKey(prefix), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdmap: list %q: %w", prefix, err)
	}
	out := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[string(kv.Key)[len(m.root):]] = kv.Value
	}
	return out, nil
}

func (m *Map) Size(ctx context.Context) (int, error) {
	resp, err := m.client.Get(ctx, m.root, clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return 0, fmt.Errorf("etcdmap: count: %w", err)
	}
	return int(resp.Count), nil
}

// Subscribe watches prefix and translates each etcd event's mvccpb kind
// into a syncmap.Change.
func (m *Map) Subscribe(ctx context.Context, prefix string, onChange func(syncmap.Change)) error {
	watch := m.client.Watch(ctx, m.fullKey(prefix), clientv3.WithPrefix())
	for resp := range watch {
		if err := resp.Err(); err != nil {
			if err == context.Canceled || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("etcdmap: watch %q: %w", prefix, err)
		}
		for _, ev := range resp.Events {
			kind := syncmap.Put
			if ev.Type == clientv3.EventTypeDelete {
				kind = syncmap.Delete
			}
			onChange(syncmap.Change{
				Key:   string(ev.Kv.Key)[len(m.root):],
				Value: ev.Kv.Value,
				Kind:  kind,
			})
		}
	}
	return ctx.Err()
}

// Transact reads key's current value, lets fn compute the next value, and
// commits it with etcd's compare-and-swap transaction, retrying fn on
// concurrent writers exactly as connectorStore retries its checkpoint
// commit loop.
func (m *Map) Transact(ctx context.Context, key string, fn func(current []byte, exists bool) ([]byte, error)) error {
	full := m.fullKey(key)
	for {
		resp, err := m.client.Get(ctx, full)
		if err != nil {
			return fmt.Errorf("etcdmap: transact get %q: %w", key, err)
		}

		var current []byte
		var modRev int64
		exists := len(resp.Kvs) > 0
		if exists {
			current = resp.Kvs[0].Value
			modRev = resp.Kvs[0].ModRevision
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		txn := m.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(full), "=", modRev)).
			Then(clientv3.OpPut(full, string(next)))
		commitResp, err := txn.Commit()
		if err != nil {
			return fmt.Errorf("etcdmap: transact commit %q: %w", key, err)
		}
		if commitResp.Succeeded {
			return nil
		}
		// Lost the race; reload and retry.
	}
}
