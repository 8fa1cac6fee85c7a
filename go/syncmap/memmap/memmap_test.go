package memmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docreplica/synclog/go/syncmap"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(v))

	require.NoError(t, m.Delete(ctx, "a"))
	_, ok, err = m.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEntriesRespectsPrefix(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Set(ctx, "tx/1", []byte("a")))
	require.NoError(t, m.Set(ctx, "tx/2", []byte("b")))
	require.NoError(t, m.Set(ctx, "ckpt/1", []byte("c")))

	entries, err := m.Entries(ctx, "tx/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan syncmap.Change, 4)
	go m.Subscribe(ctx, "a", func(c syncmap.Change) { received <- c })

	// Give Subscribe a moment to register before the write.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Set(context.Background(), "a/1", []byte("x")))

	select {
	case c := <-received:
		require.Equal(t, "a/1", c.Key)
		require.Equal(t, syncmap.Put, c.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
	cancel()
}

func TestTransactSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Set(ctx, "counter", []byte("1")))

	err := m.Transact(ctx, "counter", func(current []byte, exists bool) ([]byte, error) {
		require.True(t, exists)
		require.Equal(t, "1", string(current))
		return []byte("2"), nil
	})
	require.NoError(t, err)

	v, _, _ := m.Get(ctx, "counter")
	require.Equal(t, "2", string(v))
}
