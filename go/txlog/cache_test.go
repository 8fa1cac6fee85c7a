package txlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/value"
)

func tsKey(epoch, clock int64, client string, wall int64) TxTimestampKey {
	return TxTimestamp{Epoch: epoch, Clock: clock, ClientID: client, WallClock: wall}.Key()
}

func TestKeyRoundTrip(t *testing.T) {
	ts := TxTimestamp{Epoch: 3, Clock: 10, ClientID: "c1", WallClock: 1000}
	parsed, err := ParseTxTimestampKey(ts.Key())
	require.NoError(t, err)
	require.Equal(t, ts, parsed)
}

func TestParseRejectsMalformedKey(t *testing.T) {
	_, err := ParseTxTimestampKey("not-enough-parts")
	require.Error(t, err)
}

func TestCompareOrdersByEpochThenClockThenClient(t *testing.T) {
	a := TxTimestamp{Epoch: 1, Clock: 5, ClientID: "a"}
	b := TxTimestamp{Epoch: 1, Clock: 5, ClientID: "b"}
	c := TxTimestamp{Epoch: 2, Clock: 0, ClientID: "a"}
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, 1, Compare(c, a))
	require.Equal(t, 0, Compare(a, a))
}

func TestInsertTxMaintainsOrder(t *testing.T) {
	c := NewSortedLogCache()
	k2 := tsKey(1, 2, "x", 100)
	k1 := tsKey(1, 1, "x", 100)
	k3 := tsKey(1, 3, "x", 100)

	require.NoError(t, c.InsertTx(k2, TxRecord{}))
	require.NoError(t, c.InsertTx(k1, TxRecord{}))
	require.NoError(t, c.InsertTx(k3, TxRecord{}))

	entries := c.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, k1, entries[0].Key)
	require.Equal(t, k2, entries[1].Key)
	require.Equal(t, k3, entries[2].Key)
}

func TestInsertTxReplacesExistingKey(t *testing.T) {
	c := NewSortedLogCache()
	k := tsKey(1, 1, "x", 100)
	require.NoError(t, c.InsertTx(k, TxRecord{Ops: []ops.Op{ops.SetOp(nil, ops.FieldKey("a"), value.Number(1))}}))
	require.NoError(t, c.InsertTx(k, TxRecord{Ops: nil}))
	require.Equal(t, 1, c.Len())
	e, ok := c.Get(k)
	require.True(t, ok)
	require.Nil(t, e.Record.Ops)
}

func TestRemoveTxs(t *testing.T) {
	c := NewSortedLogCache()
	k1 := tsKey(1, 1, "x", 1)
	k2 := tsKey(1, 2, "x", 1)
	require.NoError(t, c.InsertTx(k1, TxRecord{}))
	require.NoError(t, c.InsertTx(k2, TxRecord{}))

	c.RemoveTxs([]TxTimestampKey{k1})
	require.Equal(t, 1, c.Len())
	require.False(t, c.Has(k1))
	require.True(t, c.Has(k2))
}

func TestDedupKeyUsesOriginalWhenReemitted(t *testing.T) {
	original := tsKey(1, 1, "x", 1)
	reemitted := tsKey(2, 0, "x", 50)
	e := NewSortedTxEntry(reemitted, TxRecord{OriginalTxKey: &original})
	require.Equal(t, original, e.DedupKey())

	ts, err := e.DedupTimestamp()
	require.NoError(t, err)
	require.Equal(t, int64(1), ts.Epoch)
}

func TestRebuildFromMap(t *testing.T) {
	c := NewSortedLogCache()
	records := map[TxTimestampKey]TxRecord{
		tsKey(1, 2, "a", 1): {},
		tsKey(1, 1, "a", 1): {},
	}
	require.NoError(t, c.RebuildFromMap(records))
	require.Equal(t, 2, c.Len())
	entries := c.Entries()
	ts0, _ := entries[0].Timestamp()
	ts1, _ := entries[1].Timestamp()
	require.Equal(t, int64(1), ts0.Clock)
	require.Equal(t, int64(2), ts1.Clock)
}
