package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docreplica/synclog/go/value"
)

func TestApplyTxImmutableSetField(t *testing.T) {
	base := value.NewObject(value.Field("name", value.String("ada")))
	result, err := ApplyTxImmutable(base, []Op{
		SetOp(nil, FieldKey("name"), value.String("grace")),
	}, nil)
	require.NoError(t, err)

	got, _ := result.Get("name")
	require.Equal(t, "grace", got.Str())

	original, _ := base.Get("name")
	require.Equal(t, "ada", original.Str())
}

func TestApplyTxImmutablePreservesUntouchedSubtrees(t *testing.T) {
	base := value.NewObject(
		value.Field("a", value.NewArray(value.Number(1), value.Number(2))),
		value.Field("b", value.NewArray(value.Number(3))),
	)
	result, err := ApplyTxImmutable(base, []Op{
		SetOp(value.P("a"), IndexKey(0), value.Number(9)),
	}, nil)
	require.NoError(t, err)

	origA, _ := base.Get("a")
	origB, _ := base.Get("b")
	newB, _ := result.Get("b")
	require.True(t, value.SameReference(origB, newB))

	newA, _ := result.Get("a")
	require.False(t, value.SameReference(origA, newA))
}

func TestApplyTxImmutableRollsBackOnFailure(t *testing.T) {
	base := value.NewObject(value.Field("name", value.String("ada")))
	result, err := ApplyTxImmutable(base, []Op{
		SetOp(nil, FieldKey("name"), value.String("grace")),
		DeleteOp(value.P("missing", "deeper"), FieldKey("x")),
	}, nil)
	require.Error(t, err)
	require.True(t, value.SameReference(base, result))
}

func TestApplyTxImmutableValidatorRejectsAll(t *testing.T) {
	base := value.NewObject(value.Field("count", value.Number(1)))
	alwaysReject := func(value.Value) bool { return false }
	result, err := ApplyTxImmutable(base, []Op{
		SetOp(nil, FieldKey("count"), value.Number(2)),
	}, alwaysReject)
	require.Error(t, err)
	require.True(t, value.SameReference(base, result))
}

func TestApplyTxsImmutableSkipsFailedTxAndKeepsLaterOnes(t *testing.T) {
	base := value.NewObject(value.Field("count", value.Number(0)))
	result, applied := ApplyTxsImmutable(base, [][]Op{
		{SetOp(nil, FieldKey("count"), value.Number(1))},
		{DeleteOp(value.P("nope"), FieldKey("x"))},
		{SetOp(nil, FieldKey("count"), value.Number(2))},
	}, nil)
	require.Equal(t, []bool{true, false, true}, applied)
	got, _ := result.Get("count")
	require.Equal(t, float64(2), got.Number())
}

func TestApplyTxsImmutableAllFailReturnsOriginalReference(t *testing.T) {
	base := value.NewObject(value.Field("count", value.Number(0)))
	result, applied := ApplyTxsImmutable(base, [][]Op{
		{DeleteOp(value.P("nope"), FieldKey("x"))},
		{SetOp(value.P("also", "nope"), FieldKey("x"), value.Number(1))},
	}, nil)
	require.Equal(t, []bool{false, false}, applied)
	require.True(t, value.SameReference(base, result))
}

func TestSpliceNegativeAndOutOfRangeClamp(t *testing.T) {
	base := value.NewArray(value.Number(1), value.Number(2), value.Number(3))
	wrapped := value.NewObject(value.Field("a", base))

	result, err := ApplyTxImmutable(wrapped, []Op{
		SpliceOp(value.P("a"), -1, 100, value.Number(9)),
	}, nil)
	require.NoError(t, err)
	a, _ := result.Get("a")
	require.Equal(t, 3, a.Len())
	require.Equal(t, float64(1), a.At(0).Number())
	require.Equal(t, float64(2), a.At(1).Number())
	require.Equal(t, float64(9), a.At(2).Number())
}

func TestSetLengthCreatesSparseHoles(t *testing.T) {
	base := value.NewObject(value.Field("a", value.NewArray(value.Number(1))))
	result, err := ApplyTxImmutable(base, []Op{
		SetOp(value.P("a"), LengthKey(), value.Number(3)),
	}, nil)
	require.NoError(t, err)
	a, _ := result.Get("a")
	require.Equal(t, 3, a.Len())
	require.True(t, a.At(1).IsUndefined())
	require.True(t, a.At(2).IsUndefined())
}

func TestSetVsDeleteOnArrayIndex(t *testing.T) {
	base := value.NewObject(value.Field("a", value.NewArray(value.Number(1), value.Number(2))))

	setUndefined, err := ApplyTxImmutable(base, []Op{
		SetOp(value.P("a"), IndexKey(0), value.Undefined()),
	}, nil)
	require.NoError(t, err)
	a, _ := setUndefined.Get("a")
	require.Equal(t, 2, a.Len())
	require.True(t, a.At(0).IsUndefined())

	deleted, err := ApplyTxImmutable(base, []Op{
		DeleteOp(value.P("a"), IndexKey(0)),
	}, nil)
	require.NoError(t, err)
	a2, _ := deleted.Get("a")
	require.Equal(t, 2, a2.Len())
	require.True(t, a2.At(0).IsUndefined())
}

func TestDeleteOfMissingFieldIsNoOp(t *testing.T) {
	base := value.NewObject(value.Field("x", value.Number(1)))
	result, err := ApplyTxImmutable(base, []Op{
		DeleteOp(nil, FieldKey("missing")),
	}, nil)
	require.NoError(t, err)
	require.True(t, value.Equal(base, result))
}

func TestAddToSetIsIdempotent(t *testing.T) {
	base := value.NewObject(value.Field("tags", value.NewArray(value.String("a"))))
	result, err := ApplyTxImmutable(base, []Op{
		AddToSetOp(value.P("tags"), value.String("a")),
	}, nil)
	require.NoError(t, err)
	tags, _ := result.Get("tags")
	require.Equal(t, 1, tags.Len())
}

func TestDeleteFromSetRemovesMatchingValue(t *testing.T) {
	base := value.NewObject(value.Field("tags", value.NewArray(value.String("a"), value.String("b"))))
	result, err := ApplyTxImmutable(base, []Op{
		DeleteFromSetOp(value.P("tags"), value.String("a")),
	}, nil)
	require.NoError(t, err)
	tags, _ := result.Get("tags")
	require.Equal(t, 1, tags.Len())
	require.Equal(t, "b", tags.At(0).Str())
}

func TestSetOutOfBoundsIndexAborts(t *testing.T) {
	base := value.NewObject(value.Field("a", value.NewArray(value.Number(1))))
	_, err := ApplyTxImmutable(base, []Op{
		SetOp(value.P("a"), IndexKey(5), value.Number(2)),
	}, nil)
	require.Error(t, err)
	require.True(t, IsRejected(err))
}

func TestTraverseThroughPrimitiveFails(t *testing.T) {
	base := value.NewObject(value.Field("x", value.Number(1)))
	_, err := ApplyTxImmutable(base, []Op{
		SetOp(value.P("x", "y"), FieldKey("z"), value.Number(1)),
	}, nil)
	require.Error(t, err)
	require.True(t, IsRejected(err))
}

func TestDraftReusedAcrossTransactionsKeepsCommittedWorkOnLaterFailure(t *testing.T) {
	base := value.NewObject(value.Field("a", value.Number(0)))
	d := NewDraft(base)

	require.NoError(t, d.ApplyTx([]Op{SetOp(nil, FieldKey("a"), value.Number(1))}, nil))
	require.Error(t, d.ApplyTx([]Op{DeleteOp(value.P("missing"), FieldKey("x"))}, nil))

	got, _ := d.Root().Get("a")
	require.Equal(t, float64(1), got.Number())
}
