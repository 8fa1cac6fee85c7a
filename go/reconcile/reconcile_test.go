package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/value"
)

func apply(t *testing.T, base value.Value, txOps []ops.Op) value.Value {
	t.Helper()
	result, err := ops.ApplyTxImmutable(base, txOps, nil)
	require.NoError(t, err)
	return result
}

func TestComputeNoOpsWhenEqual(t *testing.T) {
	v := value.NewObject(value.Field("a", value.Number(1)))
	out, err := Compute(v, value.DeepClone(v))
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestComputeRootKindMismatchIsFatal(t *testing.T) {
	current := value.NewObject(value.Field("a", value.Number(1)))
	target := value.NewArray(value.Number(1))
	_, err := Compute(current, target)
	require.Error(t, err)
	var fatal *ops.FatalUsageError
	require.ErrorAs(t, err, &fatal)
}

func TestComputeObjectAddRemoveChangeConverges(t *testing.T) {
	current := value.NewObject(
		value.Field("keep", value.Number(1)),
		value.Field("change", value.String("old")),
		value.Field("remove", value.Bool(true)),
	)
	target := value.NewObject(
		value.Field("keep", value.Number(1)),
		value.Field("change", value.String("new")),
		value.Field("add", value.Null()),
	)
	out, err := Compute(current, target)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	result := apply(t, current, out)
	require.True(t, value.Equal(result, target))
}

func TestComputeNestedObjectDiffRecurses(t *testing.T) {
	current := value.NewObject(
		value.Field("nested", value.NewObject(value.Field("x", value.NewObject(value.Field("v", value.Number(1)))), value.Field("y", value.Number(2)))),
	)
	target := value.NewObject(
		value.Field("nested", value.NewObject(value.Field("x", value.NewObject(value.Field("v", value.Number(1)))), value.Field("y", value.Number(99)))),
	)
	out, err := Compute(current, target)
	require.NoError(t, err)
	result := apply(t, current, out)
	require.True(t, value.Equal(result, target))

	// The untouched sibling field keeps its reference across the applied diff.
	currentNested, _ := current.Get("nested")
	resultNested, _ := result.Get("nested")
	cx, _ := currentNested.Get("x")
	rx, _ := resultNested.Get("x")
	require.True(t, value.SameReference(cx, rx))
}

func TestComputeArrayDiffUsesTrailingSplice(t *testing.T) {
	current := value.NewObject(value.Field("items", value.NewArray(value.Number(1), value.Number(2), value.Number(3))))
	target := value.NewObject(value.Field("items", value.NewArray(value.Number(1), value.Number(9), value.Number(9))))

	out, err := Compute(current, target)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, ops.Splice, out[0].Kind)

	result := apply(t, current, out)
	require.True(t, value.Equal(result, target))
}

func TestComputeArrayGrowthAppendsViaSplice(t *testing.T) {
	current := value.NewObject(value.Field("items", value.NewArray(value.Number(1))))
	target := value.NewObject(value.Field("items", value.NewArray(value.Number(1), value.Number(2), value.Number(3))))

	out, err := Compute(current, target)
	require.NoError(t, err)
	result := apply(t, current, out)
	require.True(t, value.Equal(result, target))
}

func TestComputeScalarRootDifferenceIsFatal(t *testing.T) {
	_, err := Compute(value.Number(1), value.Number(2))
	require.Error(t, err)
}
