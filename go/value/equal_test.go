package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualNaNAndNegativeZero(t *testing.T) {
	require.True(t, Equal(Number(math.NaN()), Number(math.NaN())))
	require.True(t, Equal(Number(0), Number(math.Copysign(0, -1))))
	require.False(t, Equal(Number(1), Number(2)))
}

func TestEqualStructural(t *testing.T) {
	a := NewObject(Field("x", NewArray(Number(1), Number(2))))
	b := NewObject(Field("x", NewArray(Number(1), Number(2))))
	require.True(t, Equal(a, b))
	require.False(t, SameReference(a, b))
}

func TestDeepCloneIsIndependent(t *testing.T) {
	original := NewObject(Field("x", NewArray(Number(1))))
	clone := DeepClone(original)
	require.True(t, Equal(original, clone))
	require.False(t, SameReference(original, clone))

	inner, _ := original.Get("x")
	cloneInner, _ := clone.Get("x")
	require.False(t, SameReference(inner, cloneInner))
}
