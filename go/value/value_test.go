package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectPreservesInsertionOrder(t *testing.T) {
	v := NewObject(Field("b", Number(2)), Field("a", Number(1)), Field("c", Number(3)))
	require.Equal(t, []string{"b", "a", "c"}, v.Keys())

	val, ok := v.Get("a")
	require.True(t, ok)
	require.Equal(t, float64(1), val.Number())
}

func TestNullIsDistinctFromAbsence(t *testing.T) {
	v := NewObject(Field("x", Null()))

	val, ok := v.Get("x")
	require.True(t, ok)
	require.True(t, val.IsNull())

	_, ok = v.Get("y")
	require.False(t, ok)
}

func TestArrayHolesReadAsUndefined(t *testing.T) {
	a := &Array{}
	a.ExtendWithHoles(3)
	v := FromArray(a)
	require.Equal(t, 3, v.Len())
	require.True(t, v.At(0).IsUndefined())
}

func TestRoundTripJSON(t *testing.T) {
	v := NewObject(
		Field("name", String("ada")),
		Field("tags", NewArray(String("x"), String("y"))),
		Field("n", Number(3.5)),
	)
	data, err := Marshal(v)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.True(t, Equal(v, parsed))
}
