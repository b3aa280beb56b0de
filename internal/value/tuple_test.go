package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleSetGet(t *testing.T) {
	tp := NewTuple()
	tp = tp.Set(0, Short(10))
	tp = tp.Set(2, Short(30))
	assert.Equal(t, int32(3), tp.Length())
	assert.True(t, Equal(tp.Get(0), Short(10)))
	_, omega := tp.Get(1).(Omega)
	assert.True(t, omega, "hole reads as Omega")
	assert.True(t, Equal(tp.Get(2), Short(30)))
	_, omega = tp.Get(99).(Omega)
	assert.True(t, omega)
}

func TestTupleTrailingOmegaNormalized(t *testing.T) {
	tp := NewTuple()
	tp = tp.Set(0, Short(1))
	tp = tp.Set(5, Short(6))
	require.Equal(t, int32(6), tp.Length())

	tp = tp.Set(5, Omega{})
	assert.Equal(t, int32(1), tp.Length(), "erasing the last component strips trailing holes")

	tp = tp.Set(0, Omega{})
	assert.Equal(t, int32(0), tp.Length())
}

func TestTupleGrowth(t *testing.T) {
	tp := NewTuple()
	for i := int32(0); i < 100; i++ {
		tp = tp.Set(i, Short(i*2))
	}
	require.Equal(t, int32(100), tp.Length())
	assert.GreaterOrEqual(t, tp.Height(), 2)
	for i := int32(0); i < 100; i++ {
		require.True(t, Equal(tp.Get(i), Short(i*2)), "position %d", i)
	}
}

func TestTupleShrinkOnErase(t *testing.T) {
	tp := NewTuple()
	for i := int32(0); i < 100; i++ {
		tp = tp.Set(i, Short(i))
	}
	grown := tp.Height()
	for i := int32(99); i >= 2; i-- {
		tp = tp.Set(i, Omega{})
	}
	assert.Equal(t, int32(2), tp.Length())
	assert.Less(t, tp.Height(), grown)
	assert.True(t, Equal(tp.Get(0), Short(0)))
	assert.True(t, Equal(tp.Get(1), Short(1)))
}

func TestTuplePositionMixedHash(t *testing.T) {
	a := NewTuple().Set(0, Short(1)).Set(1, Short(2))
	b := NewTuple().Set(0, Short(2)).Set(1, Short(1))
	assert.NotEqual(t, Hash(a), Hash(b), "reordering components changes the hash")

	c := NewTuple().Set(1, Short(2)).Set(0, Short(1))
	assert.Equal(t, Hash(a), Hash(c))
	assert.True(t, Equal(a, c))
}

func TestTupleCopyOnWriteIsolation(t *testing.T) {
	y := NewTuple().Set(0, Short(1)).Set(1, Short(2))
	Mark(y)
	x := y.Set(0, Short(99))
	assert.True(t, Equal(y.Get(0), Short(1)))
	assert.True(t, Equal(x.Get(0), Short(99)))
}

func TestTupleFromE(t *testing.T) {
	tp := NewTuple().Set(0, Short(1)).Set(1, Short(2)).Set(2, Short(3))
	el, tp := tp.FromE()
	assert.True(t, Equal(el, Short(3)))
	assert.Equal(t, int32(2), tp.Length())
}

func TestTupleFromB(t *testing.T) {
	tp := NewTuple().Set(0, Short(1)).Set(1, Short(2)).Set(2, Short(3))
	el, tp := tp.FromB()
	assert.True(t, Equal(el, Short(1)))
	assert.Equal(t, int32(2), tp.Length())
	assert.True(t, Equal(tp.Get(0), Short(2)))
	assert.True(t, Equal(tp.Get(1), Short(3)))
}

func TestTupleIterate(t *testing.T) {
	tp := NewTuple().Set(0, Short(1)).Set(2, Short(3))
	var got []Specifier
	it := tp.Iterate()
	for {
		el, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, el)
	}
	require.Len(t, got, 3)
	assert.True(t, Equal(got[0], Short(1)))
	_, omega := got[1].(Omega)
	assert.True(t, omega)
	assert.True(t, Equal(got[2], Short(3)))
}
