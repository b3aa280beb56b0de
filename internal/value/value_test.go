package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualScalars(t *testing.T) {
	assert.True(t, Equal(Omega{}, Omega{}))
	assert.True(t, Equal(Short(5), Short(5)))
	assert.False(t, Equal(Short(5), Short(6)))
	assert.False(t, Equal(Short(5), Real(5)))
	assert.True(t, Equal(Real(2.5), Real(2.5)))
	assert.True(t, Equal(NewString("a"), NewString("a")))
	assert.False(t, Equal(NewString("a"), NewString("b")))
}

func TestEqualShortLongCrossRepresentation(t *testing.T) {
	long := NewInteger(1 << 40)
	assert.False(t, Equal(long, Short(5)))
	small := NewInteger(5)
	assert.True(t, Equal(small, Short(5)), "NewInteger picks Short for small values")

	big := NewInteger(1 << 40)
	assert.True(t, Equal(long, big))
	assert.Equal(t, Hash(long), Hash(big))
}

func TestHashStability(t *testing.T) {
	assert.Equal(t, Hash(Short(42)), Hash(Short(42)))
	assert.Equal(t, Hash(NewString("xyz")), Hash(NewString("xyz")))
	assert.Equal(t, int32(0), Hash(Omega{}))
}

func TestMarkUnmarkCounts(t *testing.T) {
	s := NewString("shared")
	assert.Equal(t, int32(1), s.UseCount)
	Mark(s)
	assert.Equal(t, int32(2), s.UseCount)
	Unmark(s)
	Unmark(s)
	assert.Equal(t, int32(0), s.UseCount)
}

func TestUnmarkNestedContainers(t *testing.T) {
	inner := NewTuple().Set(0, Short(1))
	mid := NewSet().Insert(inner)
	Unmark(inner)
	outer := NewMap().Put(Short(1), mid)
	Unmark(mid)

	assert.Equal(t, int32(1), mid.root.useCount)
	assert.Equal(t, int32(1), inner.root.useCount)
	Unmark(outer)
	assert.Equal(t, int32(0), mid.root.useCount)
	assert.Equal(t, int32(0), inner.root.useCount)
}
