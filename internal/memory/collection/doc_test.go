package collection_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/memory/collection"
)

func TestDocFIFOEviction(t *testing.T) {
	d := collection.NewDoc(2)
	d.Set("a", collection.NewIntPrimary(1))
	d.Set("b", collection.NewIntPrimary(2))
	d.Set("a", collection.NewIntPrimary(3)) // update moves "a" to the end, no eviction
	d.Set("c", collection.NewIntPrimary(4)) // now over cap: oldest ("b") evicted

	require.Equal(t, []string{"a", "c"}, d.Keys())

	a, ok := d.Get("a")
	require.True(t, ok)
	require.True(t, a.Equal(collection.NewIntPrimary(3)))

	_, ok = d.Get("b")
	require.False(t, ok)

	c, ok := d.Get("c")
	require.True(t, ok)
	require.True(t, c.Equal(collection.NewIntPrimary(4)))

	// Next set evicts "a" (now oldest).
	d.Set("d", collection.NewIntPrimary(5))
	require.Equal(t, []string{"c", "d"}, d.Keys())
	_, ok = d.Get("a")
	require.False(t, ok)
}

func TestDocDeleteAndClone(t *testing.T) {
	d := collection.NewDoc(0)
	d.Set("x", collection.NewStringPrimary("hi"))
	require.True(t, d.Delete("x"))
	require.False(t, d.Delete("x"))

	d.Set("y", collection.NewStringPrimary("there"))
	clone := d.Clone()
	clone.Set("y", collection.NewStringPrimary("changed"))

	orig, _ := d.Get("y")
	cloned, _ := clone.Get("y")
	require.Equal(t, "there", orig.String())
	require.Equal(t, "changed", cloned.String())
}

func TestPrimaryFloatBitPatternEquality(t *testing.T) {
	nan := collection.NewFloatPrimary(nan())
	require.True(t, nan.Equal(collection.NewFloatPrimary(nan())))

	posZero := collection.NewFloatPrimary(0)
	negZero := collection.NewFloatPrimary(negZero())
	require.False(t, posZero.Equal(negZero))
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func negZero() float64 {
	return math.Copysign(0, -1)
}
