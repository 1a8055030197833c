package octree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyRoundTrip(t *testing.T) {
	outers := []uint32{0, 1, 7, 4095, 1<<21 - 1}
	for _, outer := range outers {
		for depth := 0; depth <= MaxDepth; depth++ {
			for c1 := range 8 {
				for c2 := range 8 {
					for c3 := range 8 {
						k := NewKey(outer, 0)
						sel := []int{c1, c2, c3}
						for d := 1; d <= depth; d++ {
							k = k.WithChildAndDepth(d, sel[d-1])
						}

						assert.Equal(t, outer, k.Outer())
						assert.Equal(t, depth, k.Depth())
						for d := 1; d <= depth; d++ {
							assert.Equal(t, sel[d-1], k.Child(d))
						}
					}
				}
			}
		}
	}
}

func TestKeyReplaceKeepsOtherFields(t *testing.T) {
	k := NewKey(12345, 0).WithChildAndDepth(1, 5).WithChildAndDepth(2, 3).WithChildAndDepth(3, 7)

	k2 := k.WithChild(2, 6)
	assert.Equal(t, 5, k2.Child(1))
	assert.Equal(t, 6, k2.Child(2))
	assert.Equal(t, 7, k2.Child(3))
	assert.Equal(t, 3, k2.Depth())
	assert.Equal(t, uint32(12345), k2.Outer())

	k3 := k.WithDepth(1)
	assert.Equal(t, 1, k3.Depth())
	assert.Equal(t, uint32(12345), k3.Outer())
	assert.Equal(t, 5, k3.Child(1))
	assert.Equal(t, 2, k.Parent().Depth())
}

func TestKeyLayout(t *testing.T) {
	k := NewKey(1, 2).WithChild(1, 7).WithChild(2, 1)
	assert.Equal(t, Key(1|2<<21|7<<23|1<<26), k)
}

func TestKeyPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { NewKey(0, MaxDepth+1) })
	assert.Panics(t, func() { NewKey(1<<21, 0) })
	assert.Panics(t, func() { NewKey(0, 0).Child(0) })
	assert.Panics(t, func() { NewKey(0, 0).WithChild(1, 8) })
	assert.Panics(t, func() { NewKey(0, 0).Parent() })
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Key(9)", NewKey(9, 0).String())
	assert.Equal(t, "Key(9/4/2)", NewKey(9, 0).WithChildAndDepth(1, 4).WithChildAndDepth(2, 2).String())
	assert.Equal(t, "Key(invalid)", InvalidKey.String())
}
