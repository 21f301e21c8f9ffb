package redblack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	tree := New()
	for _, key := range []Key{10, 20, 5, 1} {
		tree.Insert(key)
	}
	buf := make([]Key, 4)
	assert.Equal(t, 4, tree.Flatten(buf))
	assert.Equal(t, []Key{1, 5, 10, 20}, buf)

	node, found := tree.Find(10)
	assert.True(t, found)
	assert.Equal(t, Key(10), node.Key())
	tree.Erase(node)
	assert.Equal(t, 3, tree.Flatten(buf))
	assert.Equal(t, []Key{1, 5, 20}, buf[:3])

	_, found = tree.Find(10)
	assert.False(t, found)
	assert.NoError(t, tree.Verify())
	tree.Destroy()
}

func TestEmptyTree(t *testing.T) {
	tree := New()
	_, found := tree.Find(1)
	assert.False(t, found)
	_, found = tree.Min()
	assert.False(t, found)
	_, found = tree.Max()
	assert.False(t, found)
	assert.Equal(t, 0, tree.Flatten(make([]Key, 8)))
	assert.NoError(t, tree.Verify())
	tree.Destroy()
}

func TestSharedAllocator(t *testing.T) {
	alloc := NewAllocator()
	first := NewTree(alloc)
	second := NewTree(alloc)
	for i := Key(0); i < 100; i++ {
		first.Insert(i)
		second.Insert(-i)
	}
	assert.Equal(t, 201, alloc.Used())
	first.Destroy()
	assert.Equal(t, 101, alloc.Used())
	assert.Equal(t, 100, second.Len())
	assert.NoError(t, second.Verify())
	assert.True(t, second.Height() <= HeightLimit(second.Len()))
}
