package redblack

import (
	"github.com/cyraxred/redblack/internal/rbtree"
)

// Key is the value stored in the tree.
type Key = rbtree.Key

// Tree is a red-black tree of Key-s.
type Tree = rbtree.RBTree

// Node refers to a single element of a Tree. It is returned by Insert, Find, Min and Max
// and is accepted by Erase.
type Node = rbtree.Node

// Allocator owns the memory of the tree nodes.
type Allocator = rbtree.Allocator

// New creates an empty tree with its own allocator.
func New() *Tree {
	return rbtree.NewRBTree(rbtree.NewAllocator())
}

// NewAllocator creates an allocator which can be shared by several trees.
func NewAllocator() *Allocator {
	return rbtree.NewAllocator()
}

// NewTree creates an empty tree which takes its nodes from the given allocator.
func NewTree(allocator *Allocator) *Tree {
	return rbtree.NewRBTree(allocator)
}

// HeightLimit returns the maximum height of a valid tree with n keys.
func HeightLimit(n int) int {
	return rbtree.HeightLimit(n)
}
