package rbtree

import (
	"math"
)

//
// Public definitions
//

// Key is the value stored in each tree node.
type Key = int32

// RBTree is a red-black tree of integer keys backed by an Allocator.
//
// Nodes refer to each other by their allocator index; index 0 means "no node".
// Equal keys are allowed and are placed to the right of the existing ones.
type RBTree struct {
	// Root of the tree
	root uint32

	// Number of nodes under root, including the root
	count int32

	// Nodes allocator
	allocator *Allocator
}

// NewRBTree creates a new red-black binary tree.
func NewRBTree(allocator *Allocator) *RBTree {
	return &RBTree{allocator: allocator}
}

func (tree *RBTree) storage() []node {
	tree.checkUsable()
	return tree.allocator.storage
}

func (tree *RBTree) checkUsable() {
	if tree.allocator == nil {
		panic("destroyed trees cannot be used")
	}
	if tree.allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}
}

// Allocator returns the bound nodes allocator.
func (tree *RBTree) Allocator() *Allocator {
	return tree.allocator
}

// Len returns the number of elements in the tree.
func (tree *RBTree) Len() int {
	return int(tree.count)
}

// CloneShallow performs a shallow copy of the tree - the nodes are assumed to already exist in the allocator.
func (tree *RBTree) CloneShallow(allocator *Allocator) *RBTree {
	clone := *tree
	clone.allocator = allocator
	return &clone
}

// Clear removes all the nodes from the tree. The tree stays usable.
func (tree *RBTree) Clear() {
	alloc := tree.storage()
	// post-order: a node is released only after both of its subtrees
	n := tree.root
	for n != 0 {
		switch {
		case alloc[n].left != 0:
			n = alloc[n].left
		case alloc[n].right != 0:
			n = alloc[n].right
		default:
			parent := alloc[n].parent
			if parent != 0 {
				if alloc[parent].left == n {
					alloc[parent].left = 0
				} else {
					alloc[parent].right = 0
				}
			}
			tree.allocator.free(n)
			n = parent
		}
	}
	tree.root = 0
	tree.count = 0
}

// Destroy releases every node back to the allocator and detaches the tree from it.
// The tree cannot be used afterwards.
func (tree *RBTree) Destroy() {
	tree.Clear()
	tree.allocator = nil
}

// Insert adds key to the tree and returns the new node.
func (tree *RBTree) Insert(key Key) Node {
	tree.checkUsable()
	n := tree.allocator.malloc()
	alloc := tree.storage()
	var parent uint32
	for curr := tree.root; curr != 0; {
		parent = curr
		if key < alloc[curr].key {
			curr = alloc[curr].left
		} else {
			curr = alloc[curr].right
		}
	}
	alloc[n] = node{key: key, parent: parent, color: red}
	switch {
	case parent == 0:
		tree.root = n
	case key < alloc[parent].key:
		alloc[parent].left = n
	default:
		alloc[parent].right = n
	}
	tree.count++
	tree.fixInsert(n)
	return Node{tree, n}
}

// Find returns the first node in key order whose key equals the given one.
// The second value is false if there is no such node.
func (tree *RBTree) Find(key Key) (Node, bool) {
	alloc := tree.storage()
	var found uint32
	for n := tree.root; n != 0; {
		switch {
		case alloc[n].key < key:
			n = alloc[n].right
		case alloc[n].key > key:
			n = alloc[n].left
		default:
			// keep looking for an earlier duplicate in the left subtree
			found = n
			n = alloc[n].left
		}
	}
	return Node{tree, found}, found != 0
}

// Contains returns true if the tree holds at least one node with the given key.
func (tree *RBTree) Contains(key Key) bool {
	_, ok := tree.Find(key)
	return ok
}

// Min returns the node with the smallest key. The second value is false if the tree is empty.
func (tree *RBTree) Min() (Node, bool) {
	alloc := tree.storage()
	if tree.root == 0 {
		return Node{}, false
	}
	return Node{tree, minimum(tree.root, alloc)}, true
}

// Max returns the node with the largest key. The second value is false if the tree is empty.
func (tree *RBTree) Max() (Node, bool) {
	alloc := tree.storage()
	n := tree.root
	if n == 0 {
		return Node{}, false
	}
	for alloc[n].right != 0 {
		n = alloc[n].right
	}
	return Node{tree, n}, true
}

// Erase removes the node from the tree and releases it to the allocator.
//
// REQUIRES: the node was returned by this tree and was not erased before.
func (tree *RBTree) Erase(target Node) {
	if target.tree != tree {
		panic("the node does not belong to this tree")
	}
	tree.checkUsable()
	if !tree.allocator.allocated(target.index) {
		panic("the node has already been erased")
	}
	tree.doDelete(target.index)
}

// Flatten writes the keys in ascending order to buf and returns how many were written.
// At most len(buf) keys are written.
func (tree *RBTree) Flatten(buf []Key) int {
	alloc := tree.storage()
	written := 0
	stack := make([]uint32, 0, 64)
	n := tree.root
	for written < len(buf) && (n != 0 || len(stack) > 0) {
		for n != 0 {
			stack = append(stack, n)
			n = alloc[n].left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		buf[written] = alloc[n].key
		written++
		n = alloc[n].right
	}
	return written
}

// Keys returns all the keys in ascending order.
func (tree *RBTree) Keys() []Key {
	keys := make([]Key, tree.Len())
	return keys[:tree.Flatten(keys)]
}

// Height returns the number of nodes on the longest path from the root to a leaf.
func (tree *RBTree) Height() int {
	alloc := tree.storage()
	if tree.root == 0 {
		return 0
	}
	type visit struct {
		node  uint32
		depth int
	}
	height := 0
	stack := []visit{{tree.root, 1}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v.depth > height {
			height = v.depth
		}
		if left := alloc[v.node].left; left != 0 {
			stack = append(stack, visit{left, v.depth + 1})
		}
		if right := alloc[v.node].right; right != 0 {
			stack = append(stack, visit{right, v.depth + 1})
		}
	}
	return height
}

// Node refers to an element of an RBTree. The zero value refers to nothing.
//
// A Node stays valid across other insertions and erasures; it becomes invalid
// once it is erased itself or the tree is cleared or destroyed.
type Node struct {
	tree  *RBTree
	index uint32
}

// Nil returns true if the node does not refer to any element.
func (n Node) Nil() bool {
	return n.index == 0
}

// Key returns the key stored in the node.
//
// REQUIRES: !n.Nil()
func (n Node) Key() Key {
	doAssert(!n.Nil())
	return n.tree.storage()[n.index].key
}

func doAssert(b bool) {
	if !b {
		panic("rbtree internal assertion failed")
	}
}

const (
	red      = false
	black    = true
	maxNodes = math.MaxUint32
)

type node struct {
	key                 Key
	parent, left, right uint32
	color               bool // black or red
}

//
// Internal node attribute accessors
//
func getColor(n uint32, allocator []node) bool {
	if n == 0 {
		return black
	}
	return allocator[n].color
}

func minimum(n uint32, allocator []node) uint32 {
	for allocator[n].left != 0 {
		n = allocator[n].left
	}
	return n
}

//
// Private methods
//

// fixInsert restores the red-black properties after n was attached as a red leaf.
func (tree *RBTree) fixInsert(n uint32) {
	alloc := tree.storage()
	for getColor(alloc[n].parent, alloc) == red {
		parent := alloc[n].parent
		// a red parent is never the root, so the grandparent exists
		grandparent := alloc[parent].parent
		if parent == alloc[grandparent].left {
			uncle := alloc[grandparent].right
			if getColor(uncle, alloc) == red {
				alloc[parent].color = black
				alloc[uncle].color = black
				alloc[grandparent].color = red
				n = grandparent
				continue
			}
			if n == alloc[parent].right {
				n = parent
				tree.rotateLeft(n)
				parent = alloc[n].parent
			}
			alloc[parent].color = black
			alloc[grandparent].color = red
			tree.rotateRight(grandparent)
		} else {
			uncle := alloc[grandparent].left
			if getColor(uncle, alloc) == red {
				alloc[parent].color = black
				alloc[uncle].color = black
				alloc[grandparent].color = red
				n = grandparent
				continue
			}
			if n == alloc[parent].left {
				n = parent
				tree.rotateRight(n)
				parent = alloc[n].parent
			}
			alloc[parent].color = black
			alloc[grandparent].color = red
			tree.rotateLeft(grandparent)
		}
	}
	alloc[tree.root].color = black
}

// Delete N from the tree.
func (tree *RBTree) doDelete(n uint32) {
	alloc := tree.storage()
	spliced := n
	splicedColor := alloc[n].color
	// x takes the place of the spliced node; it may be 0, so its parent is tracked separately
	var x, xParent uint32

	switch {
	case alloc[n].left == 0:
		x = alloc[n].right
		xParent = alloc[n].parent
		tree.transplant(n, x)
	case alloc[n].right == 0:
		x = alloc[n].left
		xParent = alloc[n].parent
		tree.transplant(n, x)
	default:
		spliced = minimum(alloc[n].right, alloc)
		splicedColor = alloc[spliced].color
		x = alloc[spliced].right
		if alloc[spliced].parent == n {
			xParent = spliced
		} else {
			xParent = alloc[spliced].parent
			tree.transplant(spliced, x)
			alloc[spliced].right = alloc[n].right
			alloc[alloc[spliced].right].parent = spliced
		}
		tree.transplant(n, spliced)
		alloc[spliced].left = alloc[n].left
		alloc[alloc[spliced].left].parent = spliced
		alloc[spliced].color = alloc[n].color
	}

	tree.allocator.free(n)
	tree.count--
	if splicedColor == black {
		tree.fixDelete(x, xParent)
	}
}

// fixDelete removes the extra black carried by x whose parent is xParent.
func (tree *RBTree) fixDelete(x, xParent uint32) {
	alloc := tree.storage()
	for x != tree.root && getColor(x, alloc) == black {
		if x == alloc[xParent].left {
			sibling := alloc[xParent].right
			if getColor(sibling, alloc) == red {
				alloc[sibling].color = black
				alloc[xParent].color = red
				tree.rotateLeft(xParent)
				sibling = alloc[xParent].right
			}
			switch {
			case getColor(alloc[sibling].left, alloc) == black && getColor(alloc[sibling].right, alloc) == black:
				alloc[sibling].color = red
				x = xParent
				xParent = alloc[x].parent
				continue
			case getColor(alloc[sibling].right, alloc) == black:
				alloc[alloc[sibling].left].color = black
				alloc[sibling].color = red
				tree.rotateRight(sibling)
				sibling = alloc[xParent].right
			}
			alloc[sibling].color = alloc[xParent].color
			alloc[xParent].color = black
			alloc[alloc[sibling].right].color = black
			tree.rotateLeft(xParent)
			x = tree.root
		} else {
			sibling := alloc[xParent].left
			if getColor(sibling, alloc) == red {
				alloc[sibling].color = black
				alloc[xParent].color = red
				tree.rotateRight(xParent)
				sibling = alloc[xParent].left
			}
			switch {
			case getColor(alloc[sibling].left, alloc) == black && getColor(alloc[sibling].right, alloc) == black:
				alloc[sibling].color = red
				x = xParent
				xParent = alloc[x].parent
				continue
			case getColor(alloc[sibling].left, alloc) == black:
				alloc[alloc[sibling].right].color = black
				alloc[sibling].color = red
				tree.rotateLeft(sibling)
				sibling = alloc[xParent].left
			}
			alloc[sibling].color = alloc[xParent].color
			alloc[xParent].color = black
			alloc[alloc[sibling].left].color = black
			tree.rotateRight(xParent)
			x = tree.root
		}
	}
	if x != 0 {
		alloc[x].color = black
	}
}

// transplant puts the subtree rooted at newn in place of the one rooted at oldn.
func (tree *RBTree) transplant(oldn, newn uint32) {
	alloc := tree.storage()
	parent := alloc[oldn].parent
	switch {
	case parent == 0:
		tree.root = newn
	case oldn == alloc[parent].left:
		alloc[parent].left = newn
	default:
		alloc[parent].right = newn
	}
	if newn != 0 {
		alloc[newn].parent = parent
	}
}

/*
    X		     Y
  A   Y	    =>     X   C
     B C 	  A B
*/
func (tree *RBTree) rotateLeft(x uint32) {
	alloc := tree.storage()
	y := alloc[x].right
	alloc[x].right = alloc[y].left
	if alloc[y].left != 0 {
		alloc[alloc[y].left].parent = x
	}
	alloc[y].parent = alloc[x].parent
	switch parent := alloc[x].parent; {
	case parent == 0:
		tree.root = y
	case x == alloc[parent].left:
		alloc[parent].left = y
	default:
		alloc[parent].right = y
	}
	alloc[y].left = x
	alloc[x].parent = y
}

/*
     Y           X
   X   C  =>   A   Y
  A B             B C
*/
func (tree *RBTree) rotateRight(y uint32) {
	alloc := tree.storage()
	x := alloc[y].left

	// Move "B"
	alloc[y].left = alloc[x].right
	if alloc[x].right != 0 {
		alloc[alloc[x].right].parent = y
	}

	alloc[x].parent = alloc[y].parent
	switch parent := alloc[y].parent; {
	case parent == 0:
		tree.root = x
	case y == alloc[parent].left:
		alloc[parent].left = x
	default:
		alloc[parent].right = x
	}
	alloc[x].right = y
	alloc[y].parent = x
}
