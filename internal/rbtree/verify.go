package rbtree

import (
	"math"

	"github.com/pkg/errors"
)

// Verify walks the whole tree and returns an error describing the first broken
// red-black or binary search tree property, or nil if the tree is valid.
func (tree *RBTree) Verify() error {
	alloc := tree.storage()
	if tree.root == 0 {
		if tree.count != 0 {
			return errors.Errorf("empty tree reports %d nodes", tree.count)
		}
		return nil
	}
	if alloc[tree.root].parent != 0 {
		return errors.Errorf("root #%d has parent #%d", tree.root, alloc[tree.root].parent)
	}
	if alloc[tree.root].color != black {
		return errors.Errorf("root #%d is red", tree.root)
	}
	v := verifier{alloc: alloc, limit: int(tree.count)}
	if _, err := v.check(tree.root, 1); err != nil {
		return err
	}
	if v.visited != int(tree.count) {
		return errors.Errorf("reached %d nodes while the tree reports %d", v.visited, tree.count)
	}
	keys := tree.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			return errors.Errorf("keys are out of order at position %d: %d > %d", i, keys[i-1], keys[i])
		}
	}
	return nil
}

// BlackHeight returns the number of black nodes on any path from the root
// to a missing child, not counting the root itself.
func (tree *RBTree) BlackHeight() int {
	alloc := tree.storage()
	height := 0
	for n := tree.root; n != 0; n = alloc[n].left {
		if getColor(alloc[n].left, alloc) == black {
			height++
		}
	}
	return height
}

// HeightLimit returns the largest height a valid red-black tree with n nodes can have.
func HeightLimit(n int) int {
	return int(2 * math.Log2(float64(n+1)))
}

type verifier struct {
	alloc   []node
	limit   int
	visited int
}

// check validates the subtree rooted at n and returns its black-height.
func (v *verifier) check(n uint32, depth int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	v.visited++
	if v.visited > v.limit || depth > v.limit {
		return 0, errors.Errorf("node #%d is beyond the %d nodes reported by the tree", n, v.limit)
	}
	if int(n) >= len(v.alloc) {
		return 0, errors.Errorf("node #%d is outside of the allocator", n)
	}
	current := v.alloc[n]
	for _, child := range [...]uint32{current.left, current.right} {
		if child == 0 {
			continue
		}
		if int(child) >= len(v.alloc) {
			return 0, errors.Errorf("child #%d of node #%d is outside of the allocator", child, n)
		}
		if v.alloc[child].parent != n {
			return 0, errors.Errorf("node #%d points to parent #%d instead of #%d",
				child, v.alloc[child].parent, n)
		}
		if current.color == red && v.alloc[child].color == red {
			return 0, errors.Errorf("red node #%d has red child #%d", n, child)
		}
	}
	if current.left != 0 && v.alloc[current.left].key > current.key {
		return 0, errors.Errorf("left child #%d of node #%d has a greater key", current.left, n)
	}
	if current.right != 0 && v.alloc[current.right].key < current.key {
		return 0, errors.Errorf("right child #%d of node #%d has a smaller key", current.right, n)
	}
	left, err := v.check(current.left, depth+1)
	if err != nil {
		return 0, err
	}
	right, err := v.check(current.right, depth+1)
	if err != nil {
		return 0, err
	}
	if getColor(current.left, v.alloc) == black {
		left++
	}
	if getColor(current.right, v.alloc) == black {
		right++
	}
	if left != right {
		return 0, errors.Errorf("node #%d has black-height %d on the left and %d on the right", n, left, right)
	}
	return left, nil
}
