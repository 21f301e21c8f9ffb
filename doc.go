/*
Package redblack is an ordered multiset of integer keys implemented as a red-black tree.

The nodes live in an Allocator: a growing slice indexed by uint32, so the links between
the nodes are indices instead of pointers and the whole tree can be compressed in memory
with Allocator.Hibernate() while it is idle. Index 0 is reserved and stands for every
missing child, it is always black.

	tree := redblack.New()
	for _, key := range []redblack.Key{10, 20, 5, 1} {
		tree.Insert(key)
	}
	if node, found := tree.Find(10); found {
		tree.Erase(node)
	}
	buf := make([]redblack.Key, tree.Len())
	n := tree.Flatten(buf)
	// buf[:n] is [1 5 20]
	tree.Destroy()

Insert, Find and Erase run in O(log n); the height of a tree with n keys never exceeds
2*log2(n+1), see HeightLimit(). Equal keys are allowed: Find() returns the first of them
in key order.

A tree and its allocator must not be used from several goroutines at the same time.
Several trees may share one allocator as long as they are used from the same goroutine.
*/
package redblack
