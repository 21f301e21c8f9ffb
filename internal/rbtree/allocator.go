package rbtree

import (
	"sync"

	"github.com/gogo/protobuf/sortkeys"
	"github.com/pkg/errors"
)

// columns is the number of deinterleaved node fields kept while hibernated:
// key, left, parent, right and color.
const columns = 5

// Allocator is the allocator for nodes in a RBTree.
//
// Slot #0 is reserved: it stands for every missing child and for the parent
// of the root. It is never handed out and never written to.
type Allocator struct {
	HibernationThreshold int

	storage              []node
	gaps                 map[uint32]bool
	hibernatedData       [columns + 1][]byte
	hibernatedDigests    [columns + 1]uint64
	hibernatedStorageLen int
	hibernatedGapsLen    int
}

// NewAllocator creates a new allocator for RBTree's nodes.
func NewAllocator() *Allocator {
	return &Allocator{
		storage: []node{},
		gaps:    map[uint32]bool{},
	}
}

// Size returns the currently allocated size.
func (allocator *Allocator) Size() int {
	return len(allocator.storage)
}

// Used returns the number of nodes contained in the allocator.
func (allocator *Allocator) Used() int {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}
	return len(allocator.storage) - len(allocator.gaps)
}

// Hibernated reports whether the allocator memory is currently compressed.
func (allocator *Allocator) Hibernated() bool {
	return allocator.storage == nil
}

// Clone copies an existing RBTree allocator.
func (allocator *Allocator) Clone() *Allocator {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}
	newAllocator := &Allocator{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node, len(allocator.storage), cap(allocator.storage)),
		gaps:                 map[uint32]bool{},
	}
	copy(newAllocator.storage, allocator.storage)
	for key, val := range allocator.gaps {
		newAllocator.gaps[key] = val
	}
	return newAllocator
}

// Hibernate compresses the allocated memory. The trees bound to the allocator
// must not be used until Boot() is called.
func (allocator *Allocator) Hibernate() {
	if allocator.hibernatedStorageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}
	if len(allocator.storage) < allocator.HibernationThreshold {
		return
	}
	allocator.hibernatedStorageLen = len(allocator.storage)
	if allocator.hibernatedStorageLen == 0 {
		allocator.storage = nil
		allocator.gaps = nil
		return
	}
	buffers := [columns][]uint32{}
	for i := 0; i < len(buffers); i++ {
		buffers[i] = make([]uint32, len(allocator.storage))
	}
	// we deinterleave to achieve a better compression ratio
	for i, n := range allocator.storage {
		buffers[0][i] = uint32(n.key)
		buffers[1][i] = n.left
		buffers[2][i] = n.parent
		buffers[3][i] = n.right
		if n.color {
			buffers[4][i] = 1
		}
	}
	allocator.storage = nil
	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 1)
	for i, buffer := range buffers {
		go func(i int, buffer []uint32) {
			allocator.hibernatedData[i] = CompressUInt32Slice(buffer)
			allocator.hibernatedDigests[i] = digest(allocator.hibernatedData[i])
			buffers[i] = nil
			wg.Done()
		}(i, buffer)
	}
	// compress gaps
	go func() {
		if len(allocator.gaps) > 0 {
			allocator.hibernatedGapsLen = len(allocator.gaps)
			gapsBuffer := make([]uint32, 0, len(allocator.gaps))
			for key := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, key)
			}
			sortkeys.Uint32s(gapsBuffer)
			allocator.hibernatedData[columns] = CompressUInt32Slice(gapsBuffer)
			allocator.hibernatedDigests[columns] = digest(allocator.hibernatedData[columns])
		}
		allocator.gaps = nil
		wg.Done()
	}()
	wg.Wait()
}

// Boot performs the opposite of Hibernate() - decompresses and restores the allocated memory.
func (allocator *Allocator) Boot() {
	if allocator.storage != nil {
		// not hibernated
		return
	}
	allocator.gaps = map[uint32]bool{}
	if allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node{}
		return
	}
	buffers := [columns][]uint32{}
	errs := [columns + 1]error{}
	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 1)
	for i := 0; i < len(buffers); i++ {
		go func(i int) {
			defer wg.Done()
			buffers[i] = make([]uint32, allocator.hibernatedStorageLen)
			errs[i] = allocator.unpack(i, buffers[i])
		}(i)
	}
	go func() {
		defer wg.Done()
		if allocator.hibernatedGapsLen > 0 {
			buffer := make([]uint32, allocator.hibernatedGapsLen)
			if errs[columns] = allocator.unpack(columns, buffer); errs[columns] != nil {
				return
			}
			for _, key := range buffer {
				allocator.gaps[key] = true
			}
		}
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			panic(err.Error())
		}
	}
	allocator.hibernatedGapsLen = 0
	allocator.storage = make([]node, allocator.hibernatedStorageLen, (allocator.hibernatedStorageLen*3)/2)
	for i := range allocator.storage {
		n := &allocator.storage[i]
		n.key = Key(buffers[0][i])
		n.left = buffers[1][i]
		n.parent = buffers[2][i]
		n.right = buffers[3][i]
		n.color = buffers[4][i] > 0
	}
	allocator.hibernatedStorageLen = 0
}

// unpack restores the hibernated column #i into result.
func (allocator *Allocator) unpack(i int, result []uint32) error {
	data := allocator.hibernatedData[i]
	if digest(data) != allocator.hibernatedDigests[i] {
		return errors.Errorf("hibernated allocator column %d is corrupted", i)
	}
	if err := DecompressUInt32Slice(data, result); err != nil {
		return errors.Wrapf(err, "hibernated allocator column %d", i)
	}
	allocator.hibernatedData[i] = nil
	allocator.hibernatedDigests[i] = 0
	return nil
}

func (allocator *Allocator) malloc() uint32 {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}
	if len(allocator.gaps) > 0 {
		var key uint32
		for key = range allocator.gaps {
			break
		}
		delete(allocator.gaps, key)
		return key
	}
	n := len(allocator.storage)
	if n == 0 {
		// zero is reserved
		allocator.storage = append(allocator.storage, node{})
		n = 1
	}
	if uint64(n) >= maxNodes {
		panic("the size of the RBTree allocator has reached the maximum value for uint32")
	}
	allocator.storage = append(allocator.storage, node{})
	return uint32(n)
}

func (allocator *Allocator) free(n uint32) {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}
	if n == 0 {
		panic("node #0 is special and cannot be deallocated")
	}
	_, exists := allocator.gaps[n]
	doAssert(!exists)
	allocator.storage[n] = node{}
	allocator.gaps[n] = true
}

// allocated reports whether slot n currently holds a live node.
func (allocator *Allocator) allocated(n uint32) bool {
	return n != 0 && int(n) < len(allocator.storage) && !allocator.gaps[n]
}
