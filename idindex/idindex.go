// Package idindex is a sorted, id-keyed index of item metadata, used by the
// sort maintenance operation to maintain a "current list of known ids"
// under repeated insertion without repeated O(n) slice splices.
//
// It is a skip list, adapted from a generic memtable.SkipList[K, V]: the
// level-randomized forward-pointer structure is unchanged, but it is
// specialized to uint64 ids over item.Metadata values (the generic
// ordered-key memtable had no use for string/float keys here) and gained a
// SortedSlice method, since the maintenance ops ultimately need a plain
// slice to binary-search and to stream-copy in order.
package idindex

import (
	"iter"
	"math/rand"

	"github.com/kalscium/oatsgo/item"
)

const maxLevel = 32

type node struct {
	id      uint64
	value   item.Metadata
	forward []*node
}

// Index is a sorted-by-id skip list of item.Metadata.
type Index struct {
	head   *node
	levels int
	size   int
}

// New returns an empty index.
func New() *Index {
	return &Index{head: &node{forward: make([]*node, 1)}, levels: -1}
}

// Len returns the number of entries.
func (sl *Index) Len() int { return sl.size }

// Get returns the metadata stored for id, if present.
func (sl *Index) Get(id uint64) (item.Metadata, bool) {
	curr := sl.head
	for level := sl.levels; level >= 0; level-- {
		for curr.forward[level] != nil && curr.forward[level].id < id {
			curr = curr.forward[level]
		}
	}
	if next := curr.forward[0]; next != nil && next.id == id {
		return next.value, true
	}
	return item.Metadata{}, false
}

func randomLevel() int {
	level := 0
	for rand.Int31()&1 == 0 && level < maxLevel {
		level++
	}
	return level
}

func (sl *Index) growTo(level int) {
	forward := make([]*node, level+1)
	copy(forward, sl.head.forward)
	sl.head = &node{forward: forward}
	sl.levels = level
}

// Put inserts or overwrites the metadata for id.
func (sl *Index) Put(id uint64, md item.Metadata) {
	newLevel := randomLevel()
	if newLevel > sl.levels {
		sl.growTo(newLevel)
	}

	updates := make([]*node, sl.levels+1)
	curr := sl.head
	for level := sl.levels; level >= 0; level-- {
		for curr.forward[level] != nil && curr.forward[level].id < id {
			curr = curr.forward[level]
		}
		updates[level] = curr
	}

	if next := curr.forward[0]; next != nil && next.id == id {
		next.value = md
		return
	}

	n := &node{id: id, value: md, forward: make([]*node, newLevel+1)}
	for level := 0; level <= newLevel; level++ {
		n.forward[level] = updates[level].forward[level]
		updates[level].forward[level] = n
	}
	sl.size++
}

// All iterates entries ascending by id.
func (sl *Index) All() iter.Seq[item.Metadata] {
	return func(yield func(item.Metadata) bool) {
		curr := sl.head.forward[0]
		for curr != nil {
			if !yield(curr.value) {
				return
			}
			curr = curr.forward[0]
		}
	}
}

// SortedSlice materializes the index as a plain, id-ascending slice, the
// form query.BinarySearchByID and the maintenance stream-copy loops expect.
func (sl *Index) SortedSlice() []item.Metadata {
	out := make([]item.Metadata, 0, sl.size)
	for md := range sl.All() {
		out = append(out, md)
	}
	return out
}

// FromSorted builds an Index from an already id-ascending slice (e.g. the
// output of query.SortedMetadata).
func FromSorted(sorted []item.Metadata) *Index {
	idx := New()
	for _, md := range sorted {
		idx.Put(md.ID, md)
	}
	return idx
}
