// Package query implements metadata-only scans over a store and the
// sub-linear id lookup (binary search over a sorted metadata slice) that
// the maintenance operations build on.
//
// ScanAllMetadata returns a pull-style iter.Seq2, the same shape as a
// write-ahead log reader's Iter method, so a caller can stop scanning
// early without draining the file. Tail does not use it: it walks backward
// from the stack pointer instead.
package query

import (
	"iter"
	"sort"

	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/frame"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/store"
)

// ScanAllMetadata walks h from the stack start to its cached stack pointer,
// decoding each item to Metadata only; payloads are never read.
func ScanAllMetadata(h *store.Handle) iter.Seq2[item.Metadata, error] {
	return func(yield func(item.Metadata, error) bool) {
		readPtr := int64(store.HeaderSize)
		stackPtr := h.StackPointer()
		for readPtr < stackPtr {
			bytes, next, err := frame.ScanNext(h.File(), readPtr)
			if err != nil {
				yield(item.Metadata{}, err)
				return
			}
			md, err := item.Decode(bytes, readPtr+4)
			if err != nil {
				yield(item.Metadata{}, err)
				return
			}
			if !yield(md, nil) {
				return
			}
			readPtr = next
		}
	}
}

// ReadPayload reads md's payload bytes directly from h's file, without
// rescanning the frame.
func ReadPayload(h *store.Handle, md item.Metadata) ([]byte, error) {
	buf := make([]byte, md.PayloadSize())
	if len(buf) == 0 {
		return buf, nil
	}
	off := md.StartOffset + md.ContentsOffset
	n, err := h.File().ReadAt(buf, off)
	if err != nil && int64(n) != md.PayloadSize() {
		return nil, errs.ErrIOError
	}
	return buf, nil
}

// Tail pops up to n items from the back of the store without persisting the
// reduced stack pointer, returning them oldest-first (the order they would
// print in a normal listing). It fails with ErrEmptyStack if the store has
// no items to show at all.
func Tail(h *store.Handle, n int) ([]item.Record, error) {
	stackPtr := h.StackPointer()
	if stackPtr == store.HeaderSize {
		return nil, errs.ErrEmptyStack
	}

	var recs []item.Record
	cur := stackPtr
	for i := 0; i < n && cur > store.HeaderSize; i++ {
		bytes, next, err := h.PeekPop(cur)
		if err != nil {
			return nil, err
		}
		rec, err := item.DecodeRecord(bytes)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
		cur = next
	}

	// recs is newest-first; reverse to oldest-first for display.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// SortedMetadata returns all metadata for h sorted ascending by id.
func SortedMetadata(h *store.Handle) ([]item.Metadata, error) {
	var out []item.Metadata
	for md, err := range ScanAllMetadata(h) {
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BinarySearchByID returns the position of an id match in sorted (a slice
// sorted ascending by id), or the insertion index and found=false when no
// match exists.
func BinarySearchByID(sorted []item.Metadata, target uint64) (found bool, index int) {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i].ID >= target })
	if idx < len(sorted) && sorted[idx].ID == target {
		return true, idx
	}
	return false, idx
}
