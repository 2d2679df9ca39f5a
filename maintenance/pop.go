package maintenance

import (
	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/store"
)

// Pop removes up to n items from the back of the store at path and
// persists the reduced stack pointer, returning the popped records
// oldest-first. Unlike query.Tail, this mutates the store on disk.
func Pop(path string, n int) ([]item.Record, error) {
	h, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	if h.StackPointer() == store.HeaderSize {
		return nil, errs.ErrEmptyStack
	}

	var recs []item.Record
	for i := 0; i < n && h.StackPointer() > store.HeaderSize; i++ {
		raw, err := h.PopItem()
		if err != nil {
			return nil, err
		}
		rec, err := item.DecodeRecord(raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}
