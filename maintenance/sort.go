package maintenance

import (
	"github.com/kalscium/oatsgo/idindex"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/query"
	"github.com/kalscium/oatsgo/store"
)

// Sort rewrites the store at path into ascending id order: non-void
// items are sorted by id; each void item is binary-searched into that
// order and kept only if no non-void item already claims its id, so a
// stub never shadows a live item that out-survived it.
func Sort(path string) error {
	src, err := store.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	var live, voids []item.Metadata
	err = streamAll(src, func(md item.Metadata) error {
		if md.Features.Has(item.BitVoid) {
			voids = append(voids, md)
		} else {
			live = append(live, md)
		}
		return nil
	})
	if err != nil {
		return err
	}

	idx := idindex.New()
	for _, md := range live {
		idx.Put(md.ID, md)
	}
	liveSorted := idx.SortedSlice()

	merged := idindex.FromSorted(liveSorted)
	for _, md := range voids {
		if found, _ := query.BinarySearchByID(liveSorted, md.ID); found {
			continue // a live item already claims this id; drop the stub
		}
		merged.Put(md.ID, md)
	}

	rw, err := newRewriter(path)
	if err != nil {
		return err
	}
	for _, md := range merged.SortedSlice() {
		if err := rw.copyFrame(src, md); err != nil {
			rw.abort()
			return err
		}
	}
	return rw.commit()
}
