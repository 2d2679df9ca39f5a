package maintenance

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/kalscium/oatsgo/config"
	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/query"
	"github.com/kalscium/oatsgo/store"
)

// ImportResult reports how many items import brought in.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Import merges externalPath into the store at currentPath. For every
// incoming item not already present by id, its framed bytes are copied
// into the current store verbatim. An id that already exists is skipped
// in both directions, "current wins", even when the existing entry is a
// void stub and the incoming one is live: this is the conservative,
// explicit policy rather than a guess (see DESIGN.md).
//
// Ordering is broken by merging two id-sorted runs out of order with
// respect to each other; callers should run Sort afterward.
//
// cfg supplies the bloom filter's false-positive rate
// (cfg.ImportBloomFalsePositiveRate); pass config.Default() for the
// built-in rate.
func Import(currentPath, externalPath string, cfg config.Defaults) (ImportResult, error) {
	cur, err := store.Open(currentPath)
	if err != nil {
		return ImportResult{}, err
	}
	defer cur.Close()

	ext, err := store.Open(externalPath)
	if err != nil {
		return ImportResult{}, err
	}
	defer ext.Close()

	sortedCur, err := query.SortedMetadata(cur)
	if err != nil {
		return ImportResult{}, err
	}

	fpRate := cfg.ImportBloomFalsePositiveRate
	if fpRate <= 0 {
		fpRate = config.Default().ImportBloomFalsePositiveRate
	}

	// A bloom filter over the current store's ids lets a definitely-absent
	// incoming id skip the binary search outright. It is an optimization
	// only: a positive (possibly false) hit always falls through to the
	// authoritative binary search below, so bloom false positives can
	// never cause an id to be wrongly treated as present.
	filter := bloom.NewWithEstimates(uint(max(len(sortedCur), 1)), fpRate)
	for _, md := range sortedCur {
		filter.Add(idKey(md.ID))
	}

	var result ImportResult
	known := sortedCur // kept id-sorted; grows as items are imported

	err = streamAll(ext, func(incoming item.Metadata) error {
		if filter.Test(idKey(incoming.ID)) {
			if found, _ := query.BinarySearchByID(known, incoming.ID); found {
				result.Skipped++
				return nil
			}
		}

		raw := make([]byte, incoming.Size)
		if _, rerr := ext.File().ReadAt(raw, incoming.StartOffset); rerr != nil {
			return fmt.Errorf("%w: %v", errs.ErrIOError, rerr)
		}
		if err := cur.PushItem(raw); err != nil {
			return err
		}

		_, insertAt := query.BinarySearchByID(known, incoming.ID)
		known = insertSorted(known, insertAt, incoming)
		filter.Add(idKey(incoming.ID))
		result.Imported++
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	return result, nil
}

func insertSorted(s []item.Metadata, at int, md item.Metadata) []item.Metadata {
	s = append(s, item.Metadata{})
	copy(s[at+1:], s[at:])
	s[at] = md
	return s
}

func idKey(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}
