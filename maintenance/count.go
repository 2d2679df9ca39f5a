package maintenance

import (
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/store"
)

// Count performs a full forward scan counting items whose bitfield
// satisfies pred (conjunctive match over the requested attribute list), or,
// when invert is true, those for which it does not.
func Count(path string, pred Predicate, invert bool) (int, error) {
	h, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer h.Close()

	n := 0
	err = streamAll(h, func(md item.Metadata) error {
		if pred.Match(md.Features) != invert {
			n++
		}
		return nil
	})
	return n, err
}
