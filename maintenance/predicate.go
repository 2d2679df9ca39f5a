package maintenance

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/item"
)

// EverythingToken is the special Trim-only attribute name that matches
// every item regardless of its feature bitfield.
const EverythingToken = "everything"

// Predicate is a parsed, conjunctive attribute match: an item's feature
// bitfield must have every bit in want set. It is backed by a
// bits-and-blooms/bitset.BitSet rather than a hand-rolled loop over bit
// indices, so "does this bitfield satisfy every requested bit" is one
// IsSuperSet call.
type Predicate struct {
	everything bool
	want       *bitset.BitSet
}

// ParsePredicate parses a comma-enumerable list of feature names into a
// Predicate. allowEverything permits the "everything" token (Trim only).
// Unknown names fail with ErrUnknownAttribute.
func ParsePredicate(attrs []string, allowEverything bool) (Predicate, error) {
	want := bitset.New(8)
	for _, raw := range attrs {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if name == EverythingToken {
			if !allowEverything {
				return Predicate{}, fmt.Errorf("%w: %q is only valid for trim", errs.ErrUnknownAttribute, name)
			}
			return Predicate{everything: true}, nil
		}
		bit, ok := item.AttrNames[name]
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
		}
		want.Set(bit)
	}
	return Predicate{want: want}, nil
}

// Match reports whether f satisfies the predicate: every requested bit is
// set (conjunctive match), or true unconditionally for "everything".
func (p Predicate) Match(f item.Features) bool {
	if p.everything {
		return true
	}
	have := bitset.New(8)
	for bit := uint(0); bit < 8; bit++ {
		if f.Has(bit) {
			have.Set(bit)
		}
	}
	return have.IsSuperSet(p.want)
}
