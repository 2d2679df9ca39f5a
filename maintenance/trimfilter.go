package maintenance

import (
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/store"
)

// Trim rewrites src into outPath: items matching pred become void stubs
// (id and features retained, payload and filenames cleared); everything
// else is copied byte-for-byte. The special "everything" token matches
// every item.
func Trim(srcPath, outPath string, pred Predicate) error {
	return rewriteWithPredicate(srcPath, outPath, pred, true)
}

// Filter rewrites src into outPath: items matching pred are copied
// byte-for-byte; everything else becomes a void stub. Filter has no
// "everything" token (ParsePredicate should be called with
// allowEverything=false for filter's attribute list).
func Filter(srcPath, outPath string, pred Predicate) error {
	return rewriteWithPredicate(srcPath, outPath, pred, false)
}

// rewriteWithPredicate implements both Trim and Filter: stubMatches
// selects which side of the predicate (matching vs. non-matching) becomes
// a stub.
func rewriteWithPredicate(srcPath, outPath string, pred Predicate, stubMatches bool) error {
	src, err := store.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	rw, err := newRewriter(outPath)
	if err != nil {
		return err
	}

	err = streamAll(src, func(md item.Metadata) error {
		matches := pred.Match(md.Features)
		if matches == stubMatches {
			return rw.pushRecord(md.Stub())
		}
		return rw.copyFrame(src, md)
	})
	if err != nil {
		rw.abort()
		return err
	}
	return rw.commit()
}
