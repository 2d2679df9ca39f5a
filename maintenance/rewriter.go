// Package maintenance implements the whole-store operations: sort,
// import-with-dedup, trim, filter, count, and pop. Sort, trim and filter are
// single-pass stream-to-stream rewrites that leave the original store
// untouched until a final atomic replace, so a crash mid-rewrite never
// corrupts the original. Import appends to the current store in place,
// count only reads, and pop only moves the stack pointer back.
//
// The write-new-then-replace sequencing is adapted from a segment
// manager's rotation step (close the old handle, open a fresh file, swap
// the pointer) but generalized from "rotate to the next numbered segment"
// to "replace the whole store", using github.com/natefinch/atomic for the
// final rename so an interrupted replace leaves either the old or the new
// file intact, never neither.
package maintenance

import (
	"fmt"
	"os"

	natomic "github.com/natefinch/atomic"

	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/query"
	"github.com/kalscium/oatsgo/store"
)

// TempSuffix is appended to a store's path to derive its rewrite scratch
// file.
const TempSuffix = ".tmp"

// rewriter stages a new store at path+TempSuffix and, on commit, atomically
// replaces path with it. On any error prior to commit the caller must call
// abort to discard the temporary file.
type rewriter struct {
	finalPath string
	tmpPath   string
	handle    *store.Handle
}

func newRewriter(finalPath string) (*rewriter, error) {
	tmpPath := finalPath + TempSuffix
	os.Remove(tmpPath) // discard any stranded temporary from a prior crash
	h, err := store.Initialize(tmpPath)
	if err != nil {
		return nil, err
	}
	return &rewriter{finalPath: finalPath, tmpPath: tmpPath, handle: h}, nil
}

// copyFrame streams the framed entry bytes for md verbatim from src into
// the rewriter's store, without going through item decode/encode. This is
// used for items that pass through unchanged (the non-matching side of
// trim/filter, and sort's untouched items).
func (rw *rewriter) copyFrame(src *store.Handle, md item.Metadata) error {
	raw := make([]byte, md.Size)
	if _, err := src.File().ReadAt(raw, md.StartOffset); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	return rw.handle.PushItem(raw)
}

// pushRecord encodes rec and appends it (used when the rewriter must
// synthesize new bytes: the stubs written by trim/filter).
func (rw *rewriter) pushRecord(rec item.Record) error {
	return rw.handle.PushItem(item.Encode(rec))
}

// commit closes the temporary store and atomically replaces finalPath with
// it.
func (rw *rewriter) commit() error {
	if err := rw.handle.Close(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	if err := natomic.ReplaceFile(rw.tmpPath, rw.finalPath); err != nil {
		os.Remove(rw.tmpPath)
		return fmt.Errorf("%w: atomic replace failed: %v", errs.ErrIOError, err)
	}
	return nil
}

// abort discards the temporary store without touching finalPath.
func (rw *rewriter) abort() {
	rw.handle.Close()
	os.Remove(rw.tmpPath)
}

// streamAll is a small helper shared by trim/filter/count: it scans src's
// metadata in order, handing each entry to visit. visit returning a non-nil
// error aborts the scan.
func streamAll(src *store.Handle, visit func(item.Metadata) error) error {
	for md, err := range query.ScanAllMetadata(src) {
		if err != nil {
			return err
		}
		if err := visit(md); err != nil {
			return err
		}
	}
	return nil
}
