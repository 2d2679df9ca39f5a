// Package store maintains the on-disk log-store contract: the "oats" magic,
// major version, and 8-byte stack pointer header, plus the push/pop
// primitives built on the frame codec.
//
// The open/initialize shape follows a write-ahead log writer's constructor
// (seek to the right place on open, create-if-missing on initialize), but
// drops the background writer goroutine entirely: the core is
// single-threaded cooperative, so push/pop complete synchronously on the
// caller's goroutine.
package store

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/frame"
)

const (
	// Magic is the fixed ASCII header every store file begins with.
	Magic = "oats"
	// MajorVersion is the format version this library writes and requires.
	MajorVersion = byte(1)

	magicOffset    = 0
	versionOffset  = 4
	stackPtrOffset = 5
	// HeaderSize is the byte offset at which the stack body begins; also
	// the minimum legal stack pointer.
	HeaderSize = 13
)

// Handle is an open store file plus its cached stack pointer.
type Handle struct {
	f        *os.File
	stackPtr int64
}

// Path returns the handle's underlying file path.
func (h *Handle) Path() string { return h.f.Name() }

// StackPointer returns the cached stack pointer: the value read when the
// handle was opened, or the last one written through it. ReadStackPointer
// does not update it.
func (h *Handle) StackPointer() int64 { return h.stackPtr }

// Close closes the underlying file.
func (h *Handle) Close() error { return h.f.Close() }

// Initialize creates a new store file at path, writing the header and an
// empty stack body. It refuses to clobber a file that already carries a
// valid "oats" magic (mirroring segmentmanager's refusal to blindly
// overwrite existing segments); callers that want a hard reset remove the
// file first.
func Initialize(path string) (*Handle, error) {
	if f, err := os.Open(path); err == nil {
		var magic [4]byte
		_, readErr := f.ReadAt(magic[:], 0)
		f.Close()
		if readErr == nil && string(magic[:]) == Magic {
			return nil, fmt.Errorf("oats: %s already contains a valid store; remove it first", path)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	h := &Handle{f: f, stackPtr: HeaderSize}
	if err := h.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

func (h *Handle) writeHeader() error {
	var hdr [HeaderSize]byte
	copy(hdr[magicOffset:], Magic)
	hdr[versionOffset] = MajorVersion
	binary.BigEndian.PutUint64(hdr[stackPtrOffset:], uint64(h.stackPtr))
	if _, err := h.f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	return nil
}

// Open opens an existing store file, verifying the magic and major version
// and caching the current stack pointer.
func Open(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	var hdr [HeaderSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	if string(hdr[magicOffset:versionOffset]) != Magic {
		f.Close()
		return nil, errs.ErrMagicMismatch
	}
	if hdr[versionOffset] != MajorVersion {
		f.Close()
		return nil, errs.ErrVersionMismatch
	}

	stackPtr := int64(binary.BigEndian.Uint64(hdr[stackPtrOffset:HeaderSize]))
	if stackPtr < HeaderSize {
		f.Close()
		return nil, fmt.Errorf("%w: stack pointer %d precedes header", errs.ErrCorruption, stackPtr)
	}

	return &Handle{f: f, stackPtr: stackPtr}, nil
}

// ReadStackPointer re-reads the 8-byte stack pointer from disk (used by
// readers that want a fresh upper bound rather than the cached value).
func (h *Handle) ReadStackPointer() (int64, error) {
	var b [8]byte
	if _, err := h.f.ReadAt(b[:], stackPtrOffset); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

// WriteStackPointer persists p as the new stack pointer. This is always the
// last write of any append: the frame bytes must already be on disk before
// this is called.
func (h *Handle) WriteStackPointer(p int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(p))
	if _, err := h.f.WriteAt(b[:], stackPtrOffset); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	h.stackPtr = p
	return nil
}

// PushItem appends itemBytes as a new frame and persists the advanced stack
// pointer.
func (h *Handle) PushItem(itemBytes []byte) error {
	next, err := frame.PushFrame(h.f, h.stackPtr, itemBytes)
	if err != nil {
		return err
	}
	return h.WriteStackPointer(next)
}

// PopItem removes and returns the last item's bytes, persisting the reduced
// stack pointer.
func (h *Handle) PopItem() ([]byte, error) {
	bytes, next, err := frame.PopFrame(h.f, h.stackPtr, HeaderSize)
	if err != nil {
		return nil, err
	}
	if err := h.WriteStackPointer(next); err != nil {
		return nil, err
	}
	return bytes, nil
}

// PeekPop returns the bytes of the frame immediately preceding stackPtr
// without changing the handle's cached or persisted stack pointer (used by
// tail, which must leave the store unchanged).
// It returns the stack pointer the store would have if the pop were
// committed; the caller is responsible for not calling WriteStackPointer.
func (h *Handle) PeekPop(stackPtr int64) (bytes []byte, newStackPtr int64, err error) {
	return frame.PopFrame(h.f, stackPtr, HeaderSize)
}

// File exposes the underlying *os.File for packages (query, maintenance)
// that need to stream frame bytes directly (e.g. copying a frame verbatim
// into another store without decoding it).
func (h *Handle) File() *os.File { return h.f }
