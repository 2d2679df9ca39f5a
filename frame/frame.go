// Package frame implements the length-padded entry format that the log
// store streams its items through: a four-byte big-endian length, the
// entry bytes, then the same length repeated. The trailing length lets a
// reader walk the stream backwards without an index, the way a stack pops.
//
// Every operation here seeks explicitly rather than relying on an append-only
// file descriptor, mirroring the seek-then-patch shape of a write-ahead log's
// Encode method: push writes its length placeholder, writes the body, then
// the caller advances the stack pointer; there is nothing to patch after the
// fact because the length is known up front.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kalscium/oatsgo/errs"
)

// MaxEntryLen is the largest entry the u32 length field can address.
const MaxEntryLen = 1<<32 - 1

// Stream is the minimal file-like handle the frame codec needs.
type Stream interface {
	io.ReaderAt
	io.WriterAt
}

// PushFrame writes bytes as a new frame starting at stackPtr and returns the
// stack pointer just past the new frame. It fails with ErrPayloadTooLarge if
// bytes would not fit the u32 length field, and with ErrIOError on any short
// write.
func PushFrame(s Stream, stackPtr int64, bytes []byte) (newStackPtr int64, err error) {
	n := len(bytes)
	if uint64(n) > MaxEntryLen {
		return 0, fmt.Errorf("%w: entry of %d bytes exceeds u32 frame length", errs.ErrPayloadTooLarge, n)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(n))

	if err := writeFullAt(s, lenBuf[:], stackPtr); err != nil {
		return 0, err
	}
	if err := writeFullAt(s, bytes, stackPtr+4); err != nil {
		return 0, err
	}
	if err := writeFullAt(s, lenBuf[:], stackPtr+4+int64(n)); err != nil {
		return 0, err
	}

	return stackPtr + 8 + int64(n), nil
}

// PopFrame reads the frame immediately preceding stackPtr, returning its
// bytes and the stack pointer with that frame removed. stackStart is the
// lowest legal stack pointer (the byte offset where frames begin); popping
// at that point fails with ErrEmptyStack.
func PopFrame(s Stream, stackPtr, stackStart int64) (bytes []byte, newStackPtr int64, err error) {
	if stackPtr <= stackStart {
		return nil, 0, errs.ErrEmptyStack
	}
	if stackPtr-stackStart < 8 {
		return nil, 0, fmt.Errorf("%w: stack pointer %d leaves a partial frame", errs.ErrCorruption, stackPtr)
	}

	var lenBuf [4]byte
	if err := readFullAt(s, lenBuf[:], stackPtr-4); err != nil {
		return nil, 0, err
	}
	l := int64(binary.BigEndian.Uint32(lenBuf[:]))

	bodyStart := stackPtr - 4 - l
	if bodyStart < stackStart {
		return nil, 0, fmt.Errorf("%w: frame length %d implies an offset before the stack start", errs.ErrCorruption, l)
	}

	buf := make([]byte, l)
	if err := readFullAt(s, buf, bodyStart); err != nil {
		return nil, 0, err
	}

	return buf, bodyStart - 4, nil
}

// ScanNext reads the frame starting at readPtr and returns its bytes along
// with the position of the next frame. The caller must ensure
// readPtr < stackPtr before calling.
func ScanNext(s Stream, readPtr int64) (bytes []byte, nextReadPtr int64, err error) {
	var lenBuf [4]byte
	if err := readFullAt(s, lenBuf[:], readPtr); err != nil {
		return nil, 0, err
	}
	l := int64(binary.BigEndian.Uint32(lenBuf[:]))

	buf := make([]byte, l)
	if err := readFullAt(s, buf, readPtr+4); err != nil {
		return nil, 0, err
	}

	// Confirm the trailing length matches the leading one.
	var trailBuf [4]byte
	if err := readFullAt(s, trailBuf[:], readPtr+4+l); err != nil {
		return nil, 0, err
	}
	if binary.BigEndian.Uint32(trailBuf[:]) != uint32(l) {
		return nil, 0, fmt.Errorf("%w: frame length fields disagree at offset %d", errs.ErrCorruption, readPtr)
	}

	return buf, readPtr + 8 + l, nil
}

func writeFullAt(s Stream, p []byte, off int64) error {
	n, err := s.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: short write at offset %d (%d of %d bytes)", errs.ErrIOError, off, n, len(p))
	}
	return nil
}

func readFullAt(s Stream, p []byte, off int64) error {
	n, err := s.ReadAt(p, off)
	if err != nil && !(err == io.EOF && n == len(p)) {
		return fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: short read at offset %d (%d of %d bytes)", errs.ErrIOError, off, n, len(p))
	}
	return nil
}
