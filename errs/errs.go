// Package errs defines the sentinel error kinds the core returns. Callers
// use errors.Is against these; the core never retries and propagates the
// first error encountered.
package errs

import "errors"

var (
	// ErrNotFound is returned when the database file is absent.
	ErrNotFound = errors.New("oats: database file not found")

	// ErrMagicMismatch is returned when the first four bytes of a store
	// are not the "oats" magic.
	ErrMagicMismatch = errors.New("oats: magic mismatch")

	// ErrVersionMismatch is returned when the store's major version does
	// not match the library's.
	ErrVersionMismatch = errors.New("oats: version mismatch")

	// ErrEmptyStack is returned by pop/tail when no items remain.
	ErrEmptyStack = errors.New("oats: empty stack")

	// ErrCorruption is returned when a frame's length reads past the
	// stack pointer, lengths disagree, or a feature field overruns its
	// frame.
	ErrCorruption = errors.New("oats: corrupt frame")

	// ErrUnknownAttribute is returned when a trim/filter/count predicate
	// names an attribute that is not a recognized feature bit.
	ErrUnknownAttribute = errors.New("oats: unknown attribute")

	// ErrUnknownVideoKind is the sentinel for a pushed video whose payload
	// magic does not match any recognized container. The item codec
	// itself never sniffs payload bytes (see DESIGN.md, `item`); this is
	// returned by whatever front end decides a video's VideoKind before
	// calling NewVideo.
	ErrUnknownVideoKind = errors.New("oats: unknown video kind")

	// ErrInvalidArgument is returned for malformed caller input (the CLI
	// front end is the primary source of these).
	ErrInvalidArgument = errors.New("oats: invalid argument")

	// ErrIOError wraps an underlying read/write/seek/rename failure.
	ErrIOError = errors.New("oats: io error")

	// ErrPayloadTooLarge is returned when a payload would not fit in the
	// frame codec's u32 length field (4 GiB - 1).
	ErrPayloadTooLarge = errors.New("oats: payload too large")
)
