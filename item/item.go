// Package item implements the codec for a single stored record: a 64-bit
// id, a one-byte feature bitfield, the feature fields the bitfield marks
// present, and a raw payload. The wire layout is a fixed, forward- and
// backward-compatible contract; the bit *positions* must never be
// renumbered once assigned.
//
// The encoder/decoder shape follows a write-ahead log's Encode/Decode
// (sequential binary.Write/Read calls over a tagged set of fields), but
// drops the CRC entirely: payload integrity is an explicit non-goal here.
package item

import (
	"encoding/binary"
	"fmt"

	"github.com/kalscium/oatsgo/errs"
)

// Bit positions of the feature bitfield. These are part of the on-disk
// format; new features must be assigned higher bits than any used so far.
const (
	BitExtended  = 0 // reserved sentinel, currently unused
	BitTimestamp = 1
	BitSessionID = 2
	BitImage     = 3
	BitMobile    = 4
	BitVoid      = 5
	BitFile      = 6
	BitVideoKind = 7
)

// Features is the one-byte feature bitfield.
type Features byte

// Has reports whether bit is set.
func (f Features) Has(bit uint) bool { return f&(1<<bit) != 0 }

// With returns f with bit set.
func (f Features) With(bit uint) Features { return f | Features(1<<bit) }

// AttrNames maps trim/filter/count attribute names to bit positions. Used by
// the maintenance predicate matcher; an unrecognized name is ErrUnknownAttribute.
var AttrNames = map[string]uint{
	"timestamp":  BitTimestamp,
	"session_id": BitSessionID,
	"image":      BitImage,
	"mobile":     BitMobile,
	"void":       BitVoid,
	"file":       BitFile,
	"video":      BitVideoKind,
}

// VideoKind enumerates the recognized video containers.
type VideoKind byte

const (
	VideoKindNone VideoKind = 0
	VideoKindMP4  VideoKind = 1
	VideoKindOgg  VideoKind = 2
	VideoKindWebM VideoKind = 3
)

func (k VideoKind) String() string {
	switch k {
	case VideoKindMP4:
		return "mp4"
	case VideoKindOgg:
		return "ogg"
	case VideoKindWebM:
		return "webm"
	default:
		return "unknown"
	}
}

// Record is a fully decoded item, payload included. Encode/decode round-trip
// a Record byte for byte.
type Record struct {
	ID            uint64
	Features      Features
	Timestamp     int64 // valid iff Features.Has(BitTimestamp)
	SessionID     int64 // valid iff Features.Has(BitSessionID)
	ImageFilename []byte
	Filename      []byte
	VideoKind     VideoKind
	Payload       []byte
}

// NewText builds a plain text record. ts/sessionID are omitted from the
// bitfield when hasTS/hasSession are false.
func NewText(id uint64, payload []byte, ts int64, hasTS bool, sessionID int64, hasSession bool, mobile bool) Record {
	r := Record{ID: id, Payload: payload, Timestamp: ts, SessionID: sessionID}
	var f Features
	if hasTS {
		f = f.With(BitTimestamp)
	}
	if hasSession {
		f = f.With(BitSessionID)
	}
	if mobile {
		f = f.With(BitMobile)
	}
	r.Features = f
	return r
}

// NewImage builds an image record; filename may be empty but not nil-absent.
func NewImage(id uint64, filename, payload []byte, ts int64, hasTS bool, sessionID int64, hasSession bool, mobile bool) Record {
	r := NewText(id, payload, ts, hasTS, sessionID, hasSession, mobile)
	r.ImageFilename = filename
	r.Features = r.Features.With(BitImage)
	return r
}

// NewFile builds a file record (or, combined with a video kind via
// NewVideo, a video that also carries a filename).
func NewFile(id uint64, filename, payload []byte, ts int64, hasTS bool, sessionID int64, hasSession bool, mobile bool) Record {
	r := NewText(id, payload, ts, hasTS, sessionID, hasSession, mobile)
	r.Filename = filename
	r.Features = r.Features.With(BitFile)
	return r
}

// NewVideo builds a video record. filename is optional (pass nil to omit
// the file-kind bit and leave only the video-kind bit set).
func NewVideo(id uint64, filename, payload []byte, kind VideoKind, ts int64, hasTS bool, sessionID int64, hasSession bool, mobile bool) Record {
	r := NewText(id, payload, ts, hasTS, sessionID, hasSession, mobile)
	if filename != nil {
		r.Filename = filename
		r.Features = r.Features.With(BitFile)
	}
	r.VideoKind = kind
	r.Features = r.Features.With(BitVideoKind)
	return r
}

// Kind classifies a record for rendering purposes.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindFile
	KindVideo
)

// Kind reports the record's rendering kind. Bit 3 (image) takes precedence,
// then bit 7 (video, which may coexist with a filename), then bit 6 (file),
// else plain text.
func (r Record) Kind() Kind {
	switch {
	case r.Features.Has(BitImage):
		return KindImage
	case r.Features.Has(BitVideoKind):
		return KindVideo
	case r.Features.Has(BitFile):
		return KindFile
	default:
		return KindText
	}
}

// Encode serializes id, the bitfield (set exactly for present features),
// then each present feature field in fixed order, then the payload.
func Encode(r Record) []byte {
	f := r.Features
	buf := make([]byte, 0, 8+1+len(r.Payload)+32)

	var idb [8]byte
	binary.BigEndian.PutUint64(idb[:], r.ID)
	buf = append(buf, idb[:]...)
	buf = append(buf, byte(f))

	if f.Has(BitTimestamp) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(r.Timestamp))
		buf = append(buf, b[:]...)
	}
	if f.Has(BitSessionID) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(r.SessionID))
		buf = append(buf, b[:]...)
	}
	if f.Has(BitImage) {
		buf = appendLenPrefixed(buf, r.ImageFilename)
	}
	if f.Has(BitFile) {
		buf = appendLenPrefixed(buf, r.Filename)
	}
	// bit 4 (mobile) and bit 5 (void) are flag-only: no bytes.
	if f.Has(BitVideoKind) {
		buf = append(buf, byte(r.VideoKind))
	}

	buf = append(buf, r.Payload...)
	return buf
}

func appendLenPrefixed(buf, s []byte) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

// Metadata is the in-memory scan summary: everything about an item except
// its payload bytes, plus the file positions needed to fetch the payload
// later without rescanning.
type Metadata struct {
	ID            uint64
	Features      Features
	Timestamp     int64
	SessionID     int64
	ImageFilename []byte
	Filename      []byte
	VideoKind     VideoKind

	// StartOffset is the file position of the item record (just past the
	// frame's leading length).
	StartOffset int64
	// ContentsOffset is the number of bytes from StartOffset to the start
	// of the payload.
	ContentsOffset int64
	// Size is the total item-record length (frame length value).
	Size int64
}

// PayloadSize is the number of payload bytes, derived from Size and
// ContentsOffset.
func (m Metadata) PayloadSize() int64 { return m.Size - m.ContentsOffset }

// Decode reads id, the bitfield, and each present feature field from bytes,
// computing Metadata without touching the payload. startOffset is recorded
// verbatim into the result. Decode fails with ErrCorruption if any field
// would read past bytes.
func Decode(bytes []byte, startOffset int64) (Metadata, error) {
	if len(bytes) < 9 {
		return Metadata{}, fmt.Errorf("%w: item record shorter than id+bitfield", errs.ErrCorruption)
	}

	md := Metadata{
		ID:          binary.BigEndian.Uint64(bytes[0:8]),
		Features:    Features(bytes[8]),
		StartOffset: startOffset,
		Size:        int64(len(bytes)),
	}
	pos := 9

	need := func(n int) error {
		if pos+n > len(bytes) {
			return fmt.Errorf("%w: feature field overruns item record", errs.ErrCorruption)
		}
		return nil
	}

	if md.Features.Has(BitTimestamp) {
		if err := need(8); err != nil {
			return Metadata{}, err
		}
		md.Timestamp = int64(binary.BigEndian.Uint64(bytes[pos : pos+8]))
		pos += 8
	}
	if md.Features.Has(BitSessionID) {
		if err := need(8); err != nil {
			return Metadata{}, err
		}
		md.SessionID = int64(binary.BigEndian.Uint64(bytes[pos : pos+8]))
		pos += 8
	}
	if md.Features.Has(BitImage) {
		s, n, err := readLenPrefixed(bytes, pos)
		if err != nil {
			return Metadata{}, err
		}
		md.ImageFilename = s
		pos += n
	}
	if md.Features.Has(BitFile) {
		s, n, err := readLenPrefixed(bytes, pos)
		if err != nil {
			return Metadata{}, err
		}
		md.Filename = s
		pos += n
	}
	if md.Features.Has(BitVideoKind) {
		if err := need(1); err != nil {
			return Metadata{}, err
		}
		md.VideoKind = VideoKind(bytes[pos])
		pos++
	}

	md.ContentsOffset = int64(pos)
	return md, nil
}

func readLenPrefixed(bytes []byte, pos int) ([]byte, int, error) {
	if pos+2 > len(bytes) {
		return nil, 0, fmt.Errorf("%w: length-prefixed field missing its length", errs.ErrCorruption)
	}
	l := int(binary.BigEndian.Uint16(bytes[pos : pos+2]))
	if pos+2+l > len(bytes) {
		return nil, 0, fmt.Errorf("%w: length-prefixed field overruns item record", errs.ErrCorruption)
	}
	out := make([]byte, l)
	copy(out, bytes[pos+2:pos+2+l])
	return out, 2 + l, nil
}

// DecodeRecord decodes a full item record, payload included. It is a
// convenience built on Decode for callers (pop, tail) that need the payload
// immediately rather than via Metadata's offsets.
func DecodeRecord(bytes []byte) (Record, error) {
	md, err := Decode(bytes, 0)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:            md.ID,
		Features:      md.Features,
		Timestamp:     md.Timestamp,
		SessionID:     md.SessionID,
		ImageFilename: md.ImageFilename,
		Filename:      md.Filename,
		VideoKind:     md.VideoKind,
		Payload:       append([]byte(nil), bytes[md.ContentsOffset:]...),
	}, nil
}

// Stub returns the void-stub form of md: same id and features (is_void set,
// image/file/video_kind cleared), empty payload. Used by trim/filter.
//
// image_filename and filename are struck per their own stripping rule, but
// video_kind has no "absent" value in the wire format (1=mp4, 2=ogg,
// 3=webm are the only meanings 1-3 carry, and 0 isn't one of them) and
// printing it for a trimmed video would render a label the listing format
// doesn't enumerate. Clearing the bit along with image/file, rather than
// leaving it set over a meaningless value, keeps all three kind-bits
// consistent: a stub carries no kind-specific data at all.
func (md Metadata) Stub() Record {
	f := md.Features.With(BitVoid)
	// A stub carries no payload; image/file filenames and the video kind
	// are part of the payload's identity and are stripped along with it.
	f &^= Features(1 << BitImage)
	f &^= Features(1 << BitFile)
	f &^= Features(1 << BitVideoKind)
	return Record{
		ID:        md.ID,
		Features:  f,
		Timestamp: md.Timestamp,
		SessionID: md.SessionID,
		VideoKind: VideoKindNone,
		Payload:   nil,
	}
}
