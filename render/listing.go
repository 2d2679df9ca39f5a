// Package render turns a scanned log into human-readable output: a normal
// one-line listing (render.Line) and a Markdown export with embedded media
// (render.Markdown). Both stream through a bufio.Writer and flush it before
// returning, on error as well as on success, the way a segment writer
// flushes its buffer before a Sync, so whatever was rendered before an
// error reaches the caller's writer.
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/kalscium/oatsgo/config"
	"github.com/kalscium/oatsgo/item"
)

const iso8601Milli = "2006-01-02T15:04:05.000Z"

// prefixPadWidth is the worst-case width of a listing line's prefix (every
// optional field present, each at its widest possible rendering), computed
// once from the field widths and label sizes rather than hand-picked. Any
// narrower prefix is padded out to this width so the body marker column
// lines up across a run of varied items.
var prefixPadWidth = len(linePrefix(item.Record{
	ID:        math.MaxUint64,
	Features:  item.Features(1<<item.BitTimestamp | 1<<item.BitSessionID | 1<<item.BitVideoKind | 1<<item.BitMobile),
	Timestamp: math.MinInt64, // a negative year renders one character wider than the largest positive one
	SessionID: math.MinInt64,
	VideoKind: item.VideoKindWebM, // "webm" is the longest video-kind label
}))

// Line writes one normal-listing line for rec to w, without a trailing
// newline.
func Line(w io.Writer, rec item.Record) error {
	prefix := linePrefix(rec)
	pad := prefixPadWidth - len(prefix)
	if pad < 0 {
		pad = 0
	}
	_, err := fmt.Fprintf(w, "%s%s%s", prefix, spaces(pad), body(rec))
	return err
}

func linePrefix(rec item.Record) string {
	s := fmt.Sprintf("id: %d", rec.ID)
	if rec.Features.Has(item.BitTimestamp) {
		s += ", date: " + formatTimestamp(rec.Timestamp)
	}
	if rec.Features.Has(item.BitSessionID) {
		s += fmt.Sprintf(", sess_id: %d", rec.SessionID)
	}
	switch rec.Kind() {
	case item.KindImage:
		s += ", kind: image"
	case item.KindFile:
		s += ", kind: file"
	case item.KindVideo:
		s += ", kind: video"
	}
	if rec.Features.Has(item.BitVideoKind) {
		s += ", video_kind: " + rec.VideoKind.String()
	}
	if rec.Features.Has(item.BitMobile) {
		s += ", on: mobile"
	}
	return s
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(iso8601Milli)
}

func body(rec item.Record) string {
	if rec.Features.Has(item.BitVoid) {
		if rec.ImageFilename != nil {
			return fmt.Sprintf("... %s: <trimmed image data>", rec.ImageFilename)
		}
		return " ? <trimmed oats item>"
	}
	switch rec.Kind() {
	case item.KindImage:
		return fmt.Sprintf("# %s: <binary image data>", rec.ImageFilename)
	case item.KindVideo:
		if len(rec.Filename) > 0 {
			return fmt.Sprintf("# %s: <binary video data>", rec.Filename)
		}
		return "# <binary video data>"
	case item.KindFile:
		return fmt.Sprintf("# %s: <binary data>", rec.Filename)
	default:
		return fmt.Sprintf("| %s", rec.Payload)
	}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// Listing writes one line per record in recs, separated by newlines, with a
// trailing newline, flushing a buffered writer before returning. cfg.IOBufferBytes
// sizes the buffered writer; pass config.Default() for the built-in size.
func Listing(w io.Writer, recs []item.Record, cfg config.Defaults) error {
	bufSize := cfg.IOBufferBytes
	if bufSize <= 0 {
		bufSize = config.Default().IOBufferBytes
	}
	bw := bufio.NewWriterSize(w, bufSize)
	for _, rec := range recs {
		if err := Line(bw, rec); err != nil {
			bw.Flush()
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			bw.Flush()
			return err
		}
	}
	return bw.Flush()
}
