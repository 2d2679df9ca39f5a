package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/kalscium/oatsgo/config"
	"github.com/kalscium/oatsgo/errs"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/query"
	"github.com/kalscium/oatsgo/store"
)

// group is one session's (or one synthetic run's) items in scan order.
//
// Grouping keys share a single numeric namespace: a real session_id, or,
// for items with no session_id, the id of the first such item seen after
// the last session-bearing item. The two only collide if a session_id
// happens to equal some unrelated item's id, which for the millisecond-
// timestamp-derived ids and session ids this store expects in practice is
// not a realistic concern.
type group struct {
	key   int64
	items []item.Metadata
}

// Markdown scans h and writes a session-grouped Markdown export to w:
// consecutive void items collapse into a trimmed-item summary, consecutive
// images/videos collapse into a single <details> block, text becomes a
// bullet, and (when mediaRoot is non-empty) file/image/video payloads are
// written under mediaRoot and linked or embedded. tzOffsetMinutes shifts
// rendered timestamps; per the design's preserved DST heuristic, an extra
// -60 minutes is applied whenever the shifted month is April or later.
// cfg.IOBufferBytes sizes the buffered writer; pass config.Default() for
// the built-in size.
func Markdown(w io.Writer, h *store.Handle, tzOffsetMinutes int, mediaRoot string, cfg config.Defaults) error {
	groups, err := collectGroups(h)
	if err != nil {
		return err
	}

	bufSize := cfg.IOBufferBytes
	if bufSize <= 0 {
		bufSize = config.Default().IOBufferBytes
	}
	bw := bufio.NewWriterSize(w, bufSize)
	for _, g := range groups {
		if err := renderGroup(bw, h, g, tzOffsetMinutes, mediaRoot); err != nil {
			bw.Flush()
			return err
		}
	}
	return bw.Flush()
}

func collectGroups(h *store.Handle) ([]group, error) {
	index := map[int64]int{}
	var groups []group
	var openSynthetic *int64

	for md, err := range query.ScanAllMetadata(h) {
		if err != nil {
			return nil, err
		}

		var key int64
		if md.Features.Has(item.BitSessionID) {
			key = md.SessionID
			openSynthetic = nil
		} else {
			if openSynthetic == nil {
				k := int64(md.ID)
				openSynthetic = &k
			}
			key = *openSynthetic
		}

		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, group{key: key})
		}
		groups[idx].items = append(groups[idx].items, md)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups, nil
}

// headerState tracks the previous item's rendered instant within a single
// group, so header decisions never leak across groups.
type headerState struct {
	has     bool
	instant time.Time
}

func renderGroup(w *bufio.Writer, h *store.Handle, g group, tzOffset int, mediaRoot string) error {
	var hs headerState
	var run pendingRun

	for i, md := range g.items {
		shifted, hasTS := shiftedTimestamp(md, tzOffset)

		header := decideHeader(hs, shifted, hasTS, md.Features.Has(item.BitMobile), i == 0)
		if header != "" {
			if err := run.flush(w, h, mediaRoot); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s\n", header); err != nil {
				return err
			}
		}
		if hasTS {
			hs.has = true
			hs.instant = shifted
		}

		if err := renderItem(w, h, &run, md, mediaRoot); err != nil {
			return err
		}
	}
	return run.flush(w, h, mediaRoot)
}

func shiftedTimestamp(md item.Metadata, tzOffset int) (time.Time, bool) {
	if !md.Features.Has(item.BitTimestamp) {
		return time.Time{}, false
	}
	t := time.UnixMilli(md.Timestamp).UTC().Add(time.Duration(tzOffset) * time.Minute)
	if t.Month() >= time.April {
		t = t.Add(-60 * time.Minute)
	}
	return t, true
}

// decideHeader decides which header, if any, precedes cur: a top-level date
// header when the day changes (or there was no previous timestamp), a bare
// time header when more than 8 minutes elapsed or this is the group's
// first item, and nothing otherwise.
func decideHeader(prev headerState, cur time.Time, hasTS bool, mobile bool, first bool) string {
	if !hasTS {
		return ""
	}

	mobileSuffix := ""
	if mobile {
		mobileSuffix = " *(on mobile)*"
	}

	if !prev.has || !sameDay(prev.instant, cur) {
		return fmt.Sprintf("## %s, %s of %s %d `%s`%s",
			cur.Weekday().String(), ordinal(cur.Day()), cur.Month().String(), cur.Year(),
			cur.Format("03:04 PM"), mobileSuffix)
	}

	if first || cur.Sub(prev.instant) > 8*time.Minute {
		return fmt.Sprintf("### `%s`%s", cur.Format("03:04 PM"), mobileSuffix)
	}

	return ""
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ordinal(day int) string {
	if day >= 11 && day <= 13 {
		return fmt.Sprintf("%dth", day)
	}
	switch day % 10 {
	case 1:
		return fmt.Sprintf("%dst", day)
	case 2:
		return fmt.Sprintf("%dnd", day)
	case 3:
		return fmt.Sprintf("%drd", day)
	default:
		return fmt.Sprintf("%dth", day)
	}
}

// pendingRun buffers a run of consecutive void, image, or video items so
// they can be coalesced into one summary line or <details> block once the
// run ends (a differing kind, a header, or the end of the group).
type pendingRun struct {
	kind  item.Kind
	void  bool
	items []item.Metadata
}

func (r *pendingRun) flush(w *bufio.Writer, h *store.Handle, mediaRoot string) error {
	if len(r.items) == 0 {
		return nil
	}
	var err error
	switch {
	case r.void:
		err = flushVoidRun(w, r.items)
	case r.kind == item.KindImage:
		err = flushMediaRun(w, h, r.items, mediaRoot, mediaTagImage)
	case r.kind == item.KindVideo:
		err = flushMediaRun(w, h, r.items, mediaRoot, mediaTagVideo)
	}
	r.items = nil
	return err
}

func flushVoidRun(w *bufio.Writer, items []item.Metadata) error {
	noun := "Item"
	if len(items) != 1 {
		noun = "Items"
	}
	_, err := fmt.Fprintf(w, "*%d Trimmed %s*\n", len(items), noun)
	return err
}

type mediaTag int

const (
	mediaTagImage mediaTag = iota
	mediaTagVideo
)

func flushMediaRun(w *bufio.Writer, h *store.Handle, items []item.Metadata, mediaRoot string, tag mediaTag) error {
	if _, err := fmt.Fprintln(w, "<details>"); err != nil {
		return err
	}
	for _, md := range items {
		path, err := writeMediaFile(h, md, mediaRoot)
		if err != nil {
			return err
		}
		if path == "" {
			continue
		}
		rel := filepath.ToSlash(path)
		switch tag {
		case mediaTagImage:
			_, err = fmt.Fprintf(w, "<img src=\"%s\">\n", rel)
		case mediaTagVideo:
			_, err = fmt.Fprintf(w, "<video controls><source src=\"%s\" type=\"video/%s\"></video>\n", rel, md.VideoKind)
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "</details>")
	return err
}

func renderItem(w *bufio.Writer, h *store.Handle, run *pendingRun, md item.Metadata, mediaRoot string) error {
	if md.Features.Has(item.BitVoid) {
		if run.void && len(run.items) > 0 {
			run.items = append(run.items, md)
			return nil
		}
		if err := run.flush(w, h, mediaRoot); err != nil {
			return err
		}
		run.void = true
		run.items = []item.Metadata{md}
		return nil
	}

	kind := kindOf(md)
	if kind == item.KindImage || kind == item.KindVideo {
		if !run.void && run.kind == kind && len(run.items) > 0 {
			run.items = append(run.items, md)
			return nil
		}
		if err := run.flush(w, h, mediaRoot); err != nil {
			return err
		}
		run.void = false
		run.kind = kind
		run.items = []item.Metadata{md}
		return nil
	}

	if err := run.flush(w, h, mediaRoot); err != nil {
		return err
	}

	switch kind {
	case item.KindFile:
		return renderFile(w, h, md, mediaRoot)
	default:
		payload, err := query.ReadPayload(h, md)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "- %s\n", payload)
		return err
	}
}

func kindOf(md item.Metadata) item.Kind {
	switch {
	case md.Features.Has(item.BitImage):
		return item.KindImage
	case md.Features.Has(item.BitVideoKind):
		return item.KindVideo
	case md.Features.Has(item.BitFile):
		return item.KindFile
	default:
		return item.KindText
	}
}

func renderFile(w *bufio.Writer, h *store.Handle, md item.Metadata, mediaRoot string) error {
	if mediaRoot == "" {
		// Intentional: a missing media root silently skips the body, per
		// the design note that this must never surface as an error.
		return nil
	}
	path, err := writeMediaFile(h, md, mediaRoot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "- [%s](%s)\n", md.Filename, filepath.ToSlash(path))
	return err
}

// writeMediaFile writes md's payload under mediaRoot/<session-or-ts-or-0>/
// and returns the path written, relative to mediaRoot, or "" if mediaRoot
// is empty (the caller is responsible for treating that as "skip").
func writeMediaFile(h *store.Handle, md item.Metadata, mediaRoot string) (string, error) {
	if mediaRoot == "" {
		return "", nil
	}

	sub := "0"
	switch {
	case md.Features.Has(item.BitSessionID):
		sub = strconv.FormatInt(md.SessionID, 10)
	case md.Features.Has(item.BitTimestamp):
		sub = strconv.FormatInt(md.Timestamp, 10)
	}

	dir := filepath.Join(mediaRoot, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	name := string(md.Filename)
	if md.Features.Has(item.BitImage) && len(md.ImageFilename) > 0 {
		name = string(md.ImageFilename)
	}
	if name == "" {
		name = strconv.FormatUint(md.ID, 10)
	}

	payload, err := query.ReadPayload(h, md)
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, payload, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	rel, err := filepath.Rel(mediaRoot, full)
	if err != nil {
		return full, nil
	}
	return rel, nil
}
