package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kalscium/oatsgo/config"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/store"
)

func newStoreWithRecords(t *testing.T, recs []item.Record) *store.Handle {
	t.Helper()
	path := t.TempDir() + "/db.oats"
	h, err := store.Initialize(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if err := h.PushItem(item.Encode(r)); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

// countHeaders reports the number of day headers ("## ") and time
// sub-headers ("### ") in out, counted by line prefix so a "###" line
// doesn't also count as a "##" line.
func countHeaders(out string) (dayHeaders, subHeaders int) {
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "### "):
			subHeaders++
		case strings.HasPrefix(line, "## "):
			dayHeaders++
		}
	}
	return
}

func TestMarkdownSessionGroupMergesNearbyItems(t *testing.T) {
	// Two items five minutes apart sharing a session get one header.
	base := int64(1_700_000_000_000)
	recs := []item.Record{
		item.NewText(10, []byte("hello"), base, true, 42, true, false),
		item.NewText(11, []byte("world"), base+5*60*1000, true, 42, true, false),
	}
	h := newStoreWithRecords(t, recs)
	defer h.Close()

	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, "", config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	day, sub := countHeaders(out)
	if day != 1 || sub != 0 {
		t.Fatalf("expected exactly one day header and no sub-header for a same-session run under 8 minutes, got day=%d sub=%d:\n%s", day, sub, out)
	}
	if !strings.Contains(out, "- hello") || !strings.Contains(out, "- world") {
		t.Fatalf("expected both items rendered as bullets:\n%s", out)
	}
}

func TestMarkdownSyntheticGroupGetsOwnHeader(t *testing.T) {
	base := int64(1_700_000_000_000)
	recs := []item.Record{
		item.NewText(10, []byte("hello"), base, true, 42, true, false),
		item.NewText(11, []byte("world"), base+5*60*1000, true, 42, true, false),
		// No session_id: starts a new synthetic group keyed by its own id.
		item.NewText(12, []byte("alone"), base+6*60*1000, true, 0, false, false),
		item.NewText(13, []byte("alone-too"), base+7*60*1000, true, 0, false, false),
	}
	h := newStoreWithRecords(t, recs)
	defer h.Close()

	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, "", config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "- alone") || !strings.Contains(out, "- alone-too") {
		t.Fatalf("expected synthetic-group items rendered:\n%s", out)
	}
	// Two groups means the day header repeats once per group.
	day, _ := countHeaders(out)
	if day < 2 {
		t.Fatalf("expected a separate header for the synthetic group, got day=%d:\n%s", day, out)
	}
}

func TestMarkdownNewTimeSubHeaderAfterGap(t *testing.T) {
	base := int64(1_700_000_000_000)
	recs := []item.Record{
		item.NewText(1, []byte("a"), base, true, 7, true, false),
		// Same session, same day, but more than 8 minutes later.
		item.NewText(2, []byte("b"), base+20*60*1000, true, 7, true, false),
	}
	h := newStoreWithRecords(t, recs)
	defer h.Close()

	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, "", config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	day, sub := countHeaders(out)
	if day != 1 {
		t.Fatalf("expected exactly one day header, got %d:\n%s", day, out)
	}
	if sub != 1 {
		t.Fatalf("expected one time sub-header after the 8-minute gap, got %d:\n%s", sub, out)
	}
}

func TestMarkdownCoalescesVoidRun(t *testing.T) {
	base := int64(1_700_000_000_000)
	stub := func(id uint64) item.Record {
		return item.Record{
			ID:        id,
			Features:  item.Features(1<<item.BitVoid | 1<<item.BitTimestamp | 1<<item.BitSessionID),
			Timestamp: base,
			SessionID: 1,
		}
	}
	h := newStoreWithRecords(t, []item.Record{stub(1), stub(2), stub(3)})
	defer h.Close()

	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, "", config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "*3 Trimmed Items*") {
		t.Fatalf("expected a single coalesced void-run summary:\n%s", out)
	}
}

func TestMarkdownCoalescesImageRunIntoDetailsBlock(t *testing.T) {
	base := int64(1_700_000_000_000)
	recs := []item.Record{
		item.NewImage(1, []byte("a.png"), []byte{0x01}, base, true, 1, true, false),
		item.NewImage(2, []byte("b.png"), []byte{0x02}, base, true, 1, true, false),
	}
	h := newStoreWithRecords(t, recs)
	defer h.Close()

	mediaRoot := t.TempDir()
	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, mediaRoot, config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Count(out, "<details>") != 1 {
		t.Fatalf("expected the two images coalesced into one <details> block:\n%s", out)
	}
	if !strings.Contains(out, `<img src="1/a.png">`) || !strings.Contains(out, `<img src="1/b.png">`) {
		t.Fatalf("expected both images linked:\n%s", out)
	}
}

func TestMarkdownVideoTagUsesVideoKind(t *testing.T) {
	base := int64(1_700_000_000_000)
	rec := item.NewVideo(1, []byte("clip.webm"), []byte{0x01}, item.VideoKindWebM, base, true, 1, true, false)
	h := newStoreWithRecords(t, []item.Record{rec})
	defer h.Close()

	mediaRoot := t.TempDir()
	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, mediaRoot, config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `type="video/webm"`) {
		t.Fatalf("expected webm source type:\n%s", out)
	}
}

func TestMarkdownFileSkippedSilentlyWithoutMediaRoot(t *testing.T) {
	rec := item.NewFile(1, []byte("doc.txt"), []byte("body"), 0, false, 0, false, false)
	h := newStoreWithRecords(t, []item.Record{rec})
	defer h.Close()

	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, "", config.Default()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a file item with no media root, got:\n%s", buf.String())
	}
}

func TestMarkdownFileLinkedWithMediaRoot(t *testing.T) {
	rec := item.NewFile(1, []byte("doc.txt"), []byte("body"), 0, false, 0, false, false)
	h := newStoreWithRecords(t, []item.Record{rec})
	defer h.Close()

	mediaRoot := t.TempDir()
	var buf bytes.Buffer
	if err := Markdown(&buf, h, 0, mediaRoot, config.Default()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "- [doc.txt](0/doc.txt)") {
		t.Fatalf("expected a markdown link to the written file:\n%s", out)
	}
}

func TestShiftedTimestampAppliesAprilOnwardDSTHeuristic(t *testing.T) {
	march := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)

	mdMarch := item.Metadata{Features: item.Features(1 << item.BitTimestamp), Timestamp: march.UnixMilli()}
	mdApril := item.Metadata{Features: item.Features(1 << item.BitTimestamp), Timestamp: april.UnixMilli()}

	shiftedMarch, ok := shiftedTimestamp(mdMarch, 0)
	if !ok || !shiftedMarch.Equal(march) {
		t.Fatalf("expected no DST adjustment before April, got %v", shiftedMarch)
	}

	shiftedApril, ok := shiftedTimestamp(mdApril, 0)
	if !ok || !shiftedApril.Equal(april.Add(-60*time.Minute)) {
		t.Fatalf("expected a -60 minute DST adjustment from April onward, got %v", shiftedApril)
	}
}

func TestShiftedTimestampAbsentWithoutBit(t *testing.T) {
	md := item.Metadata{}
	_, ok := shiftedTimestamp(md, 0)
	if ok {
		t.Fatal("expected no timestamp when the bit is unset")
	}
}
