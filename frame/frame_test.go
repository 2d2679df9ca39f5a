package frame

import (
	"bytes"
	"os"
	"testing"

	"github.com/kalscium/oatsgo/errs"
)

func withTempFile(t *testing.T, fn func(f *os.File)) {
	f, err := os.CreateTemp("", "frame-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	fn(f)
}

func TestPushScanRoundTrip(t *testing.T) {
	withTempFile(t, func(f *os.File) {
		payloads := [][]byte{[]byte("a"), []byte(""), bytes.Repeat([]byte("x"), 4096)}

		var ptr int64
		for _, p := range payloads {
			next, err := PushFrame(f, ptr, p)
			if err != nil {
				t.Fatal(err)
			}
			ptr = next
		}

		var readPtr int64
		for i, want := range payloads {
			got, next, err := ScanNext(f, readPtr)
			if err != nil {
				t.Fatalf("record %d: %v", i, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("record %d mismatch", i)
			}
			readPtr = next
		}
		if readPtr != ptr {
			t.Fatalf("scan end %d != stack pointer %d", readPtr, ptr)
		}
	})
}

func TestPushPopInverse(t *testing.T) {
	withTempFile(t, func(f *os.File) {
		const start = int64(13)
		ptr := start
		payload := []byte("hello")

		next, err := PushFrame(f, ptr, payload)
		if err != nil {
			t.Fatal(err)
		}

		got, back, err := PopFrame(f, next, start)
		if err != nil {
			t.Fatal(err)
		}
		if back != ptr {
			t.Fatalf("pop did not restore stack pointer: got %d want %d", back, ptr)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("pop payload mismatch")
		}
	})
}

func TestPopEmptyStack(t *testing.T) {
	withTempFile(t, func(f *os.File) {
		if _, _, err := PopFrame(f, 13, 13); err != errs.ErrEmptyStack {
			t.Fatalf("expected ErrEmptyStack, got %v", err)
		}
	})
}

func TestScanBackwardMatchesForward(t *testing.T) {
	withTempFile(t, func(f *os.File) {
		const start = int64(13)
		ptr := start
		items := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
		for _, it := range items {
			next, err := PushFrame(f, ptr, it)
			if err != nil {
				t.Fatal(err)
			}
			ptr = next
		}

		// Pop everything off the back; should reproduce items in reverse.
		cur := ptr
		for i := len(items) - 1; i >= 0; i-- {
			got, next, err := PopFrame(f, cur, start)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, items[i]) {
				t.Fatalf("index %d: got %q want %q", i, got, items[i])
			}
			cur = next
		}
		if cur != start {
			t.Fatalf("expected to unwind to start, got %d", cur)
		}
	})
}

func TestPayloadTooLarge(t *testing.T) {
	// Exercise the guard without allocating 4GiB: call with a length lie
	// is not possible through the public API, so this just documents the
	// bound; real overflow is caught by len(bytes) never exceeding
	// available memory in practice. Always skipped.
	t.Skip("allocating > MaxEntryLen bytes is impractical in CI")
}
