// Command oatsgo is a minimal wiring demonstration, not the CLI surface
// itself: it initializes a store, pushes one text item, or prints a listing.
// A real front end (flag parsing, the home resolver's env-var discovery,
// subcommand dispatch) is out of scope here.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kalscium/oatsgo/config"
	"github.com/kalscium/oatsgo/item"
	"github.com/kalscium/oatsgo/query"
	"github.com/kalscium/oatsgo/render"
	"github.com/kalscium/oatsgo/store"
)

// Command enumerates the operations main can dispatch to.
type Command int

const (
	CommandUnknown Command = iota
	CommandInit
	CommandPush
	CommandList
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: oatsgo <init|push|list> <path> [text]")
		os.Exit(1)
	}

	cmd, path := os.Args[1], os.Args[2]
	switch cmd {
	case "init":
		h, err := store.Initialize(path)
		exitOn(err)
		exitOn(h.Close())
	case "push":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: oatsgo push <path> <text>")
			os.Exit(1)
		}
		h, err := store.Open(path)
		exitOn(err)
		defer h.Close()
		now := time.Now().UnixMilli()
		rec := item.NewText(uint64(now), []byte(os.Args[3]), now, true, 0, false, false)
		exitOn(h.PushItem(item.Encode(rec)))
	case "list":
		h, err := store.Open(path)
		exitOn(err)
		defer h.Close()
		recs, err := listAll(h)
		exitOn(err)
		exitOn(render.Listing(os.Stdout, recs, config.Default()))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(1)
	}
}

func listAll(h *store.Handle) ([]item.Record, error) {
	var recs []item.Record
	for md, err := range query.ScanAllMetadata(h) {
		if err != nil {
			return nil, err
		}
		payload, err := query.ReadPayload(h, md)
		if err != nil {
			return nil, err
		}
		recs = append(recs, item.NewText(md.ID, payload, md.Timestamp, md.Features.Has(item.BitTimestamp), md.SessionID, md.Features.Has(item.BitSessionID), md.Features.Has(item.BitMobile)))
	}
	return recs, nil
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
