package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"timeforge.app/internal/analytics"
	persistlog "timeforge.app/internal/persistence/log"
	"timeforge.app/internal/persistence/savefile"
	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/catalogs"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "dump":
			dumpCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the local save slots with their headers.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := filepath.Glob(filepath.Join(*dataDir, "saves", "slot-*.save.zst"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glob:", err)
		os.Exit(1)
	}
	sort.Strings(files)
	for _, p := range files {
		h, err := savefile.ReadHeader(p)
		if err != nil {
			fmt.Printf("%s\tunreadable: %v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%s\tv%d\t%s\tdigest=%s\n", filepath.Base(p), h.Version, h.SavedAt.Format(time.RFC3339), short(h.CatalogDigest))
	}
}

// dumpCmd decodes one local save and prints it as JSON, optionally with
// the derived rates.
func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	slot := fs.Int("slot", 1, "save slot")
	path := fs.String("file", "", "save file path (overrides -data/-slot)")
	rates := fs.Bool("rates", false, "include derived rates")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		p = filepath.Join(*dataDir, "saves", fmt.Sprintf("slot-%d.save.zst", *slot))
	}
	doc, err := savefile.Read(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read save:", err)
		os.Exit(1)
	}
	cats := catalogs.Default()
	if doc.CatalogDigest != "" && doc.CatalogDigest != cats.Digest {
		fmt.Fprintf(os.Stderr, "warning: save written with catalog %s, current is %s\n", short(doc.CatalogDigest), short(cats.Digest))
	}
	var out any = doc
	if *rates {
		out = struct {
			savefile.Document
			Rates protocol.Rates `json:"rates"`
		}{doc, protocol.RatesFor(cats, doc.State)}
	}
	printJSON(out)
}

// eventsCmd reads the compressed analytics logs.
func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kind := fs.String("kind", "", "only this event kind")
	limit := fs.Int("limit", 50, "print at most the last N events (0 = all)")
	_ = fs.Parse(args)

	if *kind != "" && !analytics.Kind(*kind).Valid() {
		fmt.Fprintln(os.Stderr, "unknown kind:", *kind)
		os.Exit(2)
	}
	files, err := persistlog.EventFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	var evs []analytics.Event
	for _, f := range files {
		err := persistlog.ReadEvents(f, func(ev analytics.Event) error {
			if *kind == "" || string(ev.Kind) == *kind {
				evs = append(evs, ev)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
		}
	}
	if *limit > 0 && len(evs) > *limit {
		evs = evs[len(evs)-*limit:]
	}
	for _, ev := range evs {
		fmt.Println(ev.String())
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
