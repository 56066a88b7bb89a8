package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timeforge.app/internal/persistence/savedb"
	"timeforge.app/internal/persistence/savefile"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "event kind filter (events)")
	user := fs.String("user", "", "user id (profile, save)")
	slot := fs.Int("slot", 1, "save slot (save)")
	_ = fs.Parse(args)

	q := "saves"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "timeforge.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	db, err := savedb.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "saves":
		recs, err := db.ListSaves(ctx)
		exitOn(err)
		for _, r := range recs {
			fmt.Printf("%s\tslot=%d\tv%d\t%dB\t%s\n", r.UserID, r.Slot, r.Version, r.Size, r.UpdatedAt.Format(time.RFC3339))
		}
	case "save":
		if *user == "" {
			fmt.Fprintln(os.Stderr, "missing -user")
			os.Exit(2)
		}
		rec, ok, err := db.LoadSave(ctx, *user, *slot)
		exitOn(err)
		if !ok {
			fmt.Fprintln(os.Stderr, "no save for", *user)
			os.Exit(1)
		}
		doc, err := savefile.Unmarshal(rec.StateJSON)
		exitOn(err)
		printJSON(doc)
	case "profile":
		if *user == "" {
			fmt.Fprintln(os.Stderr, "missing -user")
			os.Exit(2)
		}
		p, ok, err := db.Profile(ctx, *user)
		exitOn(err)
		if !ok {
			fmt.Fprintln(os.Stderr, "no profile for", *user)
			os.Exit(1)
		}
		printJSON(p)
	case "profiles":
		rows, err := db.SQL().QueryContext(ctx,
			`SELECT user_id, display_name, total_echoes_earned, highest_run_power FROM game_profiles ORDER BY highest_run_power DESC LIMIT ?`, *limit)
		exitOn(err)
		defer rows.Close()
		for rows.Next() {
			var id, name string
			var echoes, power float64
			exitOn(rows.Scan(&id, &name, &echoes, &power))
			fmt.Printf("%s\t%s\techoes=%.0f\tpower=%.2f\n", id, name, echoes, power)
		}
		exitOn(rows.Err())
	case "events":
		evs, err := db.RecentEvents(ctx, *kind, *limit)
		exitOn(err)
		for _, e := range evs {
			fmt.Printf("%s\t%s\t%s\t%s\n", e.CreatedAt, e.Kind, e.UserID, string(e.Payload))
		}
	case "counts":
		counts, err := db.CountEvents(ctx)
		exitOn(err)
		printJSON(counts)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(saves|save|profile|profiles|events|counts)")
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}
