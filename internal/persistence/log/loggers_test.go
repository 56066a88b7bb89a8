package log

import (
	"path/filepath"
	"testing"
	"time"

	"timeforge.app/internal/analytics"
)

func TestEventLogger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	now := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	l.w.now = func() time.Time { return now }

	write := func(id string) {
		t.Helper()
		if err := l.WriteEvent(analytics.Event{ID: id, Kind: analytics.KindCollapse, At: now}); err != nil {
			t.Fatalf("write %s: %v", id, err)
		}
	}
	write("a")
	write("b")
	now = now.Add(time.Hour)
	write("c")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := EventFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v want 2", files)
	}
	if got := filepath.Base(files[0]); got != "events-2025-06-01-10.jsonl.zst" {
		t.Fatalf("first file=%s", got)
	}

	var ids []string
	for _, f := range files {
		if err := ReadEvents(f, func(ev analytics.Event) error {
			ids = append(ids, ev.ID)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids=%v", ids)
	}
}
