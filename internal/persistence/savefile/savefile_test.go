package savefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func sample(t *testing.T) Document {
	t.Helper()
	cats := catalogs.Default()
	st := state.New(cats, t0)
	st.Sparks = 123.5
	st.Buildings["foundry"] = 4
	st.MetaUpgrades["power_click_1"] = 2
	st.DiscoveredTraits = []string{"slow_time"}
	return NewDocument(st, cats.Digest, t0)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "slot-1.save.zst")
	doc := sample(t)
	if err := Write(path, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Version != state.Version || got.CatalogDigest != doc.CatalogDigest || !got.SavedAt.Equal(t0) {
		t.Fatalf("doc=%+v", got)
	}
	if got.State.Sparks != 123.5 || got.State.Buildings["foundry"] != 4 || got.State.MetaUpgrades["power_click_1"] != 2 {
		t.Fatalf("state=%+v", got.State)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Version != state.Version || h.CatalogDigest != doc.CatalogDigest {
		t.Fatalf("header=%+v", h)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestUnmarshal_RejectsFutureVersion(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":2,"state":{}}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err=%v want ErrUnsupportedVersion", err)
	}
}

func TestUnmarshal_RejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"version":`,
		"no version":      `{"state":{}}`,
		"no state":        `{"version":1}`,
		"missing fields":  `{"version":1,"state":{"sparks":1}}`,
		"wrong type":      `{"version":1,"state":{"sparks":"lots","flux":0,"civilization":0,"echoes":0,"buildings":{},"upgrades":{},"meta_upgrades":{},"run_number":0,"current_stage_id":"primordial"}}`,
		"fractional runs": `{"version":1,"state":{"sparks":0,"flux":0,"civilization":0,"echoes":0,"buildings":{},"upgrades":{},"meta_upgrades":{},"run_number":1.5,"current_stage_id":"primordial"}}`,
	}
	for name, in := range cases {
		if _, err := Unmarshal([]byte(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestUnmarshal_MinimalDocument(t *testing.T) {
	in := `{"version":1,"state":{"sparks":5,"flux":0,"civilization":0,"echoes":2,"buildings":{"foundry":1},"upgrades":{},"meta_upgrades":{},"run_number":3,"current_stage_id":"primordial"}}`
	doc, err := Unmarshal([]byte(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.State.RunNumber != 3 || doc.State.Echoes != 2 {
		t.Fatalf("state=%+v", doc.State)
	}
}

func TestDecode_RejectsCorruptInput(t *testing.T) {
	if _, err := Decode(strings.NewReader("definitely not zstd")); err == nil {
		t.Fatalf("expected error for garbage input")
	}

	var buf bytes.Buffer
	enc, _ := zstd.NewWriter(&buf)
	_, _ = enc.Write([]byte(`{"version":1}` + "\n" + `{"version":1,"state":`))
	_ = enc.Close()
	if _, err := Decode(&buf); err == nil {
		t.Fatalf("expected error for truncated body")
	}
}

func TestDecode_RejectsFutureHeader(t *testing.T) {
	var buf bytes.Buffer
	enc, _ := zstd.NewWriter(&buf)
	_, _ = enc.Write([]byte(`{"version":9}` + "\n" + `{}`))
	_ = enc.Close()
	if _, err := Decode(&buf); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err=%v want ErrUnsupportedVersion", err)
	}
}

func TestMarshal_NilState(t *testing.T) {
	if _, err := Marshal(Document{Version: 1}); err == nil {
		t.Fatalf("expected error")
	}
}
