// Package savefile encodes game snapshots as versioned JSON documents.
// On disk a document is zstd-compressed behind a one-line JSON header.
package savefile

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"timeforge.app/internal/sim/state"
)

//go:embed save.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("save.schema.json", schemaJSON)

var ErrUnsupportedVersion = errors.New("unsupported save version")

type Header struct {
	Version       int       `json:"version"`
	CatalogDigest string    `json:"catalog_digest,omitempty"`
	SavedAt       time.Time `json:"saved_at"`
}

type Document struct {
	Version       int              `json:"version"`
	CatalogDigest string           `json:"catalog_digest,omitempty"`
	SavedAt       time.Time        `json:"saved_at"`
	State         *state.GameState `json:"state"`
}

func NewDocument(st *state.GameState, catalogDigest string, now time.Time) Document {
	return Document{
		Version:       state.Version,
		CatalogDigest: catalogDigest,
		SavedAt:       now.UTC(),
		State:         st,
	}
}

func (d Document) Header() Header {
	return Header{Version: d.Version, CatalogDigest: d.CatalogDigest, SavedAt: d.SavedAt}
}

func Marshal(doc Document) ([]byte, error) {
	if doc.State == nil {
		return nil, fmt.Errorf("savefile: nil state")
	}
	if doc.Version == 0 {
		doc.Version = state.Version
	}
	return json.Marshal(doc)
}

// Unmarshal checks the version tag, migrates older documents, validates
// the result against the save schema and decodes it.
func Unmarshal(b []byte) (Document, error) {
	var doc Document
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return doc, fmt.Errorf("savefile: %w", err)
	}
	v, _ := raw["version"].(float64)
	if v < 1 || v != float64(int(v)) {
		return doc, fmt.Errorf("savefile: missing or invalid version")
	}
	if int(v) > state.Version {
		return doc, fmt.Errorf("savefile: version %d: %w", int(v), ErrUnsupportedVersion)
	}
	raw = migrate(int(v), raw)
	if err := schema.Validate(raw); err != nil {
		return doc, fmt.Errorf("savefile: %w", err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return doc, fmt.Errorf("savefile: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("savefile: %w", err)
	}
	return doc, nil
}

// migrate upgrades a decoded document to the current version.
func migrate(version int, raw map[string]any) map[string]any {
	switch version {
	case state.Version:
		return raw
	}
	raw["version"] = state.Version
	return raw
}

func Encode(w io.Writer, doc Document) error {
	body, err := Marshal(doc)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	hb, _ := json.Marshal(doc.Header())
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(body); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (Document, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Document{}, err
	}
	defer dec.Close()

	b, err := io.ReadAll(dec)
	if err != nil {
		return Document{}, fmt.Errorf("savefile: zstd: %w", err)
	}
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return Document{}, fmt.Errorf("savefile: missing header line")
	}
	var h Header
	if err := json.Unmarshal(b[:i], &h); err != nil {
		return Document{}, fmt.Errorf("savefile: header: %w", err)
	}
	if h.Version > state.Version {
		return Document{}, fmt.Errorf("savefile: version %d: %w", h.Version, ErrUnsupportedVersion)
	}
	return Unmarshal(b[i+1:])
}

// ReadHeader returns only the header line of a save file.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("savefile: header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("savefile: header: %w", err)
	}
	return h, nil
}

// Write replaces path atomically.
func Write(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Encode(tmp, doc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func Read(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Decode(f)
}
