// Package store is the persistence collaborator: every save is mirrored to
// a local file, and signed-in players also get a remote record. Loads
// prefer the remote record and fall back to the local file.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"timeforge.app/internal/persistence/savedb"
	"timeforge.app/internal/persistence/savefile"
	"timeforge.app/internal/sim/state"
)

// Remote is the per-user save backend.
type Remote interface {
	UpsertSave(ctx context.Context, r savedb.SaveRecord) error
	LoadSave(ctx context.Context, userID string, slot int) (savedb.SaveRecord, bool, error)
	TouchProfile(ctx context.Context, userID string, totalEchoes, runPower float64, now time.Time) error
}

type Config struct {
	DataDir       string
	Slot          int
	CatalogDigest string
	Remote        Remote
	Logger        *log.Logger
	Now           func() time.Time
}

type Store struct {
	cfg Config
}

func New(cfg Config) *Store {
	if cfg.Slot <= 0 {
		cfg.Slot = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{cfg: cfg}
}

func (s *Store) LocalPath() string {
	return filepath.Join(s.cfg.DataDir, "saves", fmt.Sprintf("slot-%d.save.zst", s.cfg.Slot))
}

// Load returns the saved state for userID, or nil when there is none.
// Unreadable or malformed saves are logged and treated as absent.
func (s *Store) Load(ctx context.Context, userID string) (*state.GameState, error) {
	if userID != "" && s.cfg.Remote != nil {
		st, err := s.loadRemote(ctx, userID)
		switch {
		case err != nil:
			s.cfg.Logger.Printf("remote load %s: %v; using local save", userID, err)
		case st != nil:
			return st, nil
		}
	}
	return s.loadLocal(), nil
}

func (s *Store) loadRemote(ctx context.Context, userID string) (*state.GameState, error) {
	rec, ok, err := s.cfg.Remote.LoadSave(ctx, userID, s.cfg.Slot)
	if err != nil || !ok {
		return nil, err
	}
	doc, err := savefile.Unmarshal(rec.StateJSON)
	if err != nil {
		return nil, err
	}
	return doc.State, nil
}

func (s *Store) loadLocal() *state.GameState {
	doc, err := savefile.Read(s.LocalPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.cfg.Logger.Printf("local load: %v", err)
		}
		return nil
	}
	return doc.State
}

// Save writes st locally and, when userID is set, upserts the remote save
// and refreshes the player's profile. Both targets are attempted.
func (s *Store) Save(ctx context.Context, userID string, st *state.GameState) error {
	now := s.cfg.Now()
	doc := savefile.NewDocument(st, s.cfg.CatalogDigest, now)

	var errs []error
	if err := savefile.Write(s.LocalPath(), doc); err != nil {
		errs = append(errs, fmt.Errorf("local save: %w", err))
	}
	if userID != "" && s.cfg.Remote != nil {
		if err := s.saveRemote(ctx, userID, doc, now); err != nil {
			errs = append(errs, fmt.Errorf("remote save: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) saveRemote(ctx context.Context, userID string, doc savefile.Document, now time.Time) error {
	body, err := savefile.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.cfg.Remote.UpsertSave(ctx, savedb.SaveRecord{
		UserID:        userID,
		Slot:          s.cfg.Slot,
		StateJSON:     body,
		Version:       doc.Version,
		CatalogDigest: doc.CatalogDigest,
		UpdatedAt:     now,
	}); err != nil {
		return err
	}
	return s.cfg.Remote.TouchProfile(ctx, userID, doc.State.TotalEchoesEver, math.Max(doc.State.Flux, 0), now)
}

// DeleteLocal removes the local save file, if any.
func (s *Store) DeleteLocal() error {
	err := os.Remove(s.LocalPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
