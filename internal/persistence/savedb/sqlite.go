// Package savedb is the SQLite-backed remote store: per-user save slots,
// player profiles and the analytics event table.
package savedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"timeforge.app/internal/analytics"
)

const DefaultDisplayName = "Cosmic Forger"

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

type DB struct {
	db *sql.DB

	ch   chan analytics.Event
	wg   sync.WaitGroup
	once sync.Once
	mu   sync.RWMutex

	closed  atomic.Bool
	dropped atomic.Uint64
}

type SaveRecord struct {
	UserID        string
	Slot          int
	StateJSON     []byte
	Version       int
	CatalogDigest string
	UpdatedAt     time.Time
	Size          int
}

type Profile struct {
	UserID            string    `json:"user_id"`
	DisplayName       string    `json:"display_name"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	TotalEchoesEarned float64   `json:"total_echoes_earned"`
	HighestRunPower   float64   `json:"highest_run_power"`
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &DB{
		db: db,
		ch: make(chan analytics.Event, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS game_saves (
			user_id TEXT NOT NULL,
			slot INTEGER NOT NULL,
			state_json TEXT NOT NULL,
			version INTEGER NOT NULL,
			catalog_digest TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, slot)
		);`,
		`CREATE TABLE IF NOT EXISTS game_profiles (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL,
			total_echoes_earned REAL NOT NULL DEFAULT 0,
			highest_run_power REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS game_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_game_events_kind_created ON game_events(kind, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_game_events_user_created ON game_events(user_id, created_at);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SQL exposes the handle so other stores can share the file.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *DB) UpsertSave(ctx context.Context, r SaveRecord) error {
	if r.UserID == "" {
		return fmt.Errorf("savedb: empty user id")
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_saves(user_id,slot,state_json,version,catalog_digest,updated_at) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(user_id,slot) DO UPDATE SET
		   state_json=excluded.state_json,
		   version=excluded.version,
		   catalog_digest=excluded.catalog_digest,
		   updated_at=excluded.updated_at`,
		r.UserID, r.Slot, string(r.StateJSON), r.Version, r.CatalogDigest, r.UpdatedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("savedb: upsert save: %w", err)
	}
	return nil
}

// LoadSave returns the save for (userID, slot). ok is false when none exists.
func (s *DB) LoadSave(ctx context.Context, userID string, slot int) (SaveRecord, bool, error) {
	r := SaveRecord{UserID: userID, Slot: slot}
	var body, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json, version, catalog_digest, updated_at FROM game_saves WHERE user_id=? AND slot=?`,
		userID, slot,
	).Scan(&body, &r.Version, &r.CatalogDigest, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, fmt.Errorf("savedb: load save: %w", err)
	}
	r.StateJSON = []byte(body)
	r.Size = len(body)
	r.UpdatedAt, _ = time.Parse(tsLayout, updated)
	return r, true, nil
}

// ListSaves returns every save without its state body, newest first.
func (s *DB) ListSaves(ctx context.Context) ([]SaveRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, slot, version, catalog_digest, updated_at, length(state_json) FROM game_saves ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRecord
	for rows.Next() {
		var r SaveRecord
		var updated string
		if err := rows.Scan(&r.UserID, &r.Slot, &r.Version, &r.CatalogDigest, &updated, &r.Size); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(tsLayout, updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TouchProfile records a save for userID: creates the profile with the
// default display name if missing, refreshes last-seen, stores the
// lifetime echo total and keeps the highest run power seen.
func (s *DB) TouchProfile(ctx context.Context, userID string, totalEchoes, runPower float64, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("savedb: empty user id")
	}
	ts := now.UTC().Format(tsLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_profiles(user_id,display_name,created_at,last_seen_at,total_echoes_earned,highest_run_power) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   last_seen_at=excluded.last_seen_at,
		   total_echoes_earned=excluded.total_echoes_earned,
		   highest_run_power=max(game_profiles.highest_run_power, excluded.highest_run_power)`,
		userID, DefaultDisplayName, ts, ts, totalEchoes, runPower,
	)
	if err != nil {
		return fmt.Errorf("savedb: touch profile: %w", err)
	}
	return nil
}

func (s *DB) Profile(ctx context.Context, userID string) (Profile, bool, error) {
	p := Profile{UserID: userID}
	var created, seen string
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name, created_at, last_seen_at, total_echoes_earned, highest_run_power FROM game_profiles WHERE user_id=?`,
		userID,
	).Scan(&p.DisplayName, &created, &seen, &p.TotalEchoesEarned, &p.HighestRunPower)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("savedb: profile: %w", err)
	}
	p.CreatedAt, _ = time.Parse(tsLayout, created)
	p.LastSeenAt, _ = time.Parse(tsLayout, seen)
	return p, true, nil
}

func (s *DB) SetDisplayName(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE game_profiles SET display_name=? WHERE user_id=?`, name, userID)
	if err != nil {
		return fmt.Errorf("savedb: display name: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// WriteEvent queues ev for the events table. It never blocks; events are
// dropped when the writer falls behind.
func (s *DB) WriteEvent(ev analytics.Event) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *DB) DroppedEvents() uint64 { return s.dropped.Load() }

type EventRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// RecentEvents lists up to limit events, newest first, optionally filtered
// by kind.
func (s *DB) RecentEvents(ctx context.Context, kind string, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, user_id, kind, payload_json, created_at FROM game_events`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind=?`
		args = append(args, kind)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var r EventRow
		var payload string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountEvents returns per-kind totals.
func (s *DB) CountEvents(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM game_events GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// loop drains queued events in batched transactions. A batch commits when
// the queue runs dry or grows past commitEvery statements.
func (s *DB) loop() {
	ctx := context.Background()
	insertEvent, _ := s.db.Prepare(`INSERT OR IGNORE INTO game_events(id,user_id,kind,payload_json,created_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
	}()

	var (
		tx          *sql.Tx
		opCount     int
		commitEvery = 500
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for ev := range s.ch {
		begin()
		if tx == nil || insertEvent == nil {
			continue
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil || ev.Payload == nil {
			payload = []byte("{}")
		}
		if _, err := tx.Stmt(insertEvent).Exec(ev.ID, ev.UserID, string(ev.Kind), string(payload), ev.At.UTC().Format(tsLayout)); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
