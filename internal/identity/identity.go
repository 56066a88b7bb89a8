// Package identity keeps the local player accounts and tracks who is
// signed in. Accounts live in SQLite next to the remote saves.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrWeakPassword       = errors.New("identity: password too short")
	ErrInvalidEmail       = errors.New("identity: invalid email")
)

const MinPasswordLen = 6

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Listener is told about every change of the signed-in user. prev and next
// are nil for the anonymous player.
type Listener func(prev, next *User)

type Service struct {
	db  *sql.DB
	now func() time.Time

	mu        sync.Mutex
	current   *User
	listeners []Listener
}

// Open prepares the users table on db. db is shared and stays owned by the
// caller.
func Open(db *sql.DB) (*Service, error) {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  user_id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  salt TEXT NOT NULL,
  digest TEXT NOT NULL,
  created_at TEXT NOT NULL
);`); err != nil {
		return nil, fmt.Errorf("identity schema: %w", err)
	}
	return &Service{db: db, now: time.Now}, nil
}

// Current returns the signed-in user, or nil.
func (s *Service) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// CurrentID is the signed-in user's id, or "".
func (s *Service) CurrentID() string {
	if u := s.Current(); u != nil {
		return u.ID
	}
	return ""
}

func (s *Service) OnChange(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	u := &User{ID: uuid.NewString(), Email: email, CreatedAt: s.now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(user_id, email, salt, digest, created_at) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, hex.EncodeToString(salt), digest(salt, password), u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if s.emailExists(ctx, email) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.switchTo(u)
	return u, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	var (
		id, saltHex, want, created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, salt, digest, created_at FROM users WHERE email=?`, email).
		Scan(&id, &saltHex, &want, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("identity: corrupt salt for %s: %w", id, err)
	}
	if subtle.ConstantTimeCompare([]byte(digest(salt, password)), []byte(want)) != 1 {
		return nil, ErrInvalidCredentials
	}
	u := &User{ID: id, Email: email}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	s.switchTo(u)
	return u, nil
}

// SignOut returns to the anonymous player. Signing out while anonymous is a
// no-op and notifies nobody.
func (s *Service) SignOut() {
	s.switchTo(nil)
}

func (s *Service) switchTo(next *User) {
	s.mu.Lock()
	prev := s.current
	if prev == nil && next == nil {
		s.mu.Unlock()
		return
	}
	s.current = next
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range ls {
		l(prev, next)
	}
}

func (s *Service) emailExists(ctx context.Context, email string) bool {
	var n int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email=?`, email).Scan(&n)
	return n > 0
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func digest(salt []byte, password string) string {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}
