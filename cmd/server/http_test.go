package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timeforge.app/internal/analytics"
	"timeforge.app/internal/identity"
	"timeforge.app/internal/persistence/savedb"
	"timeforge.app/internal/persistence/store"
	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/clock"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/session"
	"timeforge.app/internal/sim/tuning"
	"timeforge.app/internal/transport/ws"
)

func newTestApp(t *testing.T) (*app, *http.ServeMux) {
	t.Helper()
	dir := t.TempDir()
	logger := log.New(io.Discard, "", 0)

	db, err := savedb.Open(filepath.Join(dir, "test.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ident, err := identity.Open(db.SQL())
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	events := analytics.NewDispatcher(logger, 64, db)
	cats := catalogs.Default()

	a := &app{
		store:  store.New(store.Config{DataDir: dir, CatalogDigest: cats.Digest, Remote: db, Logger: logger}),
		ident:  ident,
		events: events,
		db:     db,
		log:    logger,
	}
	a.sess = session.New(session.Config{
		Catalogs: cats,
		Tuning:   tuning.Defaults(),
		Clock:    clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		Rand:     rng.NewSeeded(3),
		Saver:    a,
		Recorder: events,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.sess.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = events.Close()
		_ = db.Close()
	})

	if err := a.load(context.Background(), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	ident.OnChange(a.switchUser)

	wsSrv := ws.NewServer(ws.Config{Session: a.sess, UserID: a.ownerID})
	return a, newMux(a, wsSrv, httpOptions{EnableAdmin: true})
}

func do(t *testing.T, mux http.Handler, method, path, body, remote string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthzAndMetrics(t *testing.T) {
	_, mux := newTestApp(t)
	if rec := do(t, mux, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz code=%d", rec.Code)
	}
	rec := do(t, mux, http.MethodGet, "/metrics", "", "")
	body := rec.Body.String()
	for _, want := range []string{
		"timeforge_session_ticks_total",
		`timeforge_balance{currency="sparks"}`,
		`timeforge_analytics_events_total{outcome="dropped"}`,
		"timeforge_savedb_dropped_events_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestState(t *testing.T) {
	a, mux := newTestApp(t)
	if _, err := a.sess.Do(context.Background(), session.Click()); err != nil {
		t.Fatalf("click: %v", err)
	}
	rec := do(t, mux, http.MethodGet, "/v1/state", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	var msg protocol.StateMsg
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.TypeState || msg.State.TotalClicks != 1 {
		t.Fatalf("state=%+v", msg)
	}
}

func TestAuth_SignUpSwitchesOwnerAndSavesRemote(t *testing.T) {
	a, mux := newTestApp(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = a.sess.Do(ctx, session.Click())
	}

	rec := do(t, mux, http.MethodPost, "/v1/auth/signup", `{"email":"p@x.io","password":"secret1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("signup code=%d body=%s", rec.Code, rec.Body)
	}
	uid := a.ident.CurrentID()
	if uid == "" || a.ownerID() != uid {
		t.Fatalf("owner=%q current=%q", a.ownerID(), uid)
	}
	// Local progress carries into the new account.
	if got := a.sess.Snapshot().TotalClicks; got != 3 {
		t.Fatalf("clicks=%d want=3", got)
	}
	if _, ok, err := a.db.LoadSave(ctx, uid, 1); err != nil || !ok {
		t.Fatalf("remote save ok=%v err=%v", ok, err)
	}

	rec = do(t, mux, http.MethodPost, "/v1/profile", `{"display_name":"Nova"}`, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Nova") {
		t.Fatalf("profile code=%d body=%s", rec.Code, rec.Body)
	}

	if rec := do(t, mux, http.MethodPost, "/v1/auth/signout", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("signout code=%d", rec.Code)
	}
	if a.ownerID() != "" {
		t.Fatalf("owner=%q after sign-out", a.ownerID())
	}
	if rec := do(t, mux, http.MethodGet, "/v1/profile", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous profile code=%d", rec.Code)
	}
}

func TestAuth_Errors(t *testing.T) {
	_, mux := newTestApp(t)
	cases := []struct {
		path, body string
		code       int
	}{
		{"/v1/auth/signin", `{"email":"nobody@x.io","password":"secret1"}`, http.StatusUnauthorized},
		{"/v1/auth/signup", `{"email":"bad","password":"secret1"}`, http.StatusBadRequest},
		{"/v1/auth/signup", `not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(t, mux, http.MethodPost, tc.path, tc.body, "")
		if rec.Code != tc.code {
			t.Fatalf("%s %s code=%d want=%d", tc.path, tc.body, rec.Code, tc.code)
		}
	}
	if rec := do(t, mux, http.MethodGet, "/v1/auth/signin", "", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET signin code=%d", rec.Code)
	}
}

func TestAdminSave_LoopbackOnly(t *testing.T) {
	a, mux := newTestApp(t)
	if rec := do(t, mux, http.MethodPost, "/admin/v1/save", "", "203.0.113.9:5555"); rec.Code != http.StatusForbidden {
		t.Fatalf("remote code=%d", rec.Code)
	}
	before := a.sess.Saves()
	if rec := do(t, mux, http.MethodPost, "/admin/v1/save", "", "127.0.0.1:5555"); rec.Code != http.StatusOK {
		t.Fatalf("loopback code=%d body=%s", rec.Code, rec.Body)
	}
	if a.sess.Saves() != before+1 {
		t.Fatalf("saves=%d want=%d", a.sess.Saves(), before+1)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80":  true,
		"[::1]:443":     true,
		"10.0.0.1:80":   false,
		"not-an-ip":     false,
		"localhost:123": false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s=%v want=%v", in, got, want)
		}
	}
}

// stallingRemote blocks every load until the caller gives up.
type stallingRemote struct{}

func (stallingRemote) UpsertSave(context.Context, savedb.SaveRecord) error { return nil }
func (stallingRemote) LoadSave(ctx context.Context, _ string, _ int) (savedb.SaveRecord, bool, error) {
	<-ctx.Done()
	return savedb.SaveRecord{}, false, ctx.Err()
}
func (stallingRemote) TouchProfile(context.Context, string, float64, float64, time.Time) error {
	return nil
}

func TestLoad_SlowRemoteStillResumesSession(t *testing.T) {
	a, _ := newTestApp(t)
	a.store = store.New(store.Config{
		DataDir:       t.TempDir(),
		CatalogDigest: a.sess.Catalogs().Digest,
		Remote:        stallingRemote{},
		Logger:        log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.load(ctx, "u-slow"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := a.ownerID(); got != "u-slow" {
		t.Fatalf("owner=%q want=u-slow", got)
	}

	ok, err := a.sess.Do(context.Background(), session.Click())
	if err != nil || !ok {
		t.Fatalf("click after slow load ok=%v err=%v", ok, err)
	}
}
