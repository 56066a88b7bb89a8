package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timeforge.app/internal/identity"
	"timeforge.app/internal/protocol"
	"timeforge.app/internal/transport/ws"
)

type httpOptions struct {
	EnableAdmin bool
}

func newMux(a *app, wsSrv *ws.Server, opts httpOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, a, wsSrv)
	})
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, http.StatusOK, protocol.NewStateMsg(a.sess.Catalogs(), a.sess.Snapshot(), 0))
	})
	if a.ident != nil {
		mux.HandleFunc("/v1/auth/signup", authHandler(a, a.ident.SignUp))
		mux.HandleFunc("/v1/auth/signin", authHandler(a, a.ident.SignIn))
		mux.HandleFunc("/v1/auth/signout", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.ident.SignOut()
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
		})
		mux.HandleFunc("/v1/auth/me", func(rw http.ResponseWriter, r *http.Request) {
			writeJSON(rw, http.StatusOK, map[string]any{"user": a.ident.Current()})
		})
	}
	if a.db != nil {
		mux.HandleFunc("/v1/profile", profileHandler(a))
	}

	if opts.EnableAdmin {
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
			defer cancel()
			if err := a.sess.SaveNow(ctx); err != nil {
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "run_number": a.sess.Snapshot().RunNumber})
		})
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	return mux
}

type profileUpdate struct {
	DisplayName string `json:"display_name"`
}

// profileHandler serves the signed-in player's profile. POST renames.
func profileHandler(a *app) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		userID := a.ownerID()
		if userID == "" {
			writeJSON(rw, http.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			var u profileUpdate
			if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 4096)).Decode(&u); err != nil || strings.TrimSpace(u.DisplayName) == "" {
				writeJSON(rw, http.StatusBadRequest, map[string]any{"error": "display_name required"})
				return
			}
			err := a.db.SetDisplayName(r.Context(), userID, strings.TrimSpace(u.DisplayName))
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(rw, http.StatusNotFound, map[string]any{"error": "no profile yet"})
				return
			}
			if err != nil {
				writeJSON(rw, http.StatusInternalServerError, map[string]any{"error": err.Error()})
				return
			}
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, ok, err := a.db.Profile(r.Context(), userID)
		if err != nil {
			writeJSON(rw, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			writeJSON(rw, http.StatusNotFound, map[string]any{"error": "no profile yet"})
			return
		}
		writeJSON(rw, http.StatusOK, p)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func authHandler(a *app, fn func(ctx context.Context, email, password string) (*identity.User, error)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var c credentials
		if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 4096)).Decode(&c); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"error": "malformed body"})
			return
		}
		u, err := fn(r.Context(), c.Email, c.Password)
		if err != nil {
			a.log.Printf("auth %s: %v", r.URL.Path, err)
			writeJSON(rw, authStatus(err), map[string]any{"error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"user": u})
	}
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// writeMetrics emits the Prometheus text exposition format.
func writeMetrics(rw http.ResponseWriter, a *app, wsSrv *ws.Server) {
	st := a.sess.Snapshot()

	fmt.Fprintf(rw, "# HELP timeforge_session_ticks_total Ticks applied by the session.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_session_ticks_total counter\n")
	fmt.Fprintf(rw, "timeforge_session_ticks_total %d\n", a.sess.Ticks())

	fmt.Fprintf(rw, "# HELP timeforge_saves_total Completed saves.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_saves_total counter\n")
	fmt.Fprintf(rw, "timeforge_saves_total %d\n", a.sess.Saves())

	fmt.Fprintf(rw, "# HELP timeforge_save_errors_total Failed saves.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_save_errors_total counter\n")
	fmt.Fprintf(rw, "timeforge_save_errors_total %d\n", a.sess.SaveErrors())

	fmt.Fprintf(rw, "# HELP timeforge_ws_clients Connected websocket clients.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_ws_clients gauge\n")
	fmt.Fprintf(rw, "timeforge_ws_clients %d\n", wsSrv.Connections())

	fmt.Fprintf(rw, "# HELP timeforge_run_number Current run number.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_run_number gauge\n")
	fmt.Fprintf(rw, "timeforge_run_number %d\n", st.RunNumber)

	fmt.Fprintf(rw, "# HELP timeforge_balance Current currency balances.\n")
	fmt.Fprintf(rw, "# TYPE timeforge_balance gauge\n")
	fmt.Fprintf(rw, "timeforge_balance{currency=%q} %.3f\n", "sparks", st.Sparks)
	fmt.Fprintf(rw, "timeforge_balance{currency=%q} %.3f\n", "flux", st.Flux)
	fmt.Fprintf(rw, "timeforge_balance{currency=%q} %.3f\n", "civilization", st.Civilization)
	fmt.Fprintf(rw, "timeforge_balance{currency=%q} %.3f\n", "echoes", st.Echoes)
	fmt.Fprintf(rw, "timeforge_balance{currency=%q} %.3f\n", "shards", st.Shards)

	if a.events != nil {
		fmt.Fprintf(rw, "# HELP timeforge_analytics_events_total Analytics events by outcome.\n")
		fmt.Fprintf(rw, "# TYPE timeforge_analytics_events_total counter\n")
		fmt.Fprintf(rw, "timeforge_analytics_events_total{outcome=%q} %d\n", "recorded", a.events.Recorded())
		fmt.Fprintf(rw, "timeforge_analytics_events_total{outcome=%q} %d\n", "dropped", a.events.Dropped())
	}
	if a.db != nil {
		fmt.Fprintf(rw, "# HELP timeforge_savedb_dropped_events_total Events dropped by the SQLite writer queue.\n")
		fmt.Fprintf(rw, "# TYPE timeforge_savedb_dropped_events_total counter\n")
		fmt.Fprintf(rw, "timeforge_savedb_dropped_events_total %d\n", a.db.DroppedEvents())
	}
}
