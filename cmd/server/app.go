package main

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"timeforge.app/internal/analytics"
	"timeforge.app/internal/identity"
	"timeforge.app/internal/persistence/savedb"
	"timeforge.app/internal/persistence/store"
	"timeforge.app/internal/sim/session"
	"timeforge.app/internal/sim/state"
)

// app owns the single player session and reacts to sign-in changes by
// saving, reloading and re-hydrating it.
type app struct {
	sess   *session.Session
	store  *store.Store
	ident  *identity.Service
	events *analytics.Dispatcher
	db     *savedb.DB
	log    *log.Logger

	// owner is the user whose save slot the running session belongs to.
	// It only changes once the next user's state has been loaded.
	owner    atomic.Value
	switchMu sync.Mutex
}

func (a *app) ownerID() string {
	id, _ := a.owner.Load().(string)
	return id
}

// Save is the session's Saver.
func (a *app) Save(ctx context.Context, st *state.GameState) error {
	return a.store.Save(ctx, a.ownerID(), st)
}

// load suspends the session, loads userID's state and hydrates it. A
// missing or unreadable save starts a new player. Once suspended the
// session is always hydrated, even if ctx expires during the load.
func (a *app) load(ctx context.Context, userID string) error {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	if err := a.sess.Suspend(ctx); err != nil {
		return err
	}
	st, err := a.store.Load(ctx, userID)
	if err != nil {
		a.log.Printf("load %q: %v; starting fresh", userID, err)
		st = nil
	}
	a.owner.Store(userID)
	if a.events != nil {
		a.events.SetUser(userID)
	}
	gains, err := a.sess.Hydrate(context.WithoutCancel(ctx), st)
	if err != nil {
		return err
	}
	if st == nil {
		a.log.Printf("session ready: new player user=%q", userID)
	} else {
		a.log.Printf("session ready: run=%d user=%q offline=%.0fs", st.RunNumber, userID, gains.Seconds)
	}
	return nil
}

// switchUser saves the current player under the old owner and reloads for
// next.
func (a *app) switchUser(prev, next *identity.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.sess.SaveNow(ctx); err != nil {
		a.log.Printf("save before identity switch: %v", err)
	}
	prevID, nextID := "", ""
	if prev != nil {
		prevID = prev.ID
	}
	if next != nil {
		nextID = next.ID
	}
	a.log.Printf("identity: %q -> %q", prevID, nextID)
	if err := a.load(ctx, nextID); err != nil {
		a.log.Printf("reload after identity switch: %v", err)
		return
	}
	if nextID != "" {
		if err := a.sess.SaveNow(ctx); err != nil {
			a.log.Printf("save after sign-in: %v", err)
		}
	}
}
