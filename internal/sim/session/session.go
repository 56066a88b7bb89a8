// Package session owns the live game state. One goroutine runs every
// transition (ticks, player actions, loads) in order; readers get fully
// formed snapshots through Snapshot.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"timeforge.app/internal/analytics"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/clock"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/lifecycle"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/state"
	"timeforge.app/internal/sim/ticker"
	"timeforge.app/internal/sim/tuning"
)

var (
	ErrStopped   = errors.New("session stopped")
	ErrSuspended = errors.New("session suspended")
)

// Saver persists a snapshot. It runs off the session goroutine.
type Saver interface {
	Save(ctx context.Context, st *state.GameState) error
}

type SaverFunc func(ctx context.Context, st *state.GameState) error

func (f SaverFunc) Save(ctx context.Context, st *state.GameState) error { return f(ctx, st) }

type Config struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Clock    clock.Clock
	Rand     rng.Source
	Saver    Saver
	Recorder analytics.Recorder
	Logger   *log.Logger
}

type Session struct {
	cfg   Config
	ctrl  *lifecycle.Controller
	sched *ticker.Scheduler

	cur       atomic.Pointer[state.GameState]
	suspended bool

	inbox   chan actReq
	hydrate chan hydrateReq
	suspend chan chan struct{}
	stop    chan struct{}
	stopped sync.Once

	subMu sync.Mutex
	subs  map[chan *state.GameState]struct{}

	saving     atomic.Bool
	ticks      atomic.Uint64
	saves      atomic.Uint64
	saveErrors atomic.Uint64
}

type actReq struct {
	act  Action
	resp chan actResult
}

type actResult struct {
	ok  bool
	err error
}

type hydrateReq struct {
	st   *state.GameState
	resp chan economy.Offline
}

// New builds a session holding a fresh state. Call Hydrate to replace it
// with a loaded one.
func New(cfg Config) *Session {
	if cfg.Catalogs == nil {
		cfg.Catalogs = catalogs.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rng.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = analytics.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	s := &Session{
		cfg:     cfg,
		ctrl:    lifecycle.New(cfg.Catalogs, cfg.Tuning, cfg.Rand),
		sched:   ticker.NewScheduler(cfg.Catalogs, cfg.Tuning, cfg.Clock, cfg.Rand),
		inbox:   make(chan actReq, 256),
		hydrate: make(chan hydrateReq),
		suspend: make(chan chan struct{}),
		stop:    make(chan struct{}),
		subs:    map[chan *state.GameState]struct{}{},
	}
	s.cur.Store(state.New(cfg.Catalogs, cfg.Clock.Now()))
	return s
}

func (s *Session) Catalogs() *catalogs.Catalogs      { return s.cfg.Catalogs }
func (s *Session) Controller() *lifecycle.Controller { return s.ctrl }

// Snapshot returns the latest committed state. Callers must not modify it.
func (s *Session) Snapshot() *state.GameState { return s.cur.Load() }

func (s *Session) Ticks() uint64      { return s.ticks.Load() }
func (s *Session) Saves() uint64      { return s.saves.Load() }
func (s *Session) SaveErrors() uint64 { return s.saveErrors.Load() }

func (s *Session) Run(ctx context.Context) error {
	tick := time.NewTicker(s.cfg.Tuning.TickInterval())
	defer tick.Stop()
	autosave := time.NewTicker(s.cfg.Tuning.AutoSaveInterval())
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.inbox:
			req.resp <- s.handleAct(req.act)
		case req := <-s.hydrate:
			req.resp <- s.handleHydrate(req.st)
		case done := <-s.suspend:
			s.suspended = true
			close(done)
		case <-tick.C:
			s.StepOnce()
		case <-autosave.C:
			if st := s.cur.Load(); !s.suspended && st.AutoSaveEnabled {
				s.saveAsync(st)
			}
		}
	}
}

func (s *Session) Stop() { s.stopped.Do(func() { close(s.stop) }) }

// StepOnce advances the state by one tick on the calling goroutine. The
// run loop calls it on every tick; tests may call it directly when Run is
// not running.
func (s *Session) StepOnce() {
	if s.suspended {
		return
	}
	prev := s.cur.Load()
	next := s.sched.Advance(prev)
	s.ticks.Add(1)
	s.commit(prev, next)
}

// Do runs act on the session goroutine and reports whether it was applied.
func (s *Session) Do(ctx context.Context, act Action) (bool, error) {
	req := actReq{act: act, resp: make(chan actResult, 1)}
	select {
	case s.inbox <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.stop:
		return false, ErrStopped
	}
	select {
	case res := <-req.resp:
		return res.ok, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.stop:
		return false, ErrStopped
	}
}

// Suspend stops ticks and actions until the next Hydrate, so a blocking
// load can run outside the loop.
func (s *Session) Suspend(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.suspend <- done:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return ErrStopped
	}
	<-done
	return nil
}

// Hydrate replaces the state with st (nil starts a new player), credits
// offline progress, re-bases the tick clock and resumes.
func (s *Session) Hydrate(ctx context.Context, st *state.GameState) (economy.Offline, error) {
	req := hydrateReq{st: st, resp: make(chan economy.Offline, 1)}
	select {
	case s.hydrate <- req:
	case <-ctx.Done():
		return economy.Offline{}, ctx.Err()
	case <-s.stop:
		return economy.Offline{}, ErrStopped
	}
	return <-req.resp, nil
}

// SaveNow saves the current snapshot on the calling goroutine.
func (s *Session) SaveNow(ctx context.Context) error {
	if s.cfg.Saver == nil {
		return nil
	}
	err := s.cfg.Saver.Save(ctx, s.cur.Load())
	if err != nil {
		s.saveErrors.Add(1)
		return err
	}
	s.saves.Add(1)
	return nil
}

// Subscribe returns a channel receiving every committed snapshot. Slow
// readers only see the latest one.
func (s *Session) Subscribe() (<-chan *state.GameState, func()) {
	ch := make(chan *state.GameState, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
}

func (s *Session) handleAct(act Action) actResult {
	if s.suspended {
		return actResult{err: ErrSuspended}
	}
	prev := s.cur.Load()
	next, ok := act(s.ctrl, prev, s.cfg.Clock.Now())
	if !ok || next == prev {
		return actResult{}
	}
	s.commit(prev, next)
	if next.RunNumber > prev.RunNumber && next.AutoSaveEnabled {
		s.saveAsync(next)
	}
	return actResult{ok: true}
}

func (s *Session) handleHydrate(st *state.GameState) economy.Offline {
	now := s.cfg.Clock.Now()
	if st == nil {
		st = state.New(s.cfg.Catalogs, now)
	} else {
		st = st.Clone()
		st.Normalize(s.cfg.Catalogs)
	}
	next, gains := ticker.ApplyOffline(s.cfg.Catalogs, st, now)
	s.cur.Store(next)
	s.sched.Reset()
	s.suspended = false
	s.publish(next)
	if gains.Seconds > 0 {
		s.cfg.Logger.Printf("offline catch-up: %.0fs flux=%.2f civilization=%.2f sparks=%.2f", gains.Seconds, gains.Flux, gains.Civilization, gains.Sparks)
	}
	return gains
}

func (s *Session) commit(prev, next *state.GameState) {
	if next == prev {
		return
	}
	s.cur.Store(next)
	s.publish(next)
	for _, ev := range diffEvents(s.cfg.Catalogs, prev, next) {
		s.cfg.Recorder.Record(ev.kind, ev.payload)
	}
}

func (s *Session) publish(st *state.GameState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// saveAsync hands st to the saver on its own goroutine. A save still in
// flight causes this one to be skipped.
func (s *Session) saveAsync(st *state.GameState) {
	if s.cfg.Saver == nil || !s.saving.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.saving.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.cfg.Saver.Save(ctx, st); err != nil {
			s.saveErrors.Add(1)
			s.cfg.Logger.Printf("autosave: %v", err)
			return
		}
		s.saves.Add(1)
	}()
}

// OfferTraits draws a trait offer on the session goroutine. The state is
// left untouched.
func (s *Session) OfferTraits(ctx context.Context, n int) ([]string, error) {
	res := make(chan []string, 1)
	_, err := s.Do(ctx, func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		res <- c.OfferTraits(n)
		return st, false
	})
	if err != nil {
		return nil, err
	}
	return <-res, nil
}
