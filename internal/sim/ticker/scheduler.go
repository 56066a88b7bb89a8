package ticker

import (
	"time"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/clock"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/state"
	"timeforge.app/internal/sim/tuning"
)

// Scheduler measures wall time between ticks and decides when an anomaly
// roll is due. It is owned by a single goroutine.
type Scheduler struct {
	cats  *catalogs.Catalogs
	tune  tuning.Tuning
	clock clock.Clock
	rand  rng.Source

	last      time.Time
	sinceRoll float64
}

func NewScheduler(cats *catalogs.Catalogs, tune tuning.Tuning, clk clock.Clock, src rng.Source) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if src == nil {
		src = rng.Default()
	}
	s := &Scheduler{cats: cats, tune: tune, clock: clk, rand: src}
	s.Reset()
	return s
}

// Reset re-bases the scheduler on the current instant, e.g. after a load.
func (s *Scheduler) Reset() {
	s.last = s.clock.Now()
	s.sinceRoll = 0
}

// Advance runs one tick covering the time since the previous Advance or
// Reset.
func (s *Scheduler) Advance(st *state.GameState) *state.GameState {
	now := s.clock.Now()
	elapsed := now.Sub(s.last)
	if elapsed < 0 {
		elapsed = 0
	}
	s.last = now

	s.sinceRoll += elapsed.Seconds()
	roll := false
	if s.sinceRoll >= s.tune.Anomaly.RollEverySeconds {
		roll = true
		s.sinceRoll = 0
	}
	return Step(s.cats, s.tune, st, StepInput{Elapsed: elapsed, Now: now, AnomalyRoll: roll, Rand: s.rand})
}
