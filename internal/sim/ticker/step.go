package ticker

import (
	"math"
	"time"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/progress"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/state"
	"timeforge.app/internal/sim/tuning"
)

type StepInput struct {
	Elapsed     time.Duration
	Now         time.Time
	AnomalyRoll bool
	Rand        rng.Source
}

// Step advances st by one tick and returns the next snapshot.
//
// Production is computed from st (the state before the tick), scaled by
// elapsed seconds and credited to flux and civilization. Run time grows by
// the same elapsed time.
func Step(cats *catalogs.Catalogs, tune tuning.Tuning, st *state.GameState, in StepInput) *state.GameState {
	secs := math.Max(0, in.Elapsed.Seconds())
	rate := economy.TotalProduction(cats, st)

	next := st.Clone()
	flux := state.NonNegative(rate.FluxPerSecond * secs)
	next.Flux += flux
	next.TotalFluxEarned += flux
	next.Civilization += state.NonNegative(rate.CivilizationPerSecond * secs)
	next.TotalRunTime += secs
	if rate.FluxPerSecond > next.PeakFluxPerSecond {
		next.PeakFluxPerSecond = rate.FluxPerSecond
	}
	if rate.FluxPerSecond > next.Records.PeakFluxPerSecond {
		next.Records.PeakFluxPerSecond = rate.FluxPerSecond
	}

	if in.AnomalyRoll {
		p := economy.AnomalyChance(cats, next, tune.Anomaly.BaseChance)
		if rng.Bernoulli(p, in.Rand) {
			next.Anomalies++
		}
	}

	advanceStage(cats, next)
	now := in.Now.UTC()
	next.LastTickAt = now
	next.LastUpdateAt = now

	next = progress.InitDailyTasks(cats, next, now, tune.DailyTaskCount, in.Rand)
	next = progress.UpdateDailyTasks(cats, next)
	return progress.CheckAchievements(cats, next)
}

// advanceStage moves next to the stage its adjusted flux earns. next must
// already be a private copy.
func advanceStage(cats *catalogs.Catalogs, next *state.GameState) {
	s := economy.StageFor(cats, next)
	next.CurrentStageID = s.ID
	hi, ok := cats.Stage(next.HighestStageReached)
	if !ok || s.Order > hi.Order {
		next.HighestStageReached = s.ID
	}
}

// ApplyOffline credits the lump offline gains since st was last observed
// and flags them as unclaimed for display. It returns st unchanged when
// no time has passed.
func ApplyOffline(cats *catalogs.Catalogs, st *state.GameState, now time.Time) (*state.GameState, economy.Offline) {
	gains := economy.OfflineGains(cats, st, now)
	if gains.Seconds <= 0 {
		return st, gains
	}
	next := st.Clone()
	next.Sparks += gains.Sparks
	next.TotalSparksEarned += gains.Sparks
	next.Flux += gains.Flux
	next.TotalFluxEarned += gains.Flux
	next.Civilization += gains.Civilization
	next.OfflineGainsClaimed = false
	now = now.UTC()
	next.LastTickAt = now
	next.LastUpdateAt = now
	advanceStage(cats, next)
	return progress.CheckAchievements(cats, next), gains
}
