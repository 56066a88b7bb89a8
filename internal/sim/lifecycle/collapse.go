package lifecycle

import (
	"maps"
	"math"
	"slices"
	"time"

	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/progress"
	"timeforge.app/internal/sim/state"
)

// Collapse ends the current run. The payout is computed against st; the
// next run starts from a fresh state and carries forward only permanent
// progress: echoes, shards, run number, discovered traits, achievements,
// meta levels, echo-funded upgrades, settings and lifetime records.
//
// Daily tasks and their progress reset with the run; the next tick draws a
// new set. Only the two day-scoped counters that can move solely at a
// collapse (collapses today, rare-trait runs today) are carried, so that
// tasks built on them can complete.
func (c *Controller) Collapse(st *state.GameState, now time.Time) (*state.GameState, float64) {
	earned := economy.EchoesFromRun(c.cats, st)
	runTime := state.NonNegative(st.TotalRunTime)
	heldRare := economy.HoldsRareTrait(c.cats, st)
	mb := economy.MetaBonuses(c.cats, st)

	next := state.New(c.cats, now)
	next.Sparks = state.NonNegative(mb.StartingSparks)

	next.Echoes = st.Echoes + earned
	next.TotalEchoesEver = st.TotalEchoesEver + earned
	next.Shards = st.Shards
	next.RunNumber = st.RunNumber + 1
	next.DiscoveredTraits = slices.Clone(st.DiscoveredTraits)
	next.Achievements = maps.Clone(st.Achievements)
	next.MetaUpgrades = maps.Clone(st.MetaUpgrades)
	for _, u := range c.cats.Upgrades {
		if u.Currency.Persistent() && st.Upgrades[u.ID] {
			next.Upgrades[u.ID] = true
		}
	}
	next.LastRunTraits = slices.Clone(st.ActiveTraits)

	next.Settings = st.Settings
	next.AutoSaveEnabled = st.AutoSaveEnabled
	next.Tutorial = st.Tutorial
	next.Tutorial.CompletedSteps = slices.Clone(st.Tutorial.CompletedSteps)
	next.PurchaseMode = st.PurchaseMode

	next.Records = st.Records
	if !next.Records.HasFastestRun || runTime < next.Records.FastestRunSeconds {
		next.Records.HasFastestRun = true
		next.Records.FastestRunSeconds = runTime
	}
	next.Records.BestRunEchoes = math.Max(next.Records.BestRunEchoes, earned)

	if !progress.ShouldResetDaily(st.DailyTasksLastReset, now) {
		next.DailyCollapses = st.DailyCollapses
		next.DailyRareTraitRuns = st.DailyRareTraitRuns
	}
	next.DailyCollapses++
	if heldRare {
		next.DailyRareTraitRuns++
		next.Records.RareTraitRuns++
	}

	return c.settle(next), earned
}
