package progress

import (
	"math"
	"time"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/state"
)

// NextDailyReset is the first UTC midnight strictly after last.
func NextDailyReset(last time.Time) time.Time {
	u := last.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(24 * time.Hour)
}

// ShouldResetDaily reports whether a UTC midnight has passed since last.
func ShouldResetDaily(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return !now.UTC().Before(NextDailyReset(last))
}

// InitDailyTasks assigns a fresh set of count tasks when the window has
// rolled over or was never opened (a new player or a fresh run). The daily
// counters are zeroed only on a rollover; a run started by collapse keeps
// the counters it was handed. Otherwise it returns st.
func InitDailyTasks(cats *catalogs.Catalogs, st *state.GameState, now time.Time, count int, src rng.Source) *state.GameState {
	if !ShouldResetDaily(st.DailyTasksLastReset, now) {
		return st
	}
	weights := make([]float64, len(cats.DailyTasks))
	for i := range weights {
		weights[i] = 1
	}
	picks := rng.SampleDistinct(weights, count, src)

	next := st.Clone()
	next.DailyTasks = make([]state.DailyTaskProgress, 0, len(picks))
	for _, i := range picks {
		next.DailyTasks = append(next.DailyTasks, state.DailyTaskProgress{TaskID: cats.DailyTasks[i].ID})
	}
	if !st.DailyTasksLastReset.IsZero() {
		next.DailyCollapses = 0
		next.DailyRareTraitRuns = 0
		next.DailyBuildingsPurchased = 0
	}
	next.DailyTasksLastReset = now.UTC()
	return next
}

// UpdateDailyTasks recomputes progress of every assigned, incomplete task,
// resolving each by id in the canonical table. Completion is sticky. When
// nothing changes it returns st itself.
func UpdateDailyTasks(cats *catalogs.Catalogs, st *state.GameState) *state.GameState {
	var next *state.GameState
	for i, tp := range st.DailyTasks {
		if tp.Completed {
			continue
		}
		def, ok := cats.DailyTask(tp.TaskID)
		if !ok {
			continue
		}
		prog := math.Min(dailyProgress(cats, st, def), def.Target)
		done := prog >= def.Target
		if prog == tp.Progress && !done {
			continue
		}
		if next == nil {
			next = st.Clone()
		}
		next.DailyTasks[i].Progress = prog
		next.DailyTasks[i].Completed = done
	}
	if next == nil {
		return st
	}
	return next
}

func dailyProgress(cats *catalogs.Catalogs, st *state.GameState, def catalogs.DailyTaskDef) float64 {
	switch def.Metric {
	case catalogs.DailySparksEarned:
		return state.NonNegative(st.TotalSparksEarned)
	case catalogs.DailyCollapses:
		return float64(st.DailyCollapses)
	case catalogs.DailyRareTraitRuns:
		return float64(st.DailyRareTraitRuns)
	case catalogs.DailyReachedStage:
		return boolProgress(reachedStage(cats, st, def.StageID))
	case catalogs.DailyBuildingsPurchased:
		return float64(st.DailyBuildingsPurchased)
	}
	return 0
}
