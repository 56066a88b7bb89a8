package progress

import (
	"math"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/state"
)

// CheckAchievements recomputes progress of every locked achievement and
// unlocks those that reached their target, granting the shard reward once.
// When nothing changes it returns st itself.
func CheckAchievements(cats *catalogs.Catalogs, st *state.GameState) *state.GameState {
	var next *state.GameState
	for _, def := range cats.Achievements {
		cur := st.Achievements[def.ID]
		if cur.Unlocked {
			continue
		}
		prog := math.Min(achievementProgress(cats, st, def), def.Target)
		unlocked := prog >= def.Target
		if prog == cur.Progress && !unlocked {
			continue
		}
		if next == nil {
			next = st.Clone()
		}
		next.Achievements[def.ID] = state.AchievementState{Progress: prog, Unlocked: unlocked}
		if unlocked {
			next.Shards += state.NonNegative(def.RewardShards)
		}
	}
	if next == nil {
		return st
	}
	return next
}

// Unlocked lists achievement ids unlocked in next but not in prev.
func Unlocked(prev, next *state.GameState) []string {
	if prev == next {
		return nil
	}
	var out []string
	for id, a := range next.Achievements {
		if a.Unlocked && !prev.Achievements[id].Unlocked {
			out = append(out, id)
		}
	}
	return out
}

func achievementProgress(cats *catalogs.Catalogs, st *state.GameState, def catalogs.AchievementDef) float64 {
	switch def.Metric {
	case catalogs.MetricTotalClicks:
		return float64(st.TotalClicks)
	case catalogs.MetricBuildingsOwned:
		return float64(st.TotalBuildings())
	case catalogs.MetricFluxEver:
		return state.NonNegative(st.TotalFluxEarned)
	case catalogs.MetricRunCount:
		return float64(st.RunNumber)
	case catalogs.MetricEchoesEver:
		return state.NonNegative(st.TotalEchoesEver)
	case catalogs.MetricTraitsDiscovered:
		return float64(len(st.DiscoveredTraits))
	case catalogs.MetricHoldsRareTrait:
		return boolProgress(economy.HoldsRareTrait(cats, st))
	case catalogs.MetricReachedStage:
		return boolProgress(reachedStage(cats, st, def.StageID))
	case catalogs.MetricFastRun:
		return boolProgress(st.Records.HasFastestRun && st.Records.FastestRunSeconds < def.Seconds)
	}
	return 0
}

func reachedStage(cats *catalogs.Catalogs, st *state.GameState, stageID string) bool {
	want, ok := cats.Stage(stageID)
	if !ok {
		return false
	}
	hi, ok := cats.Stage(st.HighestStageReached)
	if !ok {
		return false
	}
	return hi.Order >= want.Order
}

func boolProgress(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
