package session

import (
	"sort"

	"timeforge.app/internal/analytics"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/progress"
	"timeforge.app/internal/sim/state"
)

type event struct {
	kind    analytics.Kind
	payload map[string]any
}

// diffEvents derives analytics events from one committed transition.
func diffEvents(cats *catalogs.Catalogs, prev, next *state.GameState) []event {
	var out []event
	if next.RunNumber > prev.RunNumber {
		out = append(out,
			event{analytics.KindCollapse, map[string]any{
				"run_number":    prev.RunNumber,
				"echoes_earned": next.TotalEchoesEver - prev.TotalEchoesEver,
				"run_seconds":   prev.TotalRunTime,
				"stage":         prev.CurrentStageID,
				"traits":        prev.ActiveTraits,
			}},
			event{analytics.KindRunStart, map[string]any{"run_number": next.RunNumber}},
		)
	} else if next.CurrentStageID != prev.CurrentStageID {
		if a, ok := cats.Stage(next.CurrentStageID); ok {
			if b, ok := cats.Stage(prev.CurrentStageID); !ok || a.Order > b.Order {
				out = append(out, event{analytics.KindStageReached, map[string]any{"stage": a.ID, "run_number": next.RunNumber}})
			}
		}
	}

	if !prev.TraitsSelected && next.TraitsSelected && next.RunNumber == prev.RunNumber {
		out = append(out, event{analytics.KindTraitSelected, map[string]any{"traits": next.ActiveTraits}})
	}

	var metas []string
	for id, lvl := range next.MetaUpgrades {
		if lvl > prev.MetaUpgrades[id] {
			metas = append(metas, id)
		}
	}
	sort.Strings(metas)
	for _, id := range metas {
		out = append(out, event{analytics.KindMetaUpgradePurchased, map[string]any{"id": id, "level": next.MetaUpgrades[id]}})
	}

	unlocked := progress.Unlocked(prev, next)
	sort.Strings(unlocked)
	for _, id := range unlocked {
		out = append(out, event{analytics.KindAchievementUnlocked, map[string]any{"id": id}})
	}
	return out
}
