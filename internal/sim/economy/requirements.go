package economy

import (
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

// RequirementsMet evaluates declarative prerequisites against st. Unknown
// requirement kinds never pass.
func RequirementsMet(cats *catalogs.Catalogs, st *state.GameState, reqs []catalogs.Requirement) bool {
	for _, r := range reqs {
		if !requirementMet(cats, st, r) {
			return false
		}
	}
	return true
}

func requirementMet(cats *catalogs.Catalogs, st *state.GameState, r catalogs.Requirement) bool {
	switch r.Kind {
	case catalogs.RequireUpgrade:
		return st.Upgrades[r.ID]
	case catalogs.RequireStage:
		want, ok := cats.Stage(r.ID)
		if !ok {
			return false
		}
		return CurrentStage(cats, st).Order >= want.Order
	case catalogs.RequireMetaLevel:
		lvl := r.Level
		if lvl <= 0 {
			lvl = 1
		}
		return st.MetaUpgrades[r.ID] >= lvl
	case catalogs.RequireRunNumber:
		return st.RunNumber >= r.Level
	default:
		return false
	}
}

// MetaPrerequisiteMet reports whether def's prerequisite meta-upgrade, if
// any, has been bought at least once.
func MetaPrerequisiteMet(st *state.GameState, def catalogs.MetaUpgradeDef) bool {
	return def.Prerequisite == "" || st.MetaUpgrades[def.Prerequisite] > 0
}
