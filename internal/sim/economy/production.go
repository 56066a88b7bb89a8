package economy

import (
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

type Production struct {
	FluxPerSecond         float64 `json:"flux_per_second"`
	CivilizationPerSecond float64 `json:"civilization_per_second"`
}

func (p Production) Of(r catalogs.Resource) float64 {
	if r == catalogs.ResourceCivilization {
		return p.CivilizationPerSecond
	}
	return p.FluxPerSecond
}

func purchasedMultipliers(cats *catalogs.Catalogs, st *state.GameState, match func(catalogs.Scope) bool) float64 {
	m := 1.0
	for _, u := range cats.Upgrades {
		if !st.Upgrades[u.ID] || u.Effect.Kind != catalogs.EffectMultiplier {
			continue
		}
		if match(u.Effect.Scope) {
			m *= u.Effect.Magnitude
		}
	}
	return m
}

// ClickPower is the sparks granted by one click.
func ClickPower(cats *catalogs.Catalogs, st *state.GameState) float64 {
	p := 1.0
	p *= purchasedMultipliers(cats, st, func(s catalogs.Scope) bool { return s.Kind == catalogs.ScopeClick })
	for _, t := range activeTraits(cats, st) {
		if m := t.Modifiers.ClickMultiplier; m != 0 {
			p *= m
		}
	}
	mb := MetaBonuses(cats, st)
	p *= mb.ClickPower * mb.GlobalProduction
	return clamp(p)
}

// BuildingProduction is the per-second output of every owned unit of def.
func BuildingProduction(cats *catalogs.Catalogs, st *state.GameState, def catalogs.BuildingDef) float64 {
	count := st.Buildings[def.ID]
	if count <= 0 {
		return 0
	}
	return buildingProduction(cats, st, def, count, MetaBonuses(cats, st), CurrentStage(cats, st))
}

func buildingProduction(cats *catalogs.Catalogs, st *state.GameState, def catalogs.BuildingDef, count int, mb Bonuses, stage catalogs.StageDef) float64 {
	p := def.BaseRate * float64(count)

	p *= purchasedMultipliers(cats, st, func(s catalogs.Scope) bool {
		return s.Kind == catalogs.ScopeBuilding && s.BuildingID == def.ID
	})
	traits := activeTraits(cats, st)
	for _, t := range traits {
		if m, ok := t.Modifiers.BuildingMultipliers[def.ID]; ok && m != 0 {
			p *= m
		}
	}
	for _, t := range traits {
		p *= t.Modifiers.ResourceMultiplier(def.Resource)
	}
	p *= purchasedMultipliers(cats, st, func(s catalogs.Scope) bool {
		return s.Kind == catalogs.ScopeGlobal || (s.Kind == catalogs.ScopeResource && s.Resource == def.Resource)
	})
	p *= mb.BuildingProduction
	p *= mb.GlobalProduction
	p *= mb.ResourceMultiplier(def.Resource)
	p *= stage.Bonuses.ResourceMultiplier(def.Resource)
	return clamp(p)
}

// TotalProduction sums BuildingProduction bucketed by resource and scales
// both totals by the meta global speed. Ticks and offline catch-up both
// credit these rates.
func TotalProduction(cats *catalogs.Catalogs, st *state.GameState) Production {
	mb := MetaBonuses(cats, st)
	stage := CurrentStage(cats, st)
	var out Production
	for _, def := range cats.Buildings {
		count := st.Buildings[def.ID]
		if count <= 0 {
			continue
		}
		p := buildingProduction(cats, st, def, count, mb, stage)
		switch def.Resource {
		case catalogs.ResourceFlux:
			out.FluxPerSecond += p
		case catalogs.ResourceCivilization:
			out.CivilizationPerSecond += p
		}
	}
	out.FluxPerSecond = clamp(out.FluxPerSecond * mb.GlobalSpeed)
	out.CivilizationPerSecond = clamp(out.CivilizationPerSecond * mb.GlobalSpeed)
	return out
}
