package economy

import (
	"math"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

const (
	DefaultOfflineCapHours = 8
	DefaultTraitChoices    = 2
	FastRunSeconds         = 300
	MaxBulkIterations      = 1000
	OfflineSparksPerSecond = 0.1
)

// Bonuses is the aggregate of every purchased meta-upgrade level.
// Multiplicative fields default to 1, additive fields to their base value.
type Bonuses struct {
	ClickPower             float64
	BuildingProduction     float64
	FluxMultiplier         float64
	CivilizationMultiplier float64
	GlobalProduction       float64
	BuildingCost           float64
	StageProgress          float64
	OfflineGains           float64
	EchoesEarned           float64
	GlobalSpeed            float64

	OfflineCapHours float64
	TraitChoices    int
	AnomalyChance   float64
	StartingSparks  float64
	FastRunBonus    float64
	RandomBuffs     int
}

func neutralBonuses() Bonuses {
	return Bonuses{
		ClickPower:             1,
		BuildingProduction:     1,
		FluxMultiplier:         1,
		CivilizationMultiplier: 1,
		GlobalProduction:       1,
		BuildingCost:           1,
		StageProgress:          1,
		OfflineGains:           1,
		EchoesEarned:           1,
		GlobalSpeed:            1,
		OfflineCapHours:        DefaultOfflineCapHours,
		TraitChoices:           DefaultTraitChoices,
	}
}

// MetaBonuses folds all meta-upgrade levels into one Bonuses value.
func MetaBonuses(cats *catalogs.Catalogs, st *state.GameState) Bonuses {
	b := neutralBonuses()
	for _, def := range cats.MetaUpgrades {
		level := st.MetaUpgrades[def.ID]
		if level <= 0 {
			continue
		}
		if level > def.MaxLevel {
			level = def.MaxLevel
		}
		for _, e := range def.Effects {
			v := e.PerLevel * float64(level)
			if e.Kind.Composition() == catalogs.Multiplicative {
				v = math.Pow(e.PerLevel, float64(level))
			}
			switch e.Kind {
			case catalogs.MetaClickPower:
				b.ClickPower *= v
			case catalogs.MetaBuildingProduction:
				b.BuildingProduction *= v
			case catalogs.MetaFluxMultiplier:
				b.FluxMultiplier *= v
			case catalogs.MetaCivilizationMultiplier:
				b.CivilizationMultiplier *= v
			case catalogs.MetaGlobalProduction:
				b.GlobalProduction *= v
			case catalogs.MetaBuildingCost:
				b.BuildingCost *= v
			case catalogs.MetaStageProgress:
				b.StageProgress *= v
			case catalogs.MetaOfflineGains:
				b.OfflineGains *= v
			case catalogs.MetaEchoesEarned:
				b.EchoesEarned *= v
			case catalogs.MetaGlobalSpeed:
				b.GlobalSpeed *= v
			case catalogs.MetaOfflineCapHours:
				b.OfflineCapHours += v
			case catalogs.MetaTraitChoices:
				b.TraitChoices += int(v)
			case catalogs.MetaAnomalyChance:
				b.AnomalyChance += v
			case catalogs.MetaStartingSparks:
				b.StartingSparks += v
			case catalogs.MetaFastRunBonus:
				b.FastRunBonus += v
			case catalogs.MetaRandomBuff:
				b.RandomBuffs += int(v)
			}
		}
	}
	return b
}

func (b Bonuses) ResourceMultiplier(r catalogs.Resource) float64 {
	switch r {
	case catalogs.ResourceFlux:
		return b.FluxMultiplier
	case catalogs.ResourceCivilization:
		return b.CivilizationMultiplier
	}
	return 1
}

// CurrentStage resolves st.CurrentStageID, falling back to the first stage.
func CurrentStage(cats *catalogs.Catalogs, st *state.GameState) catalogs.StageDef {
	if s, ok := cats.Stage(st.CurrentStageID); ok {
		return s
	}
	return cats.FirstStage()
}

// StageFor derives the stage from cumulative flux scaled by the meta
// stage-progress multiplier. It never returns a stage ordered before the
// current one.
func StageFor(cats *catalogs.Catalogs, st *state.GameState) catalogs.StageDef {
	adjusted := state.NonNegative(st.TotalFluxEarned) * MetaBonuses(cats, st).StageProgress
	best := cats.FirstStage()
	for _, s := range cats.Stages {
		if adjusted >= s.FluxThreshold {
			best = s
		}
	}
	cur := CurrentStage(cats, st)
	if best.Order < cur.Order {
		return cur
	}
	return best
}

// TraitChoiceLimit is how many traits a run may start with.
func TraitChoiceLimit(cats *catalogs.Catalogs, st *state.GameState) int {
	n := MetaBonuses(cats, st).TraitChoices
	if n < 0 {
		return 0
	}
	return n
}

// HoldsRareTrait reports whether any active trait is rare or mythic.
func HoldsRareTrait(cats *catalogs.Catalogs, st *state.GameState) bool {
	for _, id := range st.ActiveTraits {
		if t, ok := cats.Trait(id); ok && t.Rarity.IsRare() {
			return true
		}
	}
	return false
}

func activeTraits(cats *catalogs.Catalogs, st *state.GameState) []catalogs.TraitDef {
	out := make([]catalogs.TraitDef, 0, len(st.ActiveTraits))
	for _, id := range st.ActiveTraits {
		if t, ok := cats.Trait(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// AnomalyChance is the per-roll probability: base plus meta bonus, scaled
// by every active trait's anomaly multiplier, clamped to [0,1].
func AnomalyChance(cats *catalogs.Catalogs, st *state.GameState, base float64) float64 {
	p := base + MetaBonuses(cats, st).AnomalyChance
	for _, t := range activeTraits(cats, st) {
		if m := t.Modifiers.AnomalyChanceMultiplier; m != 0 {
			p *= m
		}
	}
	return math.Min(1, clamp(p))
}

// clamp guards every cost, rate and progress value before use.
func clamp(v float64) float64 { return state.NonNegative(v) }
