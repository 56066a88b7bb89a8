package catalogs

import "fmt"

// MetaEffectKind is the closed set of permanent effects a meta-upgrade can
// carry. Adding a kind means adding it here, to metaEffectNames and to the
// aggregation switch in the economy package.
type MetaEffectKind int

const (
	MetaClickPower MetaEffectKind = iota + 1
	MetaBuildingProduction
	MetaFluxMultiplier
	MetaCivilizationMultiplier
	MetaGlobalProduction
	MetaBuildingCost
	MetaStageProgress
	MetaOfflineCapHours
	MetaOfflineGains
	MetaEchoesEarned
	MetaTraitChoices
	MetaAnomalyChance
	MetaStartingSparks
	MetaGlobalSpeed
	MetaFastRunBonus
	MetaRandomBuff
)

var metaEffectNames = map[MetaEffectKind]string{
	MetaClickPower:             "click_power",
	MetaBuildingProduction:     "building_production",
	MetaFluxMultiplier:         "flux_multiplier",
	MetaCivilizationMultiplier: "civilization_multiplier",
	MetaGlobalProduction:       "global_production",
	MetaBuildingCost:           "building_cost",
	MetaStageProgress:          "stage_progress",
	MetaOfflineCapHours:        "offline_cap_hours",
	MetaOfflineGains:           "offline_gains",
	MetaEchoesEarned:           "echoes_earned",
	MetaTraitChoices:           "trait_choices",
	MetaAnomalyChance:          "anomaly_chance",
	MetaStartingSparks:         "starting_sparks",
	MetaGlobalSpeed:            "global_speed",
	MetaFastRunBonus:           "fast_run_bonus",
	MetaRandomBuff:             "random_buff",
}

// Composition describes how levels of one effect combine.
type Composition int

const (
	// Multiplicative effects contribute PerLevel^level.
	Multiplicative Composition = iota + 1
	// Additive effects contribute PerLevel*level.
	Additive
)

func (k MetaEffectKind) Valid() bool {
	_, ok := metaEffectNames[k]
	return ok
}

func (k MetaEffectKind) String() string {
	if n, ok := metaEffectNames[k]; ok {
		return n
	}
	return fmt.Sprintf("MetaEffectKind(%d)", int(k))
}

func (k MetaEffectKind) Composition() Composition {
	switch k {
	case MetaOfflineCapHours, MetaTraitChoices, MetaAnomalyChance,
		MetaStartingSparks, MetaFastRunBonus, MetaRandomBuff:
		return Additive
	default:
		return Multiplicative
	}
}

func (k MetaEffectKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown meta effect kind %d", int(k))
	}
	return []byte(metaEffectNames[k]), nil
}

func (k *MetaEffectKind) UnmarshalText(b []byte) error {
	for kind, name := range metaEffectNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown meta effect kind %q", string(b))
}
