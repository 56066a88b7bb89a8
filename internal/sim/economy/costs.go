package economy

import (
	"math"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

type CostKind int

const (
	CostBuilding CostKind = iota + 1
	CostUpgrade
)

// BuyMax asks ProjectBulk for as many units as the balance allows.
const BuyMax = -1

// BuildingCost is the unmodified price of the next unit when count are owned.
func BuildingCost(def catalogs.BuildingDef, count int) float64 {
	return clamp(math.Floor(def.BaseCost * math.Pow(def.CostMultiplier, float64(count))))
}

// AdjustedCost applies trait cost multipliers and, for buildings, the meta
// and stage building-cost multipliers, then floors.
func AdjustedCost(cats *catalogs.Catalogs, st *state.GameState, base float64, kind CostKind) float64 {
	cost := base
	for _, t := range activeTraits(cats, st) {
		var m float64
		switch kind {
		case CostBuilding:
			m = t.Modifiers.BuildingCostMultiplier
		case CostUpgrade:
			m = t.Modifiers.UpgradeCostMultiplier
		}
		if m != 0 {
			cost *= m
		}
	}
	if kind == CostBuilding {
		cost *= MetaBonuses(cats, st).BuildingCost
		cost *= CurrentStage(cats, st).Bonuses.BuildingCostMultiplier()
	}
	return clamp(math.Floor(cost))
}

// BuildingPrice is the adjusted sparks price of the next unit of id.
func BuildingPrice(cats *catalogs.Catalogs, st *state.GameState, id string) (float64, bool) {
	def, ok := cats.Building(id)
	if !ok {
		return 0, false
	}
	return AdjustedCost(cats, st, BuildingCost(def, st.Buildings[id]), CostBuilding), true
}

func UpgradePrice(cats *catalogs.Catalogs, st *state.GameState, def catalogs.UpgradeDef) float64 {
	return AdjustedCost(cats, st, def.Cost, CostUpgrade)
}

// MetaUpgradeCost is the echoes price of going from level to level+1.
func MetaUpgradeCost(def catalogs.MetaUpgradeDef, level int) float64 {
	return clamp(math.Floor(def.BaseCost * math.Pow(def.CostMultiplier, float64(level))))
}

func CanAffordBuilding(cats *catalogs.Catalogs, st *state.GameState, id string) bool {
	price, ok := BuildingPrice(cats, st, id)
	return ok && st.Sparks >= price
}

func CanAffordUpgrade(cats *catalogs.Catalogs, st *state.GameState, id string) bool {
	def, ok := cats.Upgrade(id)
	if !ok {
		return false
	}
	return st.Balance(def.Currency) >= UpgradePrice(cats, st, def)
}

func CanAffordMeta(cats *catalogs.Catalogs, st *state.GameState, id string) bool {
	def, ok := cats.MetaUpgrade(id)
	if !ok {
		return false
	}
	level := st.MetaUpgrades[id]
	return level < def.MaxLevel && st.Echoes >= MetaUpgradeCost(def, level)
}

type Bulk struct {
	Count     int     `json:"count"`
	TotalCost float64 `json:"total_cost"`
}

// ProjectBulk sums adjusted per-unit prices step by step, exactly as
// repeated single purchases would pay them. qty is a unit count or BuyMax.
// The walk never exceeds MaxBulkIterations units.
func ProjectBulk(cats *catalogs.Catalogs, st *state.GameState, id string, qty int) (Bulk, bool) {
	def, ok := cats.Building(id)
	if !ok {
		return Bulk{}, false
	}
	if qty != BuyMax && qty <= 0 {
		return Bulk{}, true
	}
	limit := MaxBulkIterations
	if qty != BuyMax && qty < limit {
		limit = qty
	}
	owned := st.Buildings[id]
	var out Bulk
	for i := 0; i < limit; i++ {
		next := AdjustedCost(cats, st, BuildingCost(def, owned+i), CostBuilding)
		if qty == BuyMax && out.TotalCost+next > st.Sparks {
			break
		}
		out.TotalCost += next
		out.Count++
	}
	return out, true
}
