// Package lifecycle applies player actions to a game snapshot: clicks,
// purchases, trait selection, daily-task claims and collapse.
//
// Every method takes a snapshot it never modifies. Rejected actions return
// the same pointer and false; accepted actions return a fresh snapshot and
// true.
package lifecycle

import (
	"slices"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/progress"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/state"
	"timeforge.app/internal/sim/tuning"
)

type Controller struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	rand rng.Source
}

func New(cats *catalogs.Catalogs, tune tuning.Tuning, src rng.Source) *Controller {
	if src == nil {
		src = rng.Default()
	}
	return &Controller{cats: cats, tune: tune, rand: src}
}

func (c *Controller) Catalogs() *catalogs.Catalogs { return c.cats }

// settle re-evaluates daily tasks and achievements after a transition.
func (c *Controller) settle(next *state.GameState) *state.GameState {
	next = progress.UpdateDailyTasks(c.cats, next)
	return progress.CheckAchievements(c.cats, next)
}

func (c *Controller) Click(st *state.GameState) (*state.GameState, bool) {
	p := economy.ClickPower(c.cats, st)
	next := st.Clone()
	next.Sparks += p
	next.TotalSparksEarned += p
	next.TotalClicks++
	return c.settle(next), true
}

// BuyBuilding buys qty units of a building, or as many as affordable when
// qty is economy.BuyMax. A fixed quantity is all-or-nothing.
func (c *Controller) BuyBuilding(st *state.GameState, id string, qty int) (*state.GameState, bool) {
	if qty == 0 || qty < economy.BuyMax {
		return st, false
	}
	bulk, ok := economy.ProjectBulk(c.cats, st, id, qty)
	if !ok || bulk.Count == 0 {
		return st, false
	}
	if qty != economy.BuyMax && bulk.Count < qty {
		return st, false
	}
	if st.Sparks < bulk.TotalCost {
		return st, false
	}
	next := st.Clone()
	next.Debit(catalogs.CurrencySparks, bulk.TotalCost)
	next.Buildings[id] += bulk.Count
	next.DailyBuildingsPurchased += bulk.Count
	return c.settle(next), true
}

func (c *Controller) BuyUpgrade(st *state.GameState, id string) (*state.GameState, bool) {
	def, ok := c.cats.Upgrade(id)
	if !ok || st.Upgrades[id] {
		return st, false
	}
	if !economy.RequirementsMet(c.cats, st, def.Requires) {
		return st, false
	}
	price := economy.UpgradePrice(c.cats, st, def)
	if st.Balance(def.Currency) < price {
		return st, false
	}
	next := st.Clone()
	next.Debit(def.Currency, price)
	next.Upgrades[id] = true
	return c.settle(next), true
}

func (c *Controller) BuyMetaUpgrade(st *state.GameState, id string) (*state.GameState, bool) {
	def, ok := c.cats.MetaUpgrade(id)
	if !ok || !economy.MetaPrerequisiteMet(st, def) || !economy.CanAffordMeta(c.cats, st, id) {
		return st, false
	}
	level := st.MetaUpgrades[id]
	next := st.Clone()
	next.Debit(catalogs.CurrencyEchoes, economy.MetaUpgradeCost(def, level))
	next.MetaUpgrades[id] = level + 1
	return c.settle(next), true
}

// OfferTraits draws n distinct traits weighted by rarity for the run-start
// draft. n<=0 uses the tuned offer count.
func (c *Controller) OfferTraits(n int) []string {
	if n <= 0 {
		n = c.tune.TraitOfferCount
	}
	weights := make([]float64, len(c.cats.Traits))
	for i, t := range c.cats.Traits {
		weights[i] = t.Rarity.Weight()
	}
	picks := rng.SampleDistinct(weights, n, c.rand)
	out := make([]string, 0, len(picks))
	for _, i := range picks {
		out = append(out, c.cats.Traits[i].ID)
	}
	return out
}

// SelectTraits locks in the run's traits. It is accepted once per run, for
// zero up to the trait-choice limit of known, distinct ids; an empty list
// starts the run without traits. Ids are checked against the catalog, not
// against an earlier OfferTraits draw. Each meta random-buff level appends
// one extra trait drawn from the remaining pool.
func (c *Controller) SelectTraits(st *state.GameState, ids []string) (*state.GameState, bool) {
	if st.TraitsSelected || len(st.ActiveTraits) > 0 || len(ids) > economy.TraitChoiceLimit(c.cats, st) {
		return st, false
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.cats.Trait(id); !ok || seen[id] {
			return st, false
		}
		seen[id] = true
	}

	chosen := slices.Clone(ids)
	if buffs := economy.MetaBonuses(c.cats, st).RandomBuffs; buffs > 0 {
		weights := make([]float64, len(c.cats.Traits))
		for i, t := range c.cats.Traits {
			if !seen[t.ID] {
				weights[i] = t.Rarity.Weight()
			}
		}
		for _, i := range rng.SampleDistinct(weights, buffs, c.rand) {
			chosen = append(chosen, c.cats.Traits[i].ID)
		}
	}

	next := st.Clone()
	next.ActiveTraits = chosen
	next.TraitsSelected = true
	next.Discover(chosen...)
	return c.settle(next), true
}

func (c *Controller) ClaimDailyTask(st *state.GameState, id string) (*state.GameState, bool) {
	i := slices.IndexFunc(st.DailyTasks, func(p state.DailyTaskProgress) bool { return p.TaskID == id })
	if i < 0 {
		return st, false
	}
	task := st.DailyTasks[i]
	def, ok := c.cats.DailyTask(id)
	if !ok || !task.Completed || task.Claimed {
		return st, false
	}
	next := st.Clone()
	next.DailyTasks[i].Claimed = true
	next.Echoes += state.NonNegative(def.Reward.Echoes)
	next.TotalEchoesEver += state.NonNegative(def.Reward.Echoes)
	next.Sparks += state.NonNegative(def.Reward.Sparks)
	return c.settle(next), true
}
