package main

import (
	"fmt"
	"math"

	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/state"
)

// strategy is a greedy player: claim rewards, pick traits, buy the
// cheapest thing it can afford and collapse once the payout is worth it.
type strategy struct {
	cats       *catalogs.Catalogs
	collapseAt float64
	minRunSecs float64

	seq        int
	offeredRun int
}

func newStrategy(cats *catalogs.Catalogs, collapseAt, minRunSecs float64) *strategy {
	return &strategy{cats: cats, collapseAt: collapseAt, minRunSecs: minRunSecs, offeredRun: -1}
}

func (s *strategy) act(action string) protocol.ActMsg {
	s.seq++
	return protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("B%d", s.seq),
		Action:          action,
	}
}

func (s *strategy) click() protocol.ActMsg { return s.act(protocol.ActClick) }

// plan returns the purchases and claims worth making on st. At most one
// purchase is planned per snapshot since prices move after each.
func (s *strategy) plan(st *state.GameState, rates protocol.Rates) []protocol.ActMsg {
	var out []protocol.ActMsg

	for _, dt := range st.DailyTasks {
		if dt.Completed && !dt.Claimed {
			m := s.act(protocol.ActClaimDailyTask)
			m.Target = dt.TaskID
			out = append(out, m)
		}
	}

	if !st.TraitsSelected && s.offeredRun != st.RunNumber {
		s.offeredRun = st.RunNumber
		out = append(out, s.act(protocol.ActOfferTraits))
	}

	if rates.EchoesIfCollapsed >= s.collapseAt && st.TotalRunTime >= s.minRunSecs {
		return append(out, s.act(protocol.ActCollapse))
	}

	if id, ok := s.affordableMeta(st); ok {
		m := s.act(protocol.ActBuyMetaUpgrade)
		m.Target = id
		return append(out, m)
	}
	if id, ok := s.affordableUpgrade(st); ok {
		m := s.act(protocol.ActBuyUpgrade)
		m.Target = id
		return append(out, m)
	}
	if id, ok := s.cheapestBuilding(st); ok {
		m := s.act(protocol.ActBuyBuilding)
		m.Target = id
		m.Qty = 1
		return append(out, m)
	}
	return out
}

// choose picks traits from an offer, up to the run's choice limit.
func (s *strategy) choose(offer []string, limit int) protocol.ActMsg {
	if limit > len(offer) {
		limit = len(offer)
	}
	m := s.act(protocol.ActSelectTraits)
	m.IDs = append([]string(nil), offer[:limit]...)
	return m
}

func (s *strategy) affordableMeta(st *state.GameState) (string, bool) {
	for _, def := range s.cats.MetaUpgrades {
		if economy.MetaPrerequisiteMet(st, def) && economy.CanAffordMeta(s.cats, st, def.ID) {
			return def.ID, true
		}
	}
	return "", false
}

func (s *strategy) affordableUpgrade(st *state.GameState) (string, bool) {
	for _, def := range s.cats.Upgrades {
		if st.Upgrades[def.ID] || !economy.RequirementsMet(s.cats, st, def.Requires) {
			continue
		}
		if economy.CanAffordUpgrade(s.cats, st, def.ID) {
			return def.ID, true
		}
	}
	return "", false
}

func (s *strategy) cheapestBuilding(st *state.GameState) (string, bool) {
	best, bestPrice := "", math.Inf(1)
	for _, def := range s.cats.Buildings {
		price, ok := economy.BuildingPrice(s.cats, st, def.ID)
		if ok && price <= st.Sparks && price < bestPrice {
			best, bestPrice = def.ID, price
		}
	}
	return best, best != ""
}
