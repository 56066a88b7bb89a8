package catalogs

import (
	"errors"
	"fmt"
)

// Validate checks referential integrity and numeric sanity of the tables.
// All problems are reported together.
func (c *Catalogs) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	seen := map[string]struct{}{}
	uniq := func(kind, id string) {
		if id == "" {
			add("%s: empty id", kind)
			return
		}
		key := kind + "/" + id
		if _, ok := seen[key]; ok {
			add("%s %q: duplicate id", kind, id)
		}
		seen[key] = struct{}{}
	}

	for _, b := range c.Buildings {
		uniq("building", b.ID)
		if b.BaseCost < 0 || b.BaseRate < 0 {
			add("building %q: negative cost or rate", b.ID)
		}
		if b.CostMultiplier <= 1 {
			add("building %q: cost_multiplier must be > 1", b.ID)
		}
		if b.Resource != ResourceFlux && b.Resource != ResourceCivilization {
			add("building %q: unknown resource %q", b.ID, b.Resource)
		}
	}

	for _, u := range c.Upgrades {
		uniq("upgrade", u.ID)
		if u.Cost < 0 {
			add("upgrade %q: negative cost", u.ID)
		}
		switch u.Currency {
		case CurrencySparks, CurrencyFlux, CurrencyCivilization, CurrencyEchoes:
		default:
			add("upgrade %q: unknown currency %q", u.ID, u.Currency)
		}
		switch u.Effect.Scope.Kind {
		case ScopeClick, ScopeGlobal:
		case ScopeResource:
			if u.Effect.Scope.Resource != ResourceFlux && u.Effect.Scope.Resource != ResourceCivilization {
				add("upgrade %q: resource scope without resource", u.ID)
			}
		case ScopeBuilding:
			if _, ok := c.Building(u.Effect.Scope.BuildingID); !ok {
				add("upgrade %q: unknown building %q", u.ID, u.Effect.Scope.BuildingID)
			}
		default:
			add("upgrade %q: unknown scope %q", u.ID, u.Effect.Scope.Kind)
		}
		for _, r := range u.Requires {
			if err := c.validateRequirement(r); err != nil {
				add("upgrade %q: %w", u.ID, err)
			}
		}
	}

	for _, m := range c.MetaUpgrades {
		uniq("meta_upgrade", m.ID)
		if m.BaseCost < 0 || m.CostMultiplier < 1 || m.MaxLevel <= 0 {
			add("meta_upgrade %q: bad cost or max level", m.ID)
		}
		for _, e := range m.Effects {
			if !e.Kind.Valid() {
				add("meta_upgrade %q: unknown effect kind %d", m.ID, int(e.Kind))
			}
		}
		if m.Prerequisite != "" {
			if _, ok := c.MetaUpgrade(m.Prerequisite); !ok {
				add("meta_upgrade %q: unknown prerequisite %q", m.ID, m.Prerequisite)
			}
		}
	}

	if len(c.Stages) == 0 {
		add("stages: empty")
	}
	for i, s := range c.Stages {
		uniq("stage", s.ID)
		if i > 0 && s.FluxThreshold <= c.Stages[i-1].FluxThreshold {
			add("stage %q: threshold must increase with order", s.ID)
		}
	}

	for _, t := range c.Traits {
		uniq("trait", t.ID)
		if t.Rarity.Weight() == 0 {
			add("trait %q: unknown rarity %q", t.ID, t.Rarity)
		}
		for bid := range t.Modifiers.BuildingMultipliers {
			if _, ok := c.Building(bid); !ok {
				add("trait %q: unknown building %q", t.ID, bid)
			}
		}
	}

	for _, d := range c.DailyTasks {
		uniq("daily_task", d.ID)
		if d.Target <= 0 {
			add("daily_task %q: target must be > 0", d.ID)
		}
		if d.Metric == DailyReachedStage {
			if _, ok := c.Stage(d.StageID); !ok {
				add("daily_task %q: unknown stage %q", d.ID, d.StageID)
			}
		}
	}

	for _, a := range c.Achievements {
		uniq("achievement", a.ID)
		if a.Target <= 0 {
			add("achievement %q: target must be > 0", a.ID)
		}
		if a.Metric == MetricReachedStage {
			if _, ok := c.Stage(a.StageID); !ok {
				add("achievement %q: unknown stage %q", a.ID, a.StageID)
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Catalogs) validateRequirement(r Requirement) error {
	switch r.Kind {
	case RequireUpgrade:
		if _, ok := c.Upgrade(r.ID); !ok {
			return fmt.Errorf("requires unknown upgrade %q", r.ID)
		}
	case RequireStage:
		if _, ok := c.Stage(r.ID); !ok {
			return fmt.Errorf("requires unknown stage %q", r.ID)
		}
	case RequireMetaLevel:
		if _, ok := c.MetaUpgrade(r.ID); !ok {
			return fmt.Errorf("requires unknown meta upgrade %q", r.ID)
		}
	case RequireRunNumber:
	default:
		return fmt.Errorf("unknown requirement kind %q", r.Kind)
	}
	return nil
}
