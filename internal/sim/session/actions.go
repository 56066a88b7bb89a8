package session

import (
	"time"

	"timeforge.app/internal/sim/lifecycle"
	"timeforge.app/internal/sim/state"
)

// Action is one player transition, run on the session goroutine.
type Action func(c *lifecycle.Controller, st *state.GameState, now time.Time) (*state.GameState, bool)

func Click() Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.Click(st)
	}
}

func BuyBuilding(id string, qty int) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.BuyBuilding(st, id, qty)
	}
}

func BuyUpgrade(id string) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.BuyUpgrade(st, id)
	}
}

func BuyMetaUpgrade(id string) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.BuyMetaUpgrade(st, id)
	}
}

func SelectTraits(ids []string) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.SelectTraits(st, ids)
	}
}

func ClaimDailyTask(id string) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.ClaimDailyTask(st, id)
	}
}

func Collapse() Action {
	return func(c *lifecycle.Controller, st *state.GameState, now time.Time) (*state.GameState, bool) {
		next, _ := c.Collapse(st, now)
		return next, true
	}
}

func SetPurchaseMode(mode int) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.SetPurchaseMode(st, mode)
	}
}

func UpdateSettings(s state.Settings) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.UpdateSettings(st, s)
	}
}

func SetAutoSave(on bool) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.SetAutoSave(st, on)
	}
}

func CompleteTutorialStep(step string) Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.CompleteTutorialStep(st, step)
	}
}

func DismissTutorial() Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.DismissTutorial(st)
	}
}

func ClaimOfflineGains() Action {
	return func(c *lifecycle.Controller, st *state.GameState, _ time.Time) (*state.GameState, bool) {
		return c.ClaimOfflineGains(st)
	}
}
