package lifecycle

import (
	"slices"

	"timeforge.app/internal/sim/state"
)

var purchaseModes = []int{state.PurchaseMax, 1, 10, 25, 100}

func (c *Controller) SetPurchaseMode(st *state.GameState, mode int) (*state.GameState, bool) {
	if !slices.Contains(purchaseModes, mode) || st.PurchaseMode == mode {
		return st, false
	}
	next := st.Clone()
	next.PurchaseMode = mode
	return next, true
}

func (c *Controller) UpdateSettings(st *state.GameState, s state.Settings) (*state.GameState, bool) {
	if s.NumberFormat != state.NumberShorthand && s.NumberFormat != state.NumberScientific {
		return st, false
	}
	if st.Settings == s {
		return st, false
	}
	next := st.Clone()
	next.Settings = s
	return next, true
}

func (c *Controller) SetAutoSave(st *state.GameState, on bool) (*state.GameState, bool) {
	if st.AutoSaveEnabled == on {
		return st, false
	}
	next := st.Clone()
	next.AutoSaveEnabled = on
	return next, true
}

func (c *Controller) CompleteTutorialStep(st *state.GameState, step string) (*state.GameState, bool) {
	if step == "" || slices.Contains(st.Tutorial.CompletedSteps, step) {
		return st, false
	}
	next := st.Clone()
	next.Tutorial.CompletedSteps = append(next.Tutorial.CompletedSteps, step)
	next.Tutorial.CurrentStep = ""
	return next, true
}

func (c *Controller) DismissTutorial(st *state.GameState) (*state.GameState, bool) {
	if st.Tutorial.Dismissed {
		return st, false
	}
	next := st.Clone()
	next.Tutorial.Dismissed = true
	next.Tutorial.CurrentStep = ""
	return next, true
}

func (c *Controller) ClaimOfflineGains(st *state.GameState) (*state.GameState, bool) {
	if st.OfflineGainsClaimed {
		return st, false
	}
	next := st.Clone()
	next.OfflineGainsClaimed = true
	return next, true
}
