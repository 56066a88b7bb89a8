package ws

import (
	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/session"
)

// actionFor maps an ACT onto a session action. A nil action comes with the
// error code and reason to report.
func actionFor(m protocol.ActMsg) (session.Action, string, string) {
	needTarget := func() (string, string) {
		return protocol.ErrBadRequest, m.Action + " needs a target"
	}
	switch m.Action {
	case protocol.ActClick:
		return session.Click(), "", ""
	case protocol.ActBuyBuilding:
		if m.Target == "" {
			c, r := needTarget()
			return nil, c, r
		}
		qty := m.Qty
		if qty == 0 {
			qty = 1
		}
		return session.BuyBuilding(m.Target, qty), "", ""
	case protocol.ActBuyUpgrade:
		if m.Target == "" {
			c, r := needTarget()
			return nil, c, r
		}
		return session.BuyUpgrade(m.Target), "", ""
	case protocol.ActBuyMetaUpgrade:
		if m.Target == "" {
			c, r := needTarget()
			return nil, c, r
		}
		return session.BuyMetaUpgrade(m.Target), "", ""
	case protocol.ActSelectTraits:
		// An empty list starts the run with no traits.
		return session.SelectTraits(m.IDs), "", ""
	case protocol.ActClaimDailyTask:
		if m.Target == "" {
			c, r := needTarget()
			return nil, c, r
		}
		return session.ClaimDailyTask(m.Target), "", ""
	case protocol.ActCollapse:
		return session.Collapse(), "", ""
	case protocol.ActSetPurchaseMode:
		return session.SetPurchaseMode(m.Qty), "", ""
	case protocol.ActUpdateSettings:
		if m.Settings == nil {
			return nil, protocol.ErrBadRequest, "UPDATE_SETTINGS needs settings"
		}
		return session.UpdateSettings(*m.Settings), "", ""
	case protocol.ActSetAutoSave:
		if m.Enabled == nil {
			return nil, protocol.ErrBadRequest, "SET_AUTO_SAVE needs enabled"
		}
		return session.SetAutoSave(*m.Enabled), "", ""
	case protocol.ActTutorialStep:
		if m.Target == "" {
			c, r := needTarget()
			return nil, c, r
		}
		return session.CompleteTutorialStep(m.Target), "", ""
	case protocol.ActDismissTutorial:
		return session.DismissTutorial(), "", ""
	case protocol.ActClaimOfflineGain:
		return session.ClaimOfflineGains(), "", ""
	default:
		return nil, protocol.ErrUnknownAction, "unknown action " + m.Action
	}
}
