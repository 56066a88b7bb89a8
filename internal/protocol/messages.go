package protocol

import (
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/economy"
	"timeforge.app/internal/sim/state"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	CatalogDigest   string `json:"catalog_digest"`
	TickMS          int    `json:"tick_ms"`
	UserID          string `json:"user_id,omitempty"`
}

// Rates are values derived from a snapshot so clients need not replicate
// the economy.
type Rates struct {
	ClickPower            float64 `json:"click_power"`
	FluxPerSecond         float64 `json:"flux_per_second"`
	CivilizationPerSecond float64 `json:"civilization_per_second"`
	EchoesIfCollapsed     float64 `json:"echoes_if_collapsed"`
	TraitChoiceLimit      int     `json:"trait_choice_limit"`
	StageID               string  `json:"stage_id"`
}

// STATE (server -> client)
type StateMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Seq             uint64           `json:"seq"`
	Rates           Rates            `json:"rates"`
	State           *state.GameState `json:"state"`
}

func RatesFor(cats *catalogs.Catalogs, st *state.GameState) Rates {
	prod := economy.TotalProduction(cats, st)
	return Rates{
		ClickPower:            economy.ClickPower(cats, st),
		FluxPerSecond:         prod.FluxPerSecond,
		CivilizationPerSecond: prod.CivilizationPerSecond,
		EchoesIfCollapsed:     economy.EchoesFromRun(cats, st),
		TraitChoiceLimit:      economy.TraitChoiceLimit(cats, st),
		StageID:               economy.CurrentStage(cats, st).ID,
	}
}

func NewStateMsg(cats *catalogs.Catalogs, st *state.GameState, seq uint64) StateMsg {
	return StateMsg{
		Type:            TypeState,
		ProtocolVersion: Version,
		Seq:             seq,
		Rates:           RatesFor(cats, st),
		State:           st,
	}
}

// Action names carried by ACT.
const (
	ActClick            = "CLICK"
	ActBuyBuilding      = "BUY_BUILDING"
	ActBuyUpgrade       = "BUY_UPGRADE"
	ActBuyMetaUpgrade   = "BUY_META_UPGRADE"
	ActOfferTraits      = "OFFER_TRAITS"
	ActSelectTraits     = "SELECT_TRAITS"
	ActClaimDailyTask   = "CLAIM_DAILY_TASK"
	ActCollapse         = "COLLAPSE"
	ActSetPurchaseMode  = "SET_PURCHASE_MODE"
	ActUpdateSettings   = "UPDATE_SETTINGS"
	ActSetAutoSave      = "SET_AUTO_SAVE"
	ActTutorialStep     = "COMPLETE_TUTORIAL_STEP"
	ActDismissTutorial  = "DISMISS_TUTORIAL"
	ActClaimOfflineGain = "CLAIM_OFFLINE_GAINS"
)

// ACT (client -> server). Which fields matter depends on Action.
type ActMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Action          string          `json:"action"`
	Target          string          `json:"target,omitempty"`
	Qty             int             `json:"qty,omitempty"`
	IDs             []string        `json:"ids,omitempty"`
	Count           int             `json:"count,omitempty"`
	Enabled         *bool           `json:"enabled,omitempty"`
	Settings        *state.Settings `json:"settings,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	AckFor          string   `json:"ack_for"`
	Applied         bool     `json:"applied"`
	Code            string   `json:"code,omitempty"`
	Message         string   `json:"message,omitempty"`
	Offer           []string `json:"offer,omitempty"`
}

func NewAck(id string, applied bool, code, msg string) AckMsg {
	return AckMsg{
		Type:            TypeAck,
		ProtocolVersion: Version,
		AckFor:          id,
		Applied:         applied,
		Code:            code,
		Message:         msg,
	}
}
