package state

import (
	"math"
	"slices"
	"time"

	"timeforge.app/internal/sim/catalogs"
)

// Version is the schema tag written with every persisted state.
const Version = 1

// GameState is one immutable snapshot of a player's game. Transition
// functions never modify a snapshot they were handed; they Clone it and
// return the copy.
type GameState struct {
	Version int `json:"version"`

	Sparks          float64 `json:"sparks"`
	Flux            float64 `json:"flux"`
	Civilization    float64 `json:"civilization"`
	Anomalies       float64 `json:"anomalies"`
	Echoes          float64 `json:"echoes"`
	Shards          float64 `json:"shards"`
	TotalEchoesEver float64 `json:"total_echoes_ever"`

	TotalClicks       int64   `json:"total_clicks"`
	TotalSparksEarned float64 `json:"total_sparks_earned"`
	TotalFluxEarned   float64 `json:"total_flux_earned"`
	TotalRunTime      float64 `json:"total_run_time"`
	PeakFluxPerSecond float64 `json:"peak_flux_per_second"`

	Buildings    map[string]int              `json:"buildings"`
	Upgrades     map[string]bool             `json:"upgrades"`
	Achievements map[string]AchievementState `json:"achievements"`
	MetaUpgrades map[string]int              `json:"meta_upgrades"`

	ActiveTraits     []string `json:"active_traits"`
	DiscoveredTraits []string `json:"discovered_traits"`
	LastRunTraits    []string `json:"last_run_traits,omitempty"`
	TraitsSelected   bool     `json:"traits_selected,omitempty"`

	DailyTasks              []DailyTaskProgress `json:"daily_tasks"`
	DailyTasksLastReset     time.Time           `json:"daily_tasks_last_reset"`
	DailyCollapses          int                 `json:"daily_collapses"`
	DailyRareTraitRuns      int                 `json:"daily_rare_trait_runs"`
	DailyBuildingsPurchased int                 `json:"daily_buildings_purchased"`

	RunNumber           int       `json:"run_number"`
	CurrentStageID      string    `json:"current_stage_id"`
	HighestStageReached string    `json:"highest_stage_reached"`
	RunStartedAt        time.Time `json:"run_started_at"`
	LastTickAt          time.Time `json:"last_tick_at"`
	LastUpdateAt        time.Time `json:"last_update_at"`

	Records             Records  `json:"records"`
	Settings            Settings `json:"settings"`
	AutoSaveEnabled     bool     `json:"auto_save_enabled"`
	Tutorial            Tutorial `json:"tutorial"`
	PurchaseMode        int      `json:"purchase_mode"`
	OfflineGainsClaimed bool     `json:"offline_gains_claimed"`
}

type AchievementState struct {
	Progress float64 `json:"progress"`
	Unlocked bool    `json:"unlocked"`
}

type DailyTaskProgress struct {
	TaskID    string  `json:"task_id"`
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
	Claimed   bool    `json:"claimed"`
}

// Records are lifetime bests. They survive collapse. FastestRunSeconds is
// only meaningful once HasFastestRun is set.
type Records struct {
	HasFastestRun     bool    `json:"has_fastest_run,omitempty"`
	FastestRunSeconds float64 `json:"fastest_run_seconds,omitempty"`
	BestRunEchoes     float64 `json:"best_run_echoes,omitempty"`
	PeakFluxPerSecond float64 `json:"peak_flux_per_second,omitempty"`
	RareTraitRuns     int     `json:"rare_trait_runs,omitempty"`
}

const (
	NumberShorthand  = "shorthand"
	NumberScientific = "scientific"
)

type Settings struct {
	SoundOn      bool   `json:"sound_on"`
	AnimationsOn bool   `json:"animations_on"`
	NumberFormat string `json:"number_format"`
}

type Tutorial struct {
	CompletedSteps []string `json:"completed_steps,omitempty"`
	CurrentStep    string   `json:"current_step,omitempty"`
	Dismissed      bool     `json:"dismissed"`
}

// PurchaseMax is the PurchaseMode value meaning "buy as many as affordable".
const PurchaseMax = 0

// New returns the state of a brand-new player at instant now.
func New(cats *catalogs.Catalogs, now time.Time) *GameState {
	now = now.UTC()
	s := &GameState{
		Version:      Version,
		Buildings:    make(map[string]int, len(cats.Buildings)),
		Upgrades:     make(map[string]bool, len(cats.Upgrades)),
		Achievements: make(map[string]AchievementState, len(cats.Achievements)),
		MetaUpgrades: map[string]int{},

		ActiveTraits:     []string{},
		DiscoveredTraits: []string{},
		DailyTasks:       []DailyTaskProgress{},

		CurrentStageID:      cats.FirstStage().ID,
		HighestStageReached: cats.FirstStage().ID,
		RunStartedAt:        now,
		LastTickAt:          now,
		LastUpdateAt:        now,

		Settings:            Settings{SoundOn: true, AnimationsOn: true, NumberFormat: NumberShorthand},
		AutoSaveEnabled:     true,
		PurchaseMode:        1,
		OfflineGainsClaimed: true,
	}
	for _, b := range cats.Buildings {
		s.Buildings[b.ID] = 0
	}
	for _, u := range cats.Upgrades {
		s.Upgrades[u.ID] = false
	}
	for _, a := range cats.Achievements {
		s.Achievements[a.ID] = AchievementState{}
	}
	return s
}

// Clone returns a deep copy.
func (s *GameState) Clone() *GameState {
	out := *s
	out.Buildings = cloneMap(s.Buildings)
	out.Upgrades = cloneMap(s.Upgrades)
	out.Achievements = cloneMap(s.Achievements)
	out.MetaUpgrades = cloneMap(s.MetaUpgrades)
	out.ActiveTraits = slices.Clone(s.ActiveTraits)
	out.DiscoveredTraits = slices.Clone(s.DiscoveredTraits)
	out.LastRunTraits = slices.Clone(s.LastRunTraits)
	out.DailyTasks = slices.Clone(s.DailyTasks)
	out.Tutorial.CompletedSteps = slices.Clone(s.Tutorial.CompletedSteps)
	return &out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *GameState) Balance(c catalogs.Currency) float64 {
	switch c {
	case catalogs.CurrencySparks:
		return s.Sparks
	case catalogs.CurrencyFlux:
		return s.Flux
	case catalogs.CurrencyCivilization:
		return s.Civilization
	case catalogs.CurrencyEchoes:
		return s.Echoes
	}
	return 0
}

// Debit subtracts amount from the currency, clamping at zero. Only call on
// a snapshot you own.
func (s *GameState) Debit(c catalogs.Currency, amount float64) {
	switch c {
	case catalogs.CurrencySparks:
		s.Sparks = NonNegative(s.Sparks - amount)
	case catalogs.CurrencyFlux:
		s.Flux = NonNegative(s.Flux - amount)
	case catalogs.CurrencyCivilization:
		s.Civilization = NonNegative(s.Civilization - amount)
	case catalogs.CurrencyEchoes:
		s.Echoes = NonNegative(s.Echoes - amount)
	}
}

func (s *GameState) MetaLevel(id string) int { return s.MetaUpgrades[id] }

func (s *GameState) HasTrait(id string) bool { return slices.Contains(s.ActiveTraits, id) }

func (s *GameState) TotalBuildings() int {
	n := 0
	for _, c := range s.Buildings {
		n += c
	}
	return n
}

// Discover adds ids to DiscoveredTraits, keeping first-seen order.
func (s *GameState) Discover(ids ...string) {
	for _, id := range ids {
		if !slices.Contains(s.DiscoveredTraits, id) {
			s.DiscoveredTraits = append(s.DiscoveredTraits, id)
		}
	}
}

// Normalize repairs a decoded snapshot: nil collections become empty, and
// NaN or negative balances become zero. Missing catalog entries are added.
func (s *GameState) Normalize(cats *catalogs.Catalogs) {
	if s.Buildings == nil {
		s.Buildings = map[string]int{}
	}
	if s.Upgrades == nil {
		s.Upgrades = map[string]bool{}
	}
	if s.Achievements == nil {
		s.Achievements = map[string]AchievementState{}
	}
	if s.MetaUpgrades == nil {
		s.MetaUpgrades = map[string]int{}
	}
	if s.ActiveTraits == nil {
		s.ActiveTraits = []string{}
	}
	if s.DiscoveredTraits == nil {
		s.DiscoveredTraits = []string{}
	}
	if s.DailyTasks == nil {
		s.DailyTasks = []DailyTaskProgress{}
	}
	for _, b := range cats.Buildings {
		if c, ok := s.Buildings[b.ID]; !ok || c < 0 {
			s.Buildings[b.ID] = 0
		}
	}
	for _, u := range cats.Upgrades {
		if _, ok := s.Upgrades[u.ID]; !ok {
			s.Upgrades[u.ID] = false
		}
	}
	for _, a := range cats.Achievements {
		if _, ok := s.Achievements[a.ID]; !ok {
			s.Achievements[a.ID] = AchievementState{}
		}
	}
	if _, ok := cats.Stage(s.CurrentStageID); !ok {
		s.CurrentStageID = cats.FirstStage().ID
	}
	if _, ok := cats.Stage(s.HighestStageReached); !ok {
		s.HighestStageReached = s.CurrentStageID
	}
	for _, p := range []*float64{
		&s.Sparks, &s.Flux, &s.Civilization, &s.Anomalies, &s.Echoes, &s.Shards, &s.TotalEchoesEver,
		&s.TotalSparksEarned, &s.TotalFluxEarned, &s.TotalRunTime, &s.PeakFluxPerSecond,
	} {
		*p = NonNegative(*p)
	}
	if s.TotalClicks < 0 {
		s.TotalClicks = 0
	}
	if len(s.ActiveTraits) > 0 {
		s.TraitsSelected = true
	}
	if s.Records.FastestRunSeconds > 0 {
		s.Records.HasFastestRun = true
	}
	if s.Settings.NumberFormat != NumberScientific {
		s.Settings.NumberFormat = NumberShorthand
	}
	if s.Version == 0 {
		s.Version = Version
	}
}

// NonNegative maps NaN, negative values and -Inf to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
