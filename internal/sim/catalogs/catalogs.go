package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Catalogs is the immutable rule data every engine function reads from.
// Build it once with New (or Default) and share the pointer.
type Catalogs struct {
	Buildings    []BuildingDef    `json:"buildings"`
	Upgrades     []UpgradeDef     `json:"upgrades"`
	MetaUpgrades []MetaUpgradeDef `json:"meta_upgrades"`
	Stages       []StageDef       `json:"stages"`
	Traits       []TraitDef       `json:"traits"`
	DailyTasks   []DailyTaskDef   `json:"daily_tasks"`
	Achievements []AchievementDef `json:"achievements"`

	Digest string `json:"-"`

	buildingIdx    map[string]int
	upgradeIdx     map[string]int
	metaIdx        map[string]int
	stageIdx       map[string]int
	traitIdx       map[string]int
	dailyIdx       map[string]int
	achievementIdx map[string]int
}

type Resource string

const (
	ResourceFlux         Resource = "flux"
	ResourceCivilization Resource = "civilization"
)

type Currency string

const (
	CurrencySparks       Currency = "sparks"
	CurrencyFlux         Currency = "flux"
	CurrencyCivilization Currency = "civilization"
	CurrencyEchoes       Currency = "echoes"
)

// Persistent reports whether the currency survives a collapse.
func (c Currency) Persistent() bool { return c == CurrencyEchoes }

type BuildingDef struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	BaseRate       float64  `json:"base_rate"`
	BaseCost       float64  `json:"base_cost"`
	CostMultiplier float64  `json:"cost_multiplier"`
	Resource       Resource `json:"resource"`
	UnlockedAt     float64  `json:"unlocked_at"`
}

type EffectKind string

const (
	EffectMultiplier EffectKind = "multiplier"
	EffectAdditive   EffectKind = "additive"
	EffectUnlock     EffectKind = "unlock"
	EffectSpecial    EffectKind = "special"
)

type ScopeKind string

const (
	ScopeClick    ScopeKind = "click"
	ScopeResource ScopeKind = "resource"
	ScopeBuilding ScopeKind = "building"
	ScopeGlobal   ScopeKind = "global"
)

// Scope names what an upgrade effect applies to. Resource is set for
// ScopeResource, BuildingID for ScopeBuilding.
type Scope struct {
	Kind       ScopeKind `json:"kind"`
	Resource   Resource  `json:"resource,omitempty"`
	BuildingID string    `json:"building_id,omitempty"`
}

type UpgradeEffect struct {
	Kind      EffectKind `json:"kind"`
	Scope     Scope      `json:"scope"`
	Magnitude float64    `json:"magnitude"`
}

type UpgradeDef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Cost        float64       `json:"cost"`
	Currency    Currency      `json:"currency"`
	Effect      UpgradeEffect `json:"effect"`
	Requires    []Requirement `json:"requires,omitempty"`
}

type RequirementKind string

const (
	RequireUpgrade   RequirementKind = "upgrade_purchased"
	RequireStage     RequirementKind = "stage_at_least"
	RequireMetaLevel RequirementKind = "meta_level_at_least"
	RequireRunNumber RequirementKind = "run_number_at_least"
)

// Requirement is a declarative predicate over game state. ID names an
// upgrade, stage or meta-upgrade depending on Kind; Level is the threshold
// for meta levels and run numbers.
type Requirement struct {
	Kind  RequirementKind `json:"kind"`
	ID    string          `json:"id,omitempty"`
	Level int             `json:"level,omitempty"`
}

type MetaColumn string

const (
	ColumnPower     MetaColumn = "power"
	ColumnTempo     MetaColumn = "tempo"
	ColumnWeirdness MetaColumn = "weirdness"
)

type MetaEffect struct {
	Kind     MetaEffectKind `json:"kind"`
	PerLevel float64        `json:"per_level"`
}

type MetaUpgradeDef struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Column         MetaColumn   `json:"column"`
	Tier           int          `json:"tier"`
	BaseCost       float64      `json:"base_cost"`
	CostMultiplier float64      `json:"cost_multiplier"`
	MaxLevel       int          `json:"max_level"`
	Effects        []MetaEffect `json:"effects"`
	Prerequisite   string       `json:"prerequisite,omitempty"`
}

type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
)

// Weight is the relative draw weight used for trait offers.
func (r Rarity) Weight() float64 {
	switch r {
	case RarityCommon:
		return 50
	case RarityUncommon:
		return 30
	case RarityRare:
		return 15
	case RarityMythic:
		return 5
	default:
		return 0
	}
}

func (r Rarity) IsRare() bool { return r == RarityRare || r == RarityMythic }

// TraitModifiers holds run-scoped multipliers. Zero means "not present" and
// behaves as 1.
type TraitModifiers struct {
	ClickMultiplier         float64            `json:"click_multiplier,omitempty"`
	FluxMultiplier          float64            `json:"flux_multiplier,omitempty"`
	CivilizationMultiplier  float64            `json:"civilization_multiplier,omitempty"`
	BuildingMultipliers     map[string]float64 `json:"building_multipliers,omitempty"`
	BuildingCostMultiplier  float64            `json:"building_cost_multiplier,omitempty"`
	UpgradeCostMultiplier   float64            `json:"upgrade_cost_multiplier,omitempty"`
	RunDurationMultiplier   float64            `json:"run_duration_multiplier,omitempty"`
	AnomalyChanceMultiplier float64            `json:"anomaly_chance_multiplier,omitempty"`
}

func (m TraitModifiers) ResourceMultiplier(r Resource) float64 {
	switch r {
	case ResourceFlux:
		return orOne(m.FluxMultiplier)
	case ResourceCivilization:
		return orOne(m.CivilizationMultiplier)
	}
	return 1
}

type TraitDef struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Rarity      Rarity         `json:"rarity"`
	Modifiers   TraitModifiers `json:"modifiers"`
}

// StageBonuses are multipliers; zero behaves as 1.
type StageBonuses struct {
	Flux         float64 `json:"flux,omitempty"`
	Civilization float64 `json:"civilization,omitempty"`
	BuildingCost float64 `json:"building_cost,omitempty"`
	Echo         float64 `json:"echo,omitempty"`
}

func (b StageBonuses) ResourceMultiplier(r Resource) float64 {
	switch r {
	case ResourceFlux:
		return orOne(b.Flux)
	case ResourceCivilization:
		return orOne(b.Civilization)
	}
	return 1
}

func (b StageBonuses) BuildingCostMultiplier() float64 { return orOne(b.BuildingCost) }
func (b StageBonuses) EchoMultiplier() float64         { return orOne(b.Echo) }

type StageDef struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Order         int          `json:"order"`
	FluxThreshold float64      `json:"flux_threshold"`
	Bonuses       StageBonuses `json:"bonuses"`
}

type AchievementMetric string

const (
	MetricTotalClicks      AchievementMetric = "total_clicks"
	MetricBuildingsOwned   AchievementMetric = "buildings_owned"
	MetricFluxEver         AchievementMetric = "flux_ever"
	MetricRunCount         AchievementMetric = "run_count"
	MetricEchoesEver       AchievementMetric = "echoes_ever"
	MetricTraitsDiscovered AchievementMetric = "traits_discovered"
	MetricHoldsRareTrait   AchievementMetric = "holds_rare_trait"
	MetricReachedStage     AchievementMetric = "reached_stage"
	MetricFastRun          AchievementMetric = "fast_run"
)

// AchievementDef: StageID is read by MetricReachedStage, Seconds by
// MetricFastRun.
type AchievementDef struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Metric       AchievementMetric `json:"metric"`
	StageID      string            `json:"stage_id,omitempty"`
	Seconds      float64           `json:"seconds,omitempty"`
	Target       float64           `json:"target"`
	RewardShards float64           `json:"reward_shards"`
}

type DailyMetric string

const (
	DailySparksEarned       DailyMetric = "sparks_earned"
	DailyCollapses          DailyMetric = "daily_collapses"
	DailyRareTraitRuns      DailyMetric = "daily_rare_trait_runs"
	DailyReachedStage       DailyMetric = "reached_stage"
	DailyBuildingsPurchased DailyMetric = "daily_buildings_purchased"
)

type DailyReward struct {
	Echoes float64 `json:"echoes,omitempty"`
	Sparks float64 `json:"sparks,omitempty"`
}

type DailyTaskDef struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Metric      DailyMetric `json:"metric"`
	StageID     string      `json:"stage_id,omitempty"`
	Target      float64     `json:"target"`
	Reward      DailyReward `json:"reward"`
}

// New indexes the tables and computes the digest. It does not validate;
// call Validate for that.
func New(c Catalogs) *Catalogs {
	out := c
	sort.SliceStable(out.Stages, func(i, j int) bool { return out.Stages[i].Order < out.Stages[j].Order })

	out.buildingIdx = make(map[string]int, len(out.Buildings))
	for i, b := range out.Buildings {
		out.buildingIdx[b.ID] = i
	}
	out.upgradeIdx = make(map[string]int, len(out.Upgrades))
	for i, u := range out.Upgrades {
		out.upgradeIdx[u.ID] = i
	}
	out.metaIdx = make(map[string]int, len(out.MetaUpgrades))
	for i, m := range out.MetaUpgrades {
		out.metaIdx[m.ID] = i
	}
	out.stageIdx = make(map[string]int, len(out.Stages))
	for i, s := range out.Stages {
		out.stageIdx[s.ID] = i
	}
	out.traitIdx = make(map[string]int, len(out.Traits))
	for i, t := range out.Traits {
		out.traitIdx[t.ID] = i
	}
	out.dailyIdx = make(map[string]int, len(out.DailyTasks))
	for i, d := range out.DailyTasks {
		out.dailyIdx[d.ID] = i
	}
	out.achievementIdx = make(map[string]int, len(out.Achievements))
	for i, a := range out.Achievements {
		out.achievementIdx[a.ID] = i
	}

	raw, _ := json.Marshal(&out)
	out.Digest = sha256Hex(raw)
	return &out
}

func (c *Catalogs) Building(id string) (BuildingDef, bool) {
	i, ok := c.buildingIdx[id]
	if !ok {
		return BuildingDef{}, false
	}
	return c.Buildings[i], true
}

func (c *Catalogs) Upgrade(id string) (UpgradeDef, bool) {
	i, ok := c.upgradeIdx[id]
	if !ok {
		return UpgradeDef{}, false
	}
	return c.Upgrades[i], true
}

func (c *Catalogs) MetaUpgrade(id string) (MetaUpgradeDef, bool) {
	i, ok := c.metaIdx[id]
	if !ok {
		return MetaUpgradeDef{}, false
	}
	return c.MetaUpgrades[i], true
}

func (c *Catalogs) Stage(id string) (StageDef, bool) {
	i, ok := c.stageIdx[id]
	if !ok {
		return StageDef{}, false
	}
	return c.Stages[i], true
}

// FirstStage is the stage a fresh run starts in.
func (c *Catalogs) FirstStage() StageDef {
	if len(c.Stages) == 0 {
		return StageDef{}
	}
	return c.Stages[0]
}

func (c *Catalogs) Trait(id string) (TraitDef, bool) {
	i, ok := c.traitIdx[id]
	if !ok {
		return TraitDef{}, false
	}
	return c.Traits[i], true
}

func (c *Catalogs) DailyTask(id string) (DailyTaskDef, bool) {
	i, ok := c.dailyIdx[id]
	if !ok {
		return DailyTaskDef{}, false
	}
	return c.DailyTasks[i], true
}

func (c *Catalogs) Achievement(id string) (AchievementDef, bool) {
	i, ok := c.achievementIdx[id]
	if !ok {
		return AchievementDef{}, false
	}
	return c.Achievements[i], true
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
