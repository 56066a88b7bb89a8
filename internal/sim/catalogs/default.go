package catalogs

// Default returns the built-in game rules.
func Default() *Catalogs {
	return New(Catalogs{
		Buildings:    defaultBuildings(),
		Upgrades:     defaultUpgrades(),
		MetaUpgrades: defaultMetaUpgrades(),
		Stages:       defaultStages(),
		Traits:       defaultTraits(),
		DailyTasks:   defaultDailyTasks(),
		Achievements: defaultAchievements(),
	})
}

func defaultBuildings() []BuildingDef {
	return []BuildingDef{
		{ID: "foundry", Name: "Foundry", Description: "Basic forge that produces Flux from raw materials.", BaseRate: 0.1, BaseCost: 10, CostMultiplier: 1.15, Resource: ResourceFlux},
		{ID: "reactor", Name: "Reactor", Description: "Harnesses stellar energy to generate Flux.", BaseRate: 1, BaseCost: 100, CostMultiplier: 1.15, Resource: ResourceFlux},
		{ID: "lab", Name: "Laboratory", Description: "Scientific research accelerates universal development.", BaseRate: 10, BaseCost: 1100, CostMultiplier: 1.15, Resource: ResourceFlux},
		{ID: "civilization", Name: "Civilization Seed", Description: "Plants the seeds of intelligent life.", BaseRate: 0.1, BaseCost: 12000, CostMultiplier: 1.15, Resource: ResourceCivilization, UnlockedAt: 1000},
		{ID: "world", Name: "World Engine", Description: "Creates entire worlds teeming with potential.", BaseRate: 100, BaseCost: 130000, CostMultiplier: 1.15, Resource: ResourceFlux, UnlockedAt: 10000},
		{ID: "megastructure", Name: "Megastructure", Description: "Vast cosmic constructs that reshape reality itself.", BaseRate: 1, BaseCost: 500000, CostMultiplier: 1.15, Resource: ResourceCivilization, UnlockedAt: 100000},
	}
}

func mult(scope Scope, m float64) UpgradeEffect {
	return UpgradeEffect{Kind: EffectMultiplier, Scope: scope, Magnitude: m}
}

func defaultUpgrades() []UpgradeDef {
	click := Scope{Kind: ScopeClick}
	global := Scope{Kind: ScopeGlobal}
	return []UpgradeDef{
		{ID: "click_power_1", Name: "Reinforced Hammer", Description: "Each click produces +100% Sparks", Cost: 50, Currency: CurrencySparks, Effect: mult(click, 2)},
		{ID: "click_power_2", Name: "Cosmic Hammer", Description: "Each click produces +200% more Sparks", Cost: 500, Currency: CurrencySparks, Effect: mult(click, 3),
			Requires: []Requirement{{Kind: RequireUpgrade, ID: "click_power_1"}}},
		{ID: "foundry_boost_1", Name: "Foundry Efficiency", Description: "Foundries produce +100% Flux", Cost: 200, Currency: CurrencyFlux, Effect: mult(Scope{Kind: ScopeBuilding, BuildingID: "foundry"}, 2)},
		{ID: "reactor_boost_1", Name: "Reactor Containment", Description: "Reactors produce +100% Flux", Cost: 2000, Currency: CurrencyFlux, Effect: mult(Scope{Kind: ScopeBuilding, BuildingID: "reactor"}, 2)},
		{ID: "lab_boost_1", Name: "Scientific Method", Description: "Labs produce +100% Flux", Cost: 20000, Currency: CurrencyFlux, Effect: mult(Scope{Kind: ScopeBuilding, BuildingID: "lab"}, 2)},
		{ID: "global_flux_1", Name: "Universal Constants", Description: "All Flux production +50%", Cost: 50000, Currency: CurrencyFlux, Effect: mult(Scope{Kind: ScopeResource, Resource: ResourceFlux}, 1.5)},
		{ID: "civilization_boost_1", Name: "Cultural Renaissance", Description: "All Civilization production +100%", Cost: 100, Currency: CurrencyCivilization, Effect: mult(Scope{Kind: ScopeResource, Resource: ResourceCivilization}, 2)},
		{ID: "echo_power_1", Name: "Echo Resonance", Description: "Start each run with +10% more production", Cost: 5, Currency: CurrencyEchoes, Effect: mult(global, 1.1)},
		{ID: "echo_power_2", Name: "Echo Amplification", Description: "Start each run with +25% more production", Cost: 20, Currency: CurrencyEchoes, Effect: mult(global, 1.25),
			Requires: []Requirement{{Kind: RequireUpgrade, ID: "echo_power_1"}}},
		{ID: "echo_power_3", Name: "Echo Cascade", Description: "Start each run with +50% more production", Cost: 50, Currency: CurrencyEchoes, Effect: mult(global, 1.5),
			Requires: []Requirement{{Kind: RequireUpgrade, ID: "echo_power_2"}}},
	}
}

func defaultMetaUpgrades() []MetaUpgradeDef {
	return []MetaUpgradeDef{
		{ID: "power_click_1", Name: "Forge Mastery", Description: "Each click generates +50% Sparks", Column: ColumnPower, Tier: 1,
			BaseCost: 3, CostMultiplier: 2, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaClickPower, PerLevel: 1.5}}},
		{ID: "power_buildings_1", Name: "Industrial Revolution", Description: "All buildings produce +25% more", Column: ColumnPower, Tier: 1,
			BaseCost: 5, CostMultiplier: 2.5, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaBuildingProduction, PerLevel: 1.25}}},
		{ID: "power_flux_1", Name: "Quantum Resonance", Description: "Global Flux production +30%", Column: ColumnPower, Tier: 2,
			BaseCost: 10, CostMultiplier: 3, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaFluxMultiplier, PerLevel: 1.3}}},
		{ID: "power_civilization_1", Name: "Cultural Enlightenment", Description: "Civilization production +40%", Column: ColumnPower, Tier: 2,
			BaseCost: 20, CostMultiplier: 3, MaxLevel: 3, Effects: []MetaEffect{{Kind: MetaCivilizationMultiplier, PerLevel: 1.4}}},
		{ID: "power_ultimate", Name: "Cosmic Omnipotence", Description: "All production doubled", Column: ColumnPower, Tier: 3,
			BaseCost: 100, CostMultiplier: 5, MaxLevel: 1, Effects: []MetaEffect{{Kind: MetaGlobalProduction, PerLevel: 2}}, Prerequisite: "power_flux_1"},

		{ID: "tempo_cost_1", Name: "Efficient Forging", Description: "Buildings cost -10% Sparks", Column: ColumnTempo, Tier: 1,
			BaseCost: 3, CostMultiplier: 2, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaBuildingCost, PerLevel: 0.9}}},
		{ID: "tempo_stages_1", Name: "Temporal Acceleration", Description: "Reach stages 15% faster", Column: ColumnTempo, Tier: 1,
			BaseCost: 5, CostMultiplier: 2.5, MaxLevel: 3, Effects: []MetaEffect{{Kind: MetaStageProgress, PerLevel: 1.15}}},
		{ID: "tempo_offline_1", Name: "Idle Mastery", Description: "Offline time cap +2 hours, gains +20%", Column: ColumnTempo, Tier: 2,
			BaseCost: 8, CostMultiplier: 2, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaOfflineCapHours, PerLevel: 2}, {Kind: MetaOfflineGains, PerLevel: 1.2}}},
		{ID: "tempo_echoes_1", Name: "Echo Amplifier", Description: "Earn +25% more Echo Crystals on collapse", Column: ColumnTempo, Tier: 2,
			BaseCost: 15, CostMultiplier: 3, MaxLevel: 4, Effects: []MetaEffect{{Kind: MetaEchoesEarned, PerLevel: 1.25}}},
		{ID: "tempo_ultimate", Name: "Time Lord", Description: "Everything happens 50% faster", Column: ColumnTempo, Tier: 3,
			BaseCost: 120, CostMultiplier: 5, MaxLevel: 1, Effects: []MetaEffect{{Kind: MetaGlobalSpeed, PerLevel: 1.5}}, Prerequisite: "tempo_stages_1"},

		{ID: "weird_traits_1", Name: "Multiverse Awareness", Description: "+1 trait choice at run start", Column: ColumnWeirdness, Tier: 1,
			BaseCost: 10, CostMultiplier: 5, MaxLevel: 2, Effects: []MetaEffect{{Kind: MetaTraitChoices, PerLevel: 1}}},
		{ID: "weird_anomaly_1", Name: "Reality Glitch", Description: "Small chance each minute for bonus Anomaly", Column: ColumnWeirdness, Tier: 1,
			BaseCost: 12, CostMultiplier: 4, MaxLevel: 3, Effects: []MetaEffect{{Kind: MetaAnomalyChance, PerLevel: 0.05}}},
		{ID: "weird_speed_1", Name: "Speedrunner", Description: "Bonus Echoes for fast runs", Column: ColumnWeirdness, Tier: 2,
			BaseCost: 15, CostMultiplier: 3, MaxLevel: 3, Effects: []MetaEffect{{Kind: MetaFastRunBonus, PerLevel: 0.5}}},
		{ID: "weird_starting_1", Name: "Head Start", Description: "Begin each run with 100 Sparks", Column: ColumnWeirdness, Tier: 2,
			BaseCost: 8, CostMultiplier: 2, MaxLevel: 5, Effects: []MetaEffect{{Kind: MetaStartingSparks, PerLevel: 100}}},
		{ID: "weird_ultimate", Name: "Chaos Incarnate", Description: "Random powerful effect each run", Column: ColumnWeirdness, Tier: 3,
			BaseCost: 150, CostMultiplier: 10, MaxLevel: 1, Effects: []MetaEffect{{Kind: MetaRandomBuff, PerLevel: 1}}, Prerequisite: "weird_traits_1"},
	}
}

func defaultStages() []StageDef {
	return []StageDef{
		{ID: "primordial", Name: "Primordial", Description: "The universe emerges from quantum foam. Raw energy coalesces.", Order: 0, FluxThreshold: 0},
		{ID: "starbirth", Name: "Starbirth", Description: "First stars ignite across the cosmos, forging heavier elements.", Order: 1, FluxThreshold: 500,
			Bonuses: StageBonuses{Flux: 1.1}},
		{ID: "planetfall", Name: "Planetfall", Description: "Worlds form from stellar debris. Planets orbit their suns.", Order: 2, FluxThreshold: 5000,
			Bonuses: StageBonuses{Flux: 1.15, BuildingCost: 0.95}},
		{ID: "awakening", Name: "Awakening Life", Description: "Life emerges from primordial soup. Consciousness begins to stir.", Order: 3, FluxThreshold: 50000,
			Bonuses: StageBonuses{Flux: 1.2, Civilization: 1.1}},
		{ID: "civilizations", Name: "Civilizations", Description: "Sentient beings build great societies across countless worlds.", Order: 4, FluxThreshold: 500000,
			Bonuses: StageBonuses{Flux: 1.3, Civilization: 1.3}},
		{ID: "ascension", Name: "Ascension", Description: "Reality transcends itself. The universe approaches its ultimate form.", Order: 5, FluxThreshold: 5000000,
			Bonuses: StageBonuses{Flux: 1.5, Civilization: 1.5, Echo: 1.2}},
	}
}

func defaultTraits() []TraitDef {
	return []TraitDef{
		{ID: "arcane_physics", Name: "Arcane Physics", Description: "Magic infuses reality. Labs produce +200% Flux, but Reactors produce -30%.", Rarity: RarityUncommon,
			Modifiers: TraitModifiers{BuildingMultipliers: map[string]float64{"lab": 3.0, "reactor": 0.7}}},
		{ID: "early_industrialization", Name: "Early Industrialization", Description: "Civilization advances rapidly. +150% Civilization, but upgrades cost +50%.", Rarity: RarityCommon,
			Modifiers: TraitModifiers{CivilizationMultiplier: 2.5, UpgradeCostMultiplier: 1.5}},
		{ID: "cosmic_lottery", Name: "Cosmic Lottery", Description: "Reality is unpredictable. Anomalies are ten times as likely.", Rarity: RarityRare,
			Modifiers: TraitModifiers{AnomalyChanceMultiplier: 10}},
		{ID: "entropy_plus", Name: "Entropy Plus", Description: "Time accelerates. +100% all production, runs end 40% sooner.", Rarity: RarityRare,
			Modifiers: TraitModifiers{FluxMultiplier: 2, CivilizationMultiplier: 2, RunDurationMultiplier: 0.6}},
		{ID: "steady_growth", Name: "Steady Growth", Description: "Stable universe. Buildings cost -20%, production +20%.", Rarity: RarityCommon,
			Modifiers: TraitModifiers{BuildingCostMultiplier: 0.8, FluxMultiplier: 1.2}},
		{ID: "hyper_industrial", Name: "Hyper-Industrial", Description: "Machine supremacy. Foundries and Reactors produce +150%.", Rarity: RarityUncommon,
			Modifiers: TraitModifiers{BuildingMultipliers: map[string]float64{"foundry": 2.5, "reactor": 2.5}}},
		{ID: "quantum_flux", Name: "Quantum Flux", Description: "Reality fluctuates. All Flux production +300%.", Rarity: RarityMythic,
			Modifiers: TraitModifiers{FluxMultiplier: 4}},
		{ID: "philosopher_stone", Name: "Philosopher's Stone", Description: "Alchemical perfection. Clicking produces +500% Sparks.", Rarity: RarityUncommon,
			Modifiers: TraitModifiers{ClickMultiplier: 6}},
		{ID: "slow_time", Name: "Slow Time", Description: "Time crawls. Buildings cost -40%, production -30%.", Rarity: RarityCommon,
			Modifiers: TraitModifiers{BuildingCostMultiplier: 0.6, FluxMultiplier: 0.7, CivilizationMultiplier: 0.7}},
		{ID: "ascended_reality", Name: "Ascended Reality", Description: "Transcendence beckons. Worlds produce +400%.", Rarity: RarityMythic,
			Modifiers: TraitModifiers{BuildingMultipliers: map[string]float64{"world": 5}}},
	}
}

func defaultDailyTasks() []DailyTaskDef {
	return []DailyTaskDef{
		{ID: "generate_sparks", Name: "Spark Generator", Description: "Generate 10,000 Sparks", Metric: DailySparksEarned, Target: 10000, Reward: DailyReward{Echoes: 2}},
		{ID: "collapse_once", Name: "Universe Recycler", Description: "Collapse a universe", Metric: DailyCollapses, Target: 1, Reward: DailyReward{Echoes: 3}},
		{ID: "use_rare_trait", Name: "Rare Reality", Description: "Complete a run with a Rare or Mythic trait", Metric: DailyRareTraitRuns, Target: 1, Reward: DailyReward{Echoes: 5}},
		{ID: "reach_stage", Name: "Stage Explorer", Description: "Reach the Civilizations stage", Metric: DailyReachedStage, StageID: "civilizations", Target: 1, Reward: DailyReward{Echoes: 4}},
		{ID: "buy_buildings", Name: "Industrial Tycoon", Description: "Purchase 50 buildings", Metric: DailyBuildingsPurchased, Target: 50, Reward: DailyReward{Echoes: 2, Sparks: 500}},
	}
}

func defaultAchievements() []AchievementDef {
	return []AchievementDef{
		{ID: "first_click", Name: "First Spark", Description: "Click for the first time", Metric: MetricTotalClicks, Target: 1, RewardShards: 1},
		{ID: "click_100", Name: "Persistent Tapper", Description: "Click 100 times", Metric: MetricTotalClicks, Target: 100, RewardShards: 2},
		{ID: "first_building", Name: "Foundation", Description: "Own your first building", Metric: MetricBuildingsOwned, Target: 1, RewardShards: 1},
		{ID: "buildings_100", Name: "Industrialist", Description: "Own 100 buildings at once", Metric: MetricBuildingsOwned, Target: 100, RewardShards: 3},
		{ID: "flux_1k", Name: "Flux Apprentice", Description: "Earn 1,000 Flux in a run", Metric: MetricFluxEver, Target: 1000, RewardShards: 2},
		{ID: "flux_1m", Name: "Flux Magnate", Description: "Earn 1,000,000 Flux in a run", Metric: MetricFluxEver, Target: 1_000_000, RewardShards: 5},
		{ID: "first_collapse", Name: "Big Crunch", Description: "Collapse your first universe", Metric: MetricRunCount, Target: 1, RewardShards: 3},
		{ID: "collapse_10", Name: "Cycle Breaker", Description: "Collapse 10 universes", Metric: MetricRunCount, Target: 10, RewardShards: 10},
		{ID: "echoes_100", Name: "Echo Chamber", Description: "Earn 100 Echoes in total", Metric: MetricEchoesEver, Target: 100, RewardShards: 10},
		{ID: "trait_discovery", Name: "Cartographer of Realities", Description: "Discover 5 traits", Metric: MetricTraitsDiscovered, Target: 5, RewardShards: 3},
		{ID: "rare_reality", Name: "Strange Physics", Description: "Play a run with a Rare or Mythic trait", Metric: MetricHoldsRareTrait, Target: 1, RewardShards: 3},
		{ID: "stage_civilizations", Name: "Society Builder", Description: "Reach the Civilizations stage", Metric: MetricReachedStage, StageID: "civilizations", Target: 1, RewardShards: 5},
		{ID: "speed_run", Name: "Speedrunner", Description: "Finish a run in under 5 minutes", Metric: MetricFastRun, Seconds: 300, Target: 1, RewardShards: 5},
	}
}
