package economy

import (
	"math"
	"testing"
	"time"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fresh(t *testing.T) (*catalogs.Catalogs, *state.GameState) {
	t.Helper()
	cats := catalogs.Default()
	return cats, state.New(cats, t0)
}

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b)) }

func TestBuildingCost_FormulaAndStrictIncrease(t *testing.T) {
	cats := catalogs.Default()
	for _, def := range cats.Buildings {
		prev := -1.0
		for n := 0; n <= 60; n++ {
			got := BuildingCost(def, n)
			want := math.Floor(def.BaseCost * math.Pow(def.CostMultiplier, float64(n)))
			if got != want {
				t.Fatalf("%s n=%d cost=%v want=%v", def.ID, n, got, want)
			}
			if got <= prev {
				t.Fatalf("%s n=%d cost=%v not greater than %v", def.ID, n, got, prev)
			}
			prev = got
		}
	}
}

func TestScenarioB_FoundryFirstTwoPrices(t *testing.T) {
	cats, st := fresh(t)
	p0, ok := BuildingPrice(cats, st, "foundry")
	if !ok || p0 != 10 {
		t.Fatalf("first foundry price=%v ok=%v want=10", p0, ok)
	}
	st.Buildings["foundry"] = 1
	p1, _ := BuildingPrice(cats, st, "foundry")
	if p1 != 11 {
		t.Fatalf("second foundry price=%v want=11", p1)
	}
}

func TestProjectBulk_MatchesSequential(t *testing.T) {
	cats, st := fresh(t)
	st.Sparks = 1e12
	st.ActiveTraits = []string{"steady_growth"}
	st.MetaUpgrades["tempo_cost_1"] = 2

	for _, qty := range []int{1, 10, 25, 100} {
		bulk, ok := ProjectBulk(cats, st, "reactor", qty)
		if !ok || bulk.Count != qty {
			t.Fatalf("qty=%d projected count=%d ok=%v", qty, bulk.Count, ok)
		}
		seq := st.Clone()
		total := 0.0
		for i := 0; i < qty; i++ {
			p, _ := BuildingPrice(cats, seq, "reactor")
			total += p
			seq.Buildings["reactor"]++
		}
		if bulk.TotalCost != total {
			t.Fatalf("qty=%d bulk=%v sequential=%v", qty, bulk.TotalCost, total)
		}
	}
}

func TestProjectBulk_Max(t *testing.T) {
	cats, st := fresh(t)
	st.Sparks = 21
	b, _ := ProjectBulk(cats, st, "foundry", BuyMax)
	if b.Count != 2 || b.TotalCost != 21 {
		t.Fatalf("max with 21 sparks: %+v want count=2 cost=21", b)
	}
	st.Sparks = 20
	b, _ = ProjectBulk(cats, st, "foundry", BuyMax)
	if b.Count != 1 || b.TotalCost != 10 {
		t.Fatalf("max with 20 sparks: %+v want count=1 cost=10", b)
	}
	st.Sparks = 1e300
	b, _ = ProjectBulk(cats, st, "foundry", BuyMax)
	if b.Count != MaxBulkIterations {
		t.Fatalf("max with huge balance: count=%d want=%d", b.Count, MaxBulkIterations)
	}
	b, _ = ProjectBulk(cats, st, "foundry", 5000)
	if b.Count != MaxBulkIterations {
		t.Fatalf("explicit qty above cap: count=%d want=%d", b.Count, MaxBulkIterations)
	}
	if _, ok := ProjectBulk(cats, st, "nope", 1); ok {
		t.Fatalf("unknown building should not project")
	}
}

func TestAdjustedCost_TraitMetaStage(t *testing.T) {
	cats, st := fresh(t)
	st.ActiveTraits = []string{"steady_growth"}
	st.CurrentStageID = "planetfall"
	if got := AdjustedCost(cats, st, 10, CostBuilding); got != 7 {
		t.Fatalf("building cost=%v want=7 (10*0.8*0.95 floored)", got)
	}
	st.MetaUpgrades["tempo_cost_1"] = 1
	if got := AdjustedCost(cats, st, 10, CostBuilding); got != 6 {
		t.Fatalf("building cost=%v want=6", got)
	}
	st.ActiveTraits = []string{"early_industrialization"}
	if got := AdjustedCost(cats, st, 50, CostUpgrade); got != 75 {
		t.Fatalf("upgrade cost=%v want=75", got)
	}
	if got := AdjustedCost(cats, st, -5, CostUpgrade); got != 0 {
		t.Fatalf("negative cost should clamp to 0, got %v", got)
	}
}

func TestClickPower(t *testing.T) {
	cats, st := fresh(t)
	if got := ClickPower(cats, st); got != 1 {
		t.Fatalf("fresh click power=%v want=1", got)
	}
	st.Upgrades["click_power_1"] = true
	st.Upgrades["click_power_2"] = true
	if got := ClickPower(cats, st); got != 6 {
		t.Fatalf("click power=%v want=6", got)
	}
	st.ActiveTraits = []string{"philosopher_stone"}
	st.MetaUpgrades["power_click_1"] = 2
	if got := ClickPower(cats, st); !approx(got, 81) {
		t.Fatalf("click power=%v want=81", got)
	}
}

func TestBuildingProduction_Pipeline(t *testing.T) {
	cats, st := fresh(t)
	def, _ := cats.Building("foundry")
	st.Upgrades["foundry_boost_1"] = true
	st.ActiveTraits = []string{"hyper_industrial"}
	if got := BuildingProduction(cats, st, def); got != 0 {
		t.Fatalf("zero count must yield 0, got %v", got)
	}
	st.Buildings["foundry"] = 10
	// 0.1*10 * 2 (upgrade) * 2.5 (trait) = 5
	if got := BuildingProduction(cats, st, def); !approx(got, 5) {
		t.Fatalf("production=%v want=5", got)
	}
	st.Upgrades["global_flux_1"] = true
	st.CurrentStageID = "starbirth"
	st.MetaUpgrades["power_buildings_1"] = 1
	// * 1.5 * 1.1 * 1.25
	if got := BuildingProduction(cats, st, def); !approx(got, 5*1.5*1.1*1.25) {
		t.Fatalf("production=%v want=%v", got, 5*1.5*1.1*1.25)
	}

	civ, _ := cats.Building("civilization")
	st.Buildings["civilization"] = 10
	tot := TotalProduction(cats, st)
	if !approx(tot.FluxPerSecond, 5*1.5*1.1*1.25) {
		t.Fatalf("flux/s=%v", tot.FluxPerSecond)
	}
	if !approx(tot.CivilizationPerSecond, BuildingProduction(cats, st, civ)) || tot.CivilizationPerSecond <= 0 {
		t.Fatalf("civ/s=%v", tot.CivilizationPerSecond)
	}
}

func TestScenarioC_Payout(t *testing.T) {
	cats, st := fresh(t)
	st.TotalFluxEarned = 10000
	st.Civilization = 400
	st.TotalRunTime = 120
	if got := EchoesFromRun(cats, st); got != 13 {
		t.Fatalf("echoes=%v want=13", got)
	}
}

func TestPayout_MinimumOne(t *testing.T) {
	cats, st := fresh(t)
	if got := EchoesFromRun(cats, st); got != 1 {
		t.Fatalf("empty run echoes=%v want=1", got)
	}
}

func TestPayout_FastRunAndMeta(t *testing.T) {
	cats, st := fresh(t)
	st.TotalFluxEarned = 10000
	st.Civilization = 400
	st.TotalRunTime = 120
	st.MetaUpgrades["weird_speed_1"] = 2
	if got := EchoesFromRun(cats, st); got != 26 {
		t.Fatalf("fast run echoes=%v want=26", got)
	}
	st.TotalRunTime = 400
	if got := EchoesFromRun(cats, st); got != 17 {
		t.Fatalf("slow run echoes=%v want=17", got)
	}
	st.MetaUpgrades["tempo_echoes_1"] = 1
	st.CurrentStageID = "ascension"
	if got := EchoesFromRun(cats, st); got != math.Floor(17*1.25*1.2) {
		t.Fatalf("echoes=%v want=%v", got, math.Floor(17*1.25*1.2))
	}
}

func TestPayout_FastRunGateIgnoresRunDurationTraits(t *testing.T) {
	cats, st := fresh(t)
	st.MetaUpgrades["weird_speed_1"] = 1
	st.TotalRunTime = 450
	plain := EchoesFromRun(cats, st)
	st.ActiveTraits = []string{"entropy_plus"}
	if got := EchoesFromRun(cats, st); got != plain {
		t.Fatalf("450s run with entropy_plus echoes=%v want=%v", got, plain)
	}
	st.TotalRunTime = 299
	st.ActiveTraits = nil
	noBonus := st.Clone()
	noBonus.MetaUpgrades["weird_speed_1"] = 0
	if fast, base := EchoesFromRun(cats, st), EchoesFromRun(cats, noBonus); fast <= base {
		t.Fatalf("299s run echoes=%v want more than %v", fast, base)
	}
}

func TestPayout_Monotonic(t *testing.T) {
	cats, st := fresh(t)
	prev := 0.0
	for _, flux := range []float64{0, 10, 100, 1e3, 1e4, 1e5, 1e6, 1e8} {
		st.TotalFluxEarned = flux
		got := EchoesFromRun(cats, st)
		if got < prev {
			t.Fatalf("payout decreased at flux=%v: %v < %v", flux, got, prev)
		}
		prev = got
	}
	prev = 0
	for _, civ := range []float64{0, 400, 1600, 1e4, 1e6} {
		st.Civilization = civ
		got := EchoesFromRun(cats, st)
		if got < prev {
			t.Fatalf("payout decreased at civ=%v", civ)
		}
		prev = got
	}
	prev = 0
	for _, rt := range []float64{0, 59, 60, 299, 301, 3600, 86400} {
		st.TotalRunTime = rt
		got := EchoesFromRun(cats, st)
		if got < prev {
			t.Fatalf("payout decreased at runtime=%v", rt)
		}
		prev = got
	}
}

func TestStageFor_MonotonicAndMetaScaled(t *testing.T) {
	cats, st := fresh(t)
	st.TotalFluxEarned = 600
	if s := StageFor(cats, st); s.ID != "starbirth" {
		t.Fatalf("stage=%q want starbirth", s.ID)
	}
	st.CurrentStageID = "awakening"
	if s := StageFor(cats, st); s.ID != "awakening" {
		t.Fatalf("stage regressed to %q", s.ID)
	}
	st.CurrentStageID = "primordial"
	st.TotalFluxEarned = 400
	if s := StageFor(cats, st); s.ID != "primordial" {
		t.Fatalf("stage=%q want primordial", s.ID)
	}
	st.MetaUpgrades["tempo_stages_1"] = 3
	if s := StageFor(cats, st); s.ID != "starbirth" {
		t.Fatalf("stage=%q want starbirth with stage progress bonus", s.ID)
	}
}

func TestMetaBonuses(t *testing.T) {
	cats, st := fresh(t)
	b := MetaBonuses(cats, st)
	if b.OfflineCapHours != 8 || b.TraitChoices != 2 || b.OfflineGains != 1 {
		t.Fatalf("defaults: %+v", b)
	}
	st.MetaUpgrades["tempo_offline_1"] = 3
	st.MetaUpgrades["weird_traits_1"] = 2
	st.MetaUpgrades["weird_starting_1"] = 2
	b = MetaBonuses(cats, st)
	if b.OfflineCapHours != 14 || !approx(b.OfflineGains, 1.728) {
		t.Fatalf("offline bonuses: cap=%v gains=%v", b.OfflineCapHours, b.OfflineGains)
	}
	if b.TraitChoices != 4 || b.StartingSparks != 200 {
		t.Fatalf("weirdness bonuses: %+v", b)
	}
	if TraitChoiceLimit(cats, st) != 4 {
		t.Fatalf("trait limit=%d want=4", TraitChoiceLimit(cats, st))
	}
}

func TestOfflineGains_Capped(t *testing.T) {
	cats, st := fresh(t)
	st.Buildings["foundry"] = 10
	now := t0.Add(100 * time.Hour)
	off := OfflineGains(cats, st, now)
	if off.Seconds != 8*3600 {
		t.Fatalf("seconds=%v want=%v", off.Seconds, 8*3600)
	}
	rate := TotalProduction(cats, st).FluxPerSecond
	if !approx(off.Flux, rate*8*3600) {
		t.Fatalf("flux=%v want=%v", off.Flux, rate*8*3600)
	}

	st.MetaUpgrades["tempo_offline_1"] = 1
	off = OfflineGains(cats, st, now)
	if off.Seconds != 10*3600 || !approx(off.Flux, rate*10*3600*1.2) {
		t.Fatalf("with meta: seconds=%v flux=%v", off.Seconds, off.Flux)
	}

	short := OfflineGains(cats, st, t0.Add(90*time.Second))
	if short.Seconds != 90 {
		t.Fatalf("uncapped seconds=%v want=90", short.Seconds)
	}
	if none := OfflineGains(cats, st, t0.Add(-time.Minute)); none.Seconds != 0 || none.Flux != 0 {
		t.Fatalf("clock skew should credit nothing: %+v", none)
	}
}

func TestRequirementsMet(t *testing.T) {
	cats, st := fresh(t)
	def, _ := cats.Upgrade("click_power_2")
	if RequirementsMet(cats, st, def.Requires) {
		t.Fatalf("click_power_2 should need click_power_1")
	}
	st.Upgrades["click_power_1"] = true
	if !RequirementsMet(cats, st, def.Requires) {
		t.Fatalf("requirement should pass after purchase")
	}
	reqs := []catalogs.Requirement{{Kind: catalogs.RequireStage, ID: "planetfall"}, {Kind: catalogs.RequireRunNumber, Level: 2}}
	if RequirementsMet(cats, st, reqs) {
		t.Fatalf("stage/run requirements should fail on fresh state")
	}
	st.CurrentStageID = "awakening"
	st.RunNumber = 2
	if !RequirementsMet(cats, st, reqs) {
		t.Fatalf("stage/run requirements should pass")
	}
	if RequirementsMet(cats, st, []catalogs.Requirement{{Kind: "telepathy"}}) {
		t.Fatalf("unknown kind must fail closed")
	}
}

func TestAnomalyChance(t *testing.T) {
	cats, st := fresh(t)
	if got := AnomalyChance(cats, st, 0.01); got != 0.01 {
		t.Fatalf("base chance=%v", got)
	}
	st.ActiveTraits = []string{"cosmic_lottery"}
	if got := AnomalyChance(cats, st, 0.01); !approx(got, 0.1) {
		t.Fatalf("lottery chance=%v want=0.1", got)
	}
	st.MetaUpgrades["weird_anomaly_1"] = 1
	if got := AnomalyChance(cats, st, 0.01); !approx(got, 0.6) {
		t.Fatalf("chance=%v want=0.6", got)
	}
	st.MetaUpgrades["weird_anomaly_1"] = 3
	if got := AnomalyChance(cats, st, 0.01); got != 1 {
		t.Fatalf("chance should clamp at 1, got %v", got)
	}
}
