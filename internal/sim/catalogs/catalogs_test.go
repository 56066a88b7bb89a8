package catalogs

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	cats := Default()
	if err := cats.Validate(); err != nil {
		t.Fatalf("default catalogs invalid: %v", err)
	}
	if len(cats.Buildings) != 6 || len(cats.Upgrades) != 10 || len(cats.MetaUpgrades) != 15 {
		t.Fatalf("unexpected table sizes: buildings=%d upgrades=%d meta=%d", len(cats.Buildings), len(cats.Upgrades), len(cats.MetaUpgrades))
	}
	if len(cats.Stages) != 6 || len(cats.Traits) != 10 || len(cats.DailyTasks) != 5 {
		t.Fatalf("unexpected table sizes: stages=%d traits=%d daily=%d", len(cats.Stages), len(cats.Traits), len(cats.DailyTasks))
	}
	if cats.FirstStage().ID != "primordial" {
		t.Fatalf("first stage=%q want primordial", cats.FirstStage().ID)
	}
}

func TestDefault_DigestStable(t *testing.T) {
	a, b := Default(), Default()
	if a.Digest == "" || a.Digest != b.Digest {
		t.Fatalf("digest not stable: %q vs %q", a.Digest, b.Digest)
	}
	if len(a.Digest) != 64 {
		t.Fatalf("digest len=%d want=64", len(a.Digest))
	}
}

func TestLookup(t *testing.T) {
	cats := Default()
	b, ok := cats.Building("foundry")
	if !ok || b.BaseCost != 10 || b.CostMultiplier != 1.15 {
		t.Fatalf("foundry lookup: ok=%v def=%+v", ok, b)
	}
	if _, ok := cats.Building("nope"); ok {
		t.Fatalf("unknown building should not resolve")
	}
	m, ok := cats.MetaUpgrade("power_ultimate")
	if !ok || m.Prerequisite != "power_flux_1" {
		t.Fatalf("power_ultimate lookup: ok=%v def=%+v", ok, m)
	}
	tr, ok := cats.Trait("cosmic_lottery")
	if !ok || !tr.Rarity.IsRare() {
		t.Fatalf("cosmic_lottery should be rare: %+v", tr)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cats := New(Catalogs{
		Buildings: []BuildingDef{{ID: "a", BaseCost: 1, CostMultiplier: 1, Resource: ResourceFlux}},
		Upgrades: []UpgradeDef{{ID: "u", Currency: CurrencySparks, Effect: UpgradeEffect{Kind: EffectMultiplier, Scope: Scope{Kind: ScopeBuilding, BuildingID: "missing"}},
			Requires: []Requirement{{Kind: RequireUpgrade, ID: "ghost"}}}},
		MetaUpgrades: []MetaUpgradeDef{{ID: "m", BaseCost: 1, CostMultiplier: 2, MaxLevel: 1, Effects: []MetaEffect{{Kind: MetaEffectKind(99)}}}},
		Stages:       []StageDef{{ID: "s0"}},
	})
	err := cats.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"cost_multiplier", "unknown building", "unknown upgrade", "unknown effect kind"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestMetaEffectKind_Text(t *testing.T) {
	b, err := json.Marshal(MetaEffect{Kind: MetaOfflineGains, PerLevel: 1.2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"offline_gains"`) {
		t.Fatalf("kind not encoded by name: %s", b)
	}
	var back MetaEffect
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind != MetaOfflineGains {
		t.Fatalf("kind=%v want=%v", back.Kind, MetaOfflineGains)
	}
	var bad MetaEffect
	if err := json.Unmarshal([]byte(`{"kind":"teleport","per_level":1}`), &bad); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
	if MetaTraitChoices.Composition() != Additive || MetaFluxMultiplier.Composition() != Multiplicative {
		t.Fatalf("composition mismatch")
	}
}
