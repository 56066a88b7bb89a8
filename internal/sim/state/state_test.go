package state

import (
	"math"
	"testing"
	"time"

	"timeforge.app/internal/sim/catalogs"
)

func TestNew_Defaults(t *testing.T) {
	cats := catalogs.Default()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(cats, now)
	if s.Version != Version {
		t.Fatalf("version=%d want=%d", s.Version, Version)
	}
	if len(s.Buildings) != len(cats.Buildings) {
		t.Fatalf("buildings=%d want=%d", len(s.Buildings), len(cats.Buildings))
	}
	if s.CurrentStageID != "primordial" || s.HighestStageReached != "primordial" {
		t.Fatalf("stage=%q/%q want primordial", s.CurrentStageID, s.HighestStageReached)
	}
	if !s.RunStartedAt.Equal(now) || !s.LastUpdateAt.Equal(now) {
		t.Fatalf("timestamps not initialized to now")
	}
	if s.RunNumber != 0 || s.Sparks != 0 {
		t.Fatalf("fresh state not zeroed")
	}
}

func TestClone_Deep(t *testing.T) {
	cats := catalogs.Default()
	s := New(cats, time.Now())
	s.ActiveTraits = []string{"quantum_flux"}
	s.DailyTasks = []DailyTaskProgress{{TaskID: "collapse_once"}}

	c := s.Clone()
	c.Buildings["foundry"] = 5
	c.Upgrades["click_power_1"] = true
	c.MetaUpgrades["power_click_1"] = 2
	c.ActiveTraits[0] = "slow_time"
	c.DailyTasks[0].Progress = 1
	c.Achievements["first_click"] = AchievementState{Unlocked: true}

	if s.Buildings["foundry"] != 0 || s.Upgrades["click_power_1"] || s.MetaUpgrades["power_click_1"] != 0 {
		t.Fatalf("clone shares maps with source")
	}
	if s.ActiveTraits[0] != "quantum_flux" || s.DailyTasks[0].Progress != 0 {
		t.Fatalf("clone shares slices with source")
	}
	if s.Achievements["first_click"].Unlocked {
		t.Fatalf("clone shares achievements with source")
	}
}

func TestDebit_ClampsAtZero(t *testing.T) {
	s := &GameState{Sparks: 5, Echoes: 3}
	s.Debit(catalogs.CurrencySparks, 10)
	s.Debit(catalogs.CurrencyEchoes, 1)
	if s.Sparks != 0 || s.Echoes != 2 {
		t.Fatalf("sparks=%v echoes=%v want 0,2", s.Sparks, s.Echoes)
	}
}

func TestDiscover_KeepsOrderAndDedupes(t *testing.T) {
	s := &GameState{}
	s.Discover("b", "a", "b")
	s.Discover("a", "c")
	want := []string{"b", "a", "c"}
	if len(s.DiscoveredTraits) != len(want) {
		t.Fatalf("discovered=%v want=%v", s.DiscoveredTraits, want)
	}
	for i := range want {
		if s.DiscoveredTraits[i] != want[i] {
			t.Fatalf("discovered=%v want=%v", s.DiscoveredTraits, want)
		}
	}
}

func TestNormalize_RepairsDecodedState(t *testing.T) {
	cats := catalogs.Default()
	s := &GameState{Sparks: math.NaN(), Flux: -4, CurrentStageID: "bogus", Buildings: map[string]int{"foundry": -1}}
	s.Normalize(cats)
	if s.Sparks != 0 || s.Flux != 0 {
		t.Fatalf("balances not clamped: sparks=%v flux=%v", s.Sparks, s.Flux)
	}
	if s.Buildings["foundry"] != 0 || len(s.Buildings) != len(cats.Buildings) {
		t.Fatalf("buildings not repaired: %v", s.Buildings)
	}
	if s.CurrentStageID != "primordial" {
		t.Fatalf("stage=%q want primordial", s.CurrentStageID)
	}
	if s.MetaUpgrades == nil || s.ActiveTraits == nil || s.Version != Version {
		t.Fatalf("nil collections or version not repaired")
	}
}
