package economy

import (
	"math"
	"time"

	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/state"
)

// EchoesFromRun is the prestige payout for collapsing st now. The result is
// at least 1 even after fractional multipliers. The fast-run bonus is gated
// on the wall run time; trait run-duration modifiers do not move it.
func EchoesFromRun(cats *catalogs.Catalogs, st *state.GameState) float64 {
	base := math.Floor(math.Sqrt(clamp(st.TotalFluxEarned))/10) +
		math.Floor(math.Sqrt(clamp(st.Civilization))/20) +
		math.Floor(clamp(st.TotalRunTime)/60)
	base = math.Max(1, base)

	mb := MetaBonuses(cats, st)
	fast := 1.0
	if clamp(st.TotalRunTime) < FastRunSeconds {
		fast = 1 + mb.FastRunBonus
	}
	out := math.Floor(base * mb.EchoesEarned * CurrentStage(cats, st).Bonuses.EchoMultiplier() * fast)
	return math.Max(1, clamp(out))
}

type Offline struct {
	Seconds      float64 `json:"seconds"`
	Sparks       float64 `json:"sparks"`
	Flux         float64 `json:"flux"`
	Civilization float64 `json:"civilization"`
}

// OfflineGains credits the time since st was last observed as one lump,
// using the production rates of st as loaded. Elapsed time is capped at the
// meta offline cap.
func OfflineGains(cats *catalogs.Catalogs, st *state.GameState, now time.Time) Offline {
	last := st.LastUpdateAt
	if last.IsZero() {
		last = st.LastTickAt
	}
	if last.IsZero() {
		return Offline{}
	}
	elapsed := now.Sub(last).Seconds()
	if elapsed <= 0 {
		return Offline{}
	}
	mb := MetaBonuses(cats, st)
	capped := math.Min(elapsed, clamp(mb.OfflineCapHours)*3600)
	rate := TotalProduction(cats, st)
	return Offline{
		Seconds:      capped,
		Sparks:       clamp(OfflineSparksPerSecond * capped * mb.OfflineGains),
		Flux:         clamp(rate.FluxPerSecond * capped * mb.OfflineGains),
		Civilization: clamp(rate.CivilizationPerSecond * capped * mb.OfflineGains),
	}
}
