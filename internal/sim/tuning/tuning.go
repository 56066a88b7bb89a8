package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickDurationMs  int `yaml:"tick_duration_ms"`
	AutoSaveEveryMs int `yaml:"autosave_every_ms"`
	SaveSlot        int `yaml:"save_slot"`
	TraitOfferCount int `yaml:"trait_offer_count"`
	DailyTaskCount  int `yaml:"daily_task_count"`

	Anomaly Anomaly `yaml:"anomaly"`
}

type Anomaly struct {
	RollEverySeconds float64 `yaml:"roll_every_seconds"`
	BaseChance       float64 `yaml:"base_chance"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickDurationMs:  200,
		AutoSaveEveryMs: 10_000,
		SaveSlot:        1,
		TraitOfferCount: 5,
		DailyTaskCount:  3,
		Anomaly: Anomaly{
			RollEverySeconds: 60,
			BaseChance:       0.01,
		},
	}
}

// Load reads a tuning file over Defaults so a partial file only overrides
// the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickDurationMs <= 0 {
		return fmt.Errorf("tick_duration_ms must be > 0")
	}
	if t.AutoSaveEveryMs <= 0 {
		return fmt.Errorf("autosave_every_ms must be > 0")
	}
	if t.SaveSlot <= 0 {
		return fmt.Errorf("save_slot must be > 0")
	}
	if t.Anomaly.RollEverySeconds <= 0 {
		return fmt.Errorf("anomaly.roll_every_seconds must be > 0")
	}
	if t.Anomaly.BaseChance < 0 || t.Anomaly.BaseChance > 1 {
		return fmt.Errorf("anomaly.base_chance must be in [0,1]")
	}
	if t.DailyTaskCount < 0 || t.TraitOfferCount < 0 {
		return fmt.Errorf("counts must be >= 0")
	}
	return nil
}

func (t Tuning) TickInterval() time.Duration {
	return time.Duration(t.TickDurationMs) * time.Millisecond
}

func (t Tuning) AutoSaveInterval() time.Duration {
	return time.Duration(t.AutoSaveEveryMs) * time.Millisecond
}
