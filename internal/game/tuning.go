package game

import (
	"slices"
	"strings"
	"time"
)

// Tuning holds the numeric knobs of the simulation. Zero fields are filled
// from DefaultTuning.
type Tuning struct {
	Volatility              map[string]float64 `yaml:"volatility"`
	HistoryLimit            int                `yaml:"history_limit"`
	RandomEventChance       float64            `yaml:"random_event_chance"`
	RandomEventCooldownDays int                `yaml:"random_event_cooldown_days"`
	MortalityGrowth         float64            `yaml:"mortality_growth"`
	MortalityStartAge       int                `yaml:"mortality_start_age"`
	MortalityCertainAge     int                `yaml:"mortality_certain_age"`
	SecondaryUpkeepShare    float64            `yaml:"secondary_upkeep_share"`
	DividendMonths          []int              `yaml:"dividend_months"`
	LoanPenaltyPerActive    float64            `yaml:"loan_penalty_per_active"`
	StartingBalance         map[string]float64 `yaml:"starting_balance"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Volatility: map[string]float64{
			ClassStocks: 0.02,
			ClassCrypto: 0.05,
		},
		HistoryLimit:            30,
		RandomEventChance:       0.15,
		RandomEventCooldownDays: 365,
		MortalityGrowth:         1.12,
		MortalityStartAge:       18,
		MortalityCertainAge:     100,
		SecondaryUpkeepShare:    0.5,
		DividendMonths:          []int{3, 6, 9, 12},
		LoanPenaltyPerActive:    0.75,
		StartingBalance: map[string]float64{
			DifficultyEasy:      50_000,
			DifficultyStandard:  10_000,
			DifficultyRealistic: 2_500,
		},
	}
}

func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	vol := make(map[string]float64, len(d.Volatility))
	for class, v := range t.Volatility {
		if v > 0 {
			vol[strings.ToLower(class)] = v
		}
	}
	for class, v := range d.Volatility {
		if _, ok := vol[class]; !ok {
			vol[class] = v
		}
	}
	t.Volatility = vol
	if t.HistoryLimit <= 0 {
		t.HistoryLimit = d.HistoryLimit
	}
	if t.RandomEventChance <= 0 {
		t.RandomEventChance = d.RandomEventChance
	}
	if t.RandomEventCooldownDays <= 0 {
		t.RandomEventCooldownDays = d.RandomEventCooldownDays
	}
	if t.MortalityGrowth <= 1 {
		t.MortalityGrowth = d.MortalityGrowth
	}
	if t.MortalityStartAge <= 0 {
		t.MortalityStartAge = d.MortalityStartAge
	}
	if t.MortalityCertainAge <= t.MortalityStartAge {
		t.MortalityCertainAge = d.MortalityCertainAge
	}
	if t.SecondaryUpkeepShare <= 0 {
		t.SecondaryUpkeepShare = d.SecondaryUpkeepShare
	}
	if len(t.DividendMonths) == 0 {
		t.DividendMonths = d.DividendMonths
	}
	if t.LoanPenaltyPerActive <= 0 {
		t.LoanPenaltyPerActive = d.LoanPenaltyPerActive
	}
	if len(t.StartingBalance) == 0 {
		t.StartingBalance = d.StartingBalance
	}
	return t
}

func (t Tuning) volatility(class string) float64 {
	if v, ok := t.Volatility[strings.ToLower(class)]; ok {
		return v
	}
	return t.Volatility[ClassStocks]
}

func (t Tuning) isDividendMonth(m time.Month) bool {
	return slices.Contains(t.DividendMonths, int(m))
}
