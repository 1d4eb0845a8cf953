package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type NewGameInput struct {
	PlayerName    string
	PlayerSurname string
	Gender        string
	Avatar        string
	DateOfBirth   Date
	Difficulty    string
	Start         time.Time
}

// NewGame builds a fresh save with a market seeded from the catalogue.
func NewGame(in NewGameInput, cat Catalog, tuning Tuning) (*State, error) {
	tuning = tuning.WithDefaults()
	difficulty := strings.ToLower(strings.TrimSpace(in.Difficulty))
	if difficulty == "" {
		difficulty = DifficultyStandard
	}
	start, ok := tuning.StartingBalance[difficulty]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, in.Difficulty)
	}
	if in.Start.IsZero() {
		in.Start = time.Now().UTC()
	}
	if in.DateOfBirth.IsZero() || !in.DateOfBirth.Before(in.Start) {
		return nil, ErrInvalidBirthDate
	}

	st := &State{
		Balance:     decimal.NewFromFloat(start).Round(2),
		CreatedAt:   in.Start,
		DateOfBirth: in.DateOfBirth,
		Difficulty:  difficulty,
		Prestige:    1,
	}
	st.Normalize()

	today := DateOf(in.Start)
	for _, s := range cat.MarketSeed() {
		if st.Market[s.Class] == nil {
			st.Market[s.Class] = map[string]MarketEntry{}
		}
		st.Market[s.Class][s.Symbol] = MarketEntry{
			Name:         s.Name,
			Sector:       s.Sector,
			CurrentPrice: RoundPrice(s.Price),
			DividendRate: s.DividendRate,
			History:      []PricePoint{{Date: today, Price: RoundPrice(s.Price)}},
		}
	}

	st.SetExtraString("player_name", strings.TrimSpace(in.PlayerName))
	st.SetExtraString("player_surname", strings.TrimSpace(in.PlayerSurname))
	if in.Gender != "" {
		st.SetExtraString("gender", in.Gender)
	}
	if in.Avatar != "" {
		st.SetExtraString("avatar", in.Avatar)
	}
	st.SetExtraString("mode", difficulty)
	return st, nil
}
