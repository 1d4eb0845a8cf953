package game

import (
	"maps"
	"slices"
	"time"
)

// RandomSource is the only source of randomness in the simulation.
// *math/rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// ModifierFunc returns the combined event multiplier for one instrument.
type ModifierFunc func(symbol, sector string) float64

// AdvanceMarketOneDay moves every price by one daily step and records it.
// Classes and symbols are visited in sorted order so a seeded source
// replays identically.
func AdvanceMarketOneDay(st *State, tuning Tuning, rng RandomSource, day time.Time, modifier ModifierFunc) {
	point := DateOf(day)
	for _, class := range slices.Sorted(maps.Keys(st.Market)) {
		entries := st.Market[class]
		vol := tuning.volatility(class)
		for _, sym := range slices.Sorted(maps.Keys(entries)) {
			e := entries[sym]
			factor := 1 + spread(rng.Float64(), vol)
			if modifier != nil {
				factor *= modifier(sym, e.Sector)
			}
			e.CurrentPrice = evolvePrice(e.CurrentPrice, factor)
			e.History = appendPricePoint(e.History, PricePoint{Date: point, Price: e.CurrentPrice}, tuning.HistoryLimit)
			entries[sym] = e
		}
	}
}

// spread maps a uniform [0,1) seed onto [-width, width).
func spread(seed, width float64) float64 {
	return (seed + seed - 1) * width
}

func evolvePrice(price, factor float64) float64 {
	next := RoundPrice(price * factor)
	if next < MinPrice {
		next = MinPrice
	}
	return next
}

func appendPricePoint(history []PricePoint, p PricePoint, limit int) []PricePoint {
	history = append(history, p)
	if limit > 0 && len(history) > limit {
		history = slices.Clone(history[len(history)-limit:])
	}
	return history
}

func (s *State) marketEntry(class, symbol string) (MarketEntry, bool) {
	e, ok := s.Market[class][symbol]
	return e, ok
}

// PortfolioValue is the mark-to-market value of every holding.
func PortfolioValue(st *State) float64 {
	total := 0.0
	for class, holdings := range st.Portfolio {
		for sym, h := range holdings {
			if e, ok := st.marketEntry(class, sym); ok {
				total += h.Amount * e.CurrentPrice
			}
		}
	}
	return total
}
