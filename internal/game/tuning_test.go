package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaultsFillsMissingVolatility(t *testing.T) {
	partial := Tuning{Volatility: map[string]float64{"Crypto": 0.2}}
	got := partial.WithDefaults()

	assert.Equal(t, 0.2, got.volatility(ClassCrypto))
	assert.Equal(t, DefaultTuning().Volatility[ClassStocks], got.volatility(ClassStocks))
	assert.Equal(t, map[string]float64{"Crypto": 0.2}, partial.Volatility, "caller map must not change")
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	tests := []struct {
		name string
		in   Tuning
		want func(t *testing.T, got Tuning)
	}{
		{"empty", Tuning{}, func(t *testing.T, got Tuning) {
			assert.Equal(t, DefaultTuning().Volatility, got.Volatility)
			assert.Equal(t, 30, got.HistoryLimit)
		}},
		{"history", Tuning{HistoryLimit: 5}, func(t *testing.T, got Tuning) {
			assert.Equal(t, 5, got.HistoryLimit)
		}},
		{"zero volatility falls back", Tuning{Volatility: map[string]float64{ClassStocks: 0}}, func(t *testing.T, got Tuning) {
			assert.Equal(t, 0.02, got.Volatility[ClassStocks])
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.want(t, tc.in.WithDefaults())
		})
	}
}
