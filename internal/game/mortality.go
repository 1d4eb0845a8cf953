package game

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MortalityAge is the plain calendar-year difference the death model uses.
func MortalityAge(now time.Time, dob Date) int {
	return now.Year() - dob.Year()
}

// ProfileAge is the displayed age, corrected for birthdays not yet reached.
func ProfileAge(now time.Time, dob Date) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// AnnualDeathChance is a percentage that grows geometrically from the start
// age and reaches 100 at the certain age.
func (t Tuning) AnnualDeathChance(age int) float64 {
	if age < t.MortalityStartAge {
		return 0
	}
	span := float64(t.MortalityCertainAge - t.MortalityStartAge)
	chance := 100 * math.Pow(t.MortalityGrowth, float64(age-t.MortalityStartAge)) / math.Pow(t.MortalityGrowth, span)
	if chance > 100 {
		return 100
	}
	return chance
}

func (t Tuning) DailyDeathChance(age int) float64 {
	return t.AnnualDeathChance(age) / 365
}

// rollDeath draws once against today's chance.
func rollDeath(st *State, tuning Tuning, rng RandomSource) bool {
	age := MortalityAge(st.CreatedAt, st.DateOfBirth)
	if age < tuning.MortalityStartAge {
		return false
	}
	return rng.Float64()*100 < tuning.DailyDeathChance(age)
}

// ValueEstate prices everything the player owns at catalogue price.
// Market holdings are not part of the estate.
func ValueEstate(st *State, cat Catalog) EstateReport {
	r := EstateReport{
		DiedAt:     st.CreatedAt,
		Age:        ProfileAge(st.CreatedAt, st.DateOfBirth),
		Cash:       st.Balance,
		Properties: decimal.Zero,
		Vehicles:   decimal.Zero,
		Valuables:  decimal.Zero,
		Prestige:   Prestige(st, cat),
	}
	for _, id := range st.OwnedProperties {
		if p, ok := cat.Property(id); ok {
			r.Properties = r.Properties.Add(p.Price)
		}
	}
	for _, id := range st.OwnedVehicles {
		if v, ok := cat.Vehicle(id); ok {
			r.Vehicles = r.Vehicles.Add(v.Price)
		}
	}
	for _, id := range st.OwnedValuables {
		if v, ok := cat.Valuable(id); ok {
			r.Valuables = r.Valuables.Add(v.Price)
		}
	}
	r.NetWorth = r.Cash.Add(r.Properties).Add(r.Vehicles).Add(r.Valuables)
	return r
}
