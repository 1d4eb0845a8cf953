package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnnualDeathChanceCurve(t *testing.T) {
	tu := DefaultTuning()

	assert.Equal(t, 0.0, tu.AnnualDeathChance(17))
	assert.InDelta(t, 100/math.Pow(1.12, 82), tu.AnnualDeathChance(18), 1e-12)
	assert.InDelta(t, 100.0, tu.AnnualDeathChance(100), 1e-9)
	assert.Equal(t, 100.0, tu.AnnualDeathChance(120))

	prev := tu.AnnualDeathChance(18)
	for age := 19; age <= 100; age++ {
		cur := tu.AnnualDeathChance(age)
		if cur <= prev {
			t.Fatalf("chance not increasing at age %d: %v <= %v", age, cur, prev)
		}
		prev = cur
	}
}

func TestDailyDeathChance(t *testing.T) {
	tu := DefaultTuning()
	assert.InDelta(t, 100.0/365, tu.DailyDeathChance(100), 1e-12)
}

func TestAgeFunctionsDiffer(t *testing.T) {
	dob := NewDate(2000, time.December, 31)
	now := time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 31, MortalityAge(now, dob))
	assert.Equal(t, 30, ProfileAge(now, dob))

	birthday := time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, ProfileAge(birthday, dob))
}

func TestRollDeathSkipsMinors(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.DateOfBirth = NewDate(2015, time.May, 1)
	assert.False(t, rollDeath(st, DefaultTuning(), constRand(0)))
}

func TestValueEstateUsesCataloguePrices(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Balance = dec(250)
	st.OwnedProperties = []string{"prop_a", "prop_b"}
	st.PrimaryHome = "prop_a"
	st.OwnedVehicles = []string{"veh_27", "veh_unknown"}
	st.OwnedValuables = []string{"val_01"}

	r := ValueEstate(st, cat)
	assert.True(t, r.Properties.Equal(dec(150000)))
	assert.True(t, r.Vehicles.Equal(dec(5000)))
	assert.True(t, r.Valuables.Equal(dec(2000)))
	assert.True(t, r.NetWorth.Equal(dec(157250)), "net worth=%s", r.NetWorth)
	assert.Equal(t, 10*2+4+3+2, r.Prestige)
}
