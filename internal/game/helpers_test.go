package game

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradequest/internal/catalog"
)

// seqRand replays a fixed list of draws, cycling when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func constRand(v float64) *seqRand {
	return &seqRand{vals: []float64{v}}
}

type countingNotifier struct {
	ids []string
}

func (n *countingNotifier) AchievementUnlocked(id string) {
	n.ids = append(n.ids, id)
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.Defs{
		Jobs: []catalog.Job{
			{ID: "job_dev", Title: "Developer", BaseSalary: dec(3000)},
			{ID: "job_ms", Title: "Analyst", BaseSalary: dec(1000), Milestones: []catalog.Milestone{
				{Months: 3, Bonus: dec(100)},
				{Months: 6, Bonus: dec(200)},
			}},
			{ID: "job_20", Title: "CEO", BaseSalary: dec(90000), ReqCourse: "course_mba"},
		},
		Courses: []catalog.Course{
			{ID: "course_mba", Name: "MBA", Days: 2, Cost: dec(1000)},
			{ID: "course_excel", Name: "Excel", Days: 1, Cost: dec(100)},
		},
		Properties: []catalog.Property{
			{ID: "prop_a", Name: "House", Price: dec(100000), Upkeep: dec(500), Prestige: 10},
			{ID: "prop_b", Name: "Flat", Price: dec(50000), Upkeep: dec(200), Prestige: 4},
			{ID: "prop_11", Name: "Penthouse", Price: dec(2000), Upkeep: dec(10), Prestige: 7},
		},
		Vehicles: []catalog.Vehicle{
			{ID: "veh_01", Name: "Bike", Price: dec(1000), Prestige: 1},
			{ID: "veh_27", Name: "Rocket", Price: dec(5000), Prestige: 3},
		},
		Valuables: []catalog.Valuable{
			{ID: "val_01", Name: "Watch", Price: dec(2000), Prestige: 2},
		},
		Events: []catalog.Event{
			{ID: "G_CRASH_01", Name: "Crash", Duration: 3, TargetType: catalog.TargetGlobal, Impact: 0.9, Weight: 1},
			{ID: "S_TECH_UP", Name: "Tech rally", Duration: 5, TargetType: catalog.TargetSector, TargetID: "Tech", Impact: 1.10, Weight: 1},
			{ID: "T_ACME_DOWN", Name: "Acme recall", Duration: 2, TargetType: catalog.TargetSingle, TargetID: "ACME", Impact: 0.95},
		},
		LoanOffers: []catalog.LoanOffer{
			{ID: "small", Name: "Small", Amount: dec(10000), Months: 10, Interest: 0.10},
		},
		Market: []catalog.Symbol{
			{Symbol: "ACME", Name: "Acme", Class: ClassStocks, Sector: "tech", Price: 50, DividendRate: 0.01},
			{Symbol: "COIN", Name: "Coin", Class: ClassCrypto, Sector: "crypto", Price: 100},
		},
	})
	require.NoError(t, err)
	return c
}

var testStart = time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

func newTestState(t *testing.T, cat *catalog.Catalog) *State {
	t.Helper()
	st, err := NewGame(NewGameInput{
		PlayerName:    "Ada",
		PlayerSurname: "Lovelace",
		DateOfBirth:   NewDate(1990, time.March, 15),
		Difficulty:    DifficultyStandard,
		Start:         testStart,
	}, cat, DefaultTuning())
	require.NoError(t, err)
	return st
}

func newTestEngine(t *testing.T, st *State, cat *catalog.Catalog, rng RandomSource) (*Engine, *countingNotifier) {
	t.Helper()
	n := &countingNotifier{}
	e := NewEngine(st, cat, Options{Rand: rng, Logger: quietLogger(), Notifier: n})
	return e, n
}
