package game

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Notifier receives achievement unlocks. Implementations must not block.
type Notifier interface {
	AchievementUnlocked(id string)
}

// Aggregates are the derived figures achievements are judged on.
type Aggregates struct {
	Now            time.Time                  `json:"now"`
	PortfolioValue decimal.Decimal            `json:"portfolio_value"`
	NetWorth       decimal.Decimal            `json:"net_worth"` // balance + portfolio
	Prestige       int                        `json:"prestige"`
	Age            int                        `json:"age"`
	ActiveEvents   map[string]bool            `json:"active_events"`
	SectorValue    map[string]decimal.Decimal `json:"sector_value"` // stock value by lowercase sector
}

func ComputeAggregates(st *State, cat Catalog) Aggregates {
	portfolio := Money(PortfolioValue(st))
	agg := Aggregates{
		Now:            st.CreatedAt,
		PortfolioValue: portfolio,
		NetWorth:       st.Balance.Add(portfolio),
		Prestige:       Prestige(st, cat),
		Age:            ProfileAge(st.CreatedAt, st.DateOfBirth),
		ActiveEvents:   map[string]bool{},
		SectorValue:    map[string]decimal.Decimal{},
	}
	for _, id := range st.ActiveEventIDs() {
		agg.ActiveEvents[strings.ToUpper(id)] = true
	}
	for sym, h := range st.Portfolio[ClassStocks] {
		e, ok := st.marketEntry(ClassStocks, sym)
		if !ok {
			continue
		}
		sector := strings.ToLower(e.Sector)
		agg.SectorValue[sector] = agg.SectorValue[sector].Add(Money(h.Amount * e.CurrentPrice))
	}
	return agg
}

// Prestige sums catalogue prestige of owned items; the primary home counts twice.
func Prestige(st *State, cat Catalog) int {
	total := 0
	for _, id := range st.OwnedProperties {
		p, ok := cat.Property(id)
		if !ok {
			continue
		}
		total += p.Prestige
		if id == st.PrimaryHome {
			total += p.Prestige
		}
	}
	for _, id := range st.OwnedVehicles {
		if v, ok := cat.Vehicle(id); ok {
			total += v.Prestige
		}
	}
	for _, id := range st.OwnedValuables {
		if v, ok := cat.Valuable(id); ok {
			total += v.Prestige
		}
	}
	return total
}

type achievementRule struct {
	id  string
	met func(st *State, agg Aggregates) bool
}

func netWorthAtLeast(v int64) func(*State, Aggregates) bool {
	limit := decimal.NewFromInt(v)
	return func(_ *State, agg Aggregates) bool { return agg.NetWorth.GreaterThanOrEqual(limit) }
}

func prestigeAtLeast(v int) func(*State, Aggregates) bool {
	return func(_ *State, agg Aggregates) bool { return agg.Prestige >= v }
}

func ownsVehicle(id string) func(*State, Aggregates) bool {
	return func(st *State, _ Aggregates) bool { return slices.Contains(st.OwnedVehicles, id) }
}

func ownsValuable(id string) func(*State, Aggregates) bool {
	return func(st *State, _ Aggregates) bool { return slices.Contains(st.OwnedValuables, id) }
}

func ownsProperty(id string) func(*State, Aggregates) bool {
	return func(st *State, _ Aggregates) bool { return slices.Contains(st.OwnedProperties, id) }
}

var achievementRules = []achievementRule{
	{"first_dollar", func(st *State, _ Aggregates) bool {
		for _, tx := range st.Transactions {
			if tx.Amount.IsPositive() && (tx.Category == CategorySalary || tx.Category == CategoryMarket) {
				return true
			}
		}
		return false
	}},
	{"millionaire", netWorthAtLeast(1_000_000)},
	{"decamillionaire", netWorthAtLeast(10_000_000)},
	{"be_elon", netWorthAtLeast(250_000_000_000)},
	{"bull_spirit", func(_ *State, agg Aggregates) bool {
		return agg.PortfolioValue.GreaterThanOrEqual(decimal.NewFromInt(1_000_000))
	}},
	{"diamond_hands", func(st *State, _ Aggregates) bool {
		for sym, h := range st.Portfolio[ClassStocks] {
			e, ok := st.marketEntry(ClassStocks, sym)
			if ok && h.Amount > 0 && h.AvgPrice > 0 && e.CurrentPrice <= 0.6*h.AvgPrice {
				return true
			}
		}
		return false
	}},
	{"crash_meme", func(_ *State, agg Aggregates) bool {
		return agg.ActiveEvents["G_CRASH_01"] && agg.PortfolioValue.IsPositive()
	}},
	{"ww3_quote", func(_ *State, agg Aggregates) bool {
		return agg.ActiveEvents["G_WORLD_WAR_3"] && agg.SectorValue["defense"].GreaterThanOrEqual(decimal.NewFromInt(100_000_000))
	}},
	{"homeless_no_more", func(st *State, _ Aggregates) bool { return len(st.OwnedProperties) > 1 }},
	{"landlord", func(st *State, _ Aggregates) bool { return len(st.OwnedProperties) >= 3 }},
	{"real_estate_tycoon", func(st *State, _ Aggregates) bool { return len(st.OwnedProperties) >= 10 }},
	{"penthouse_life", ownsProperty("prop_11")},
	{"architect_dream", ownsProperty("prop_20")},
	{"first_ride", func(st *State, _ Aggregates) bool { return len(st.OwnedVehicles) >= 1 }},
	{"petrolhead", func(st *State, _ Aggregates) bool { return len(st.OwnedVehicles) >= 5 }},
	{"speed_demon", func(st *State, _ Aggregates) bool {
		for _, id := range st.OwnedVehicles {
			if n, ok := itemNumber(id, "veh_"); ok && n >= 14 && n <= 30 {
				return true
			}
		}
		return false
	}},
	{"to_the_moon", ownsVehicle("veh_27")},
	{"democracy_time", ownsVehicle("veh_28")},
	{"empire_strikes", ownsVehicle("veh_30")},
	{"island_evidence", ownsValuable("val_27")},
	{"indy_heritage", ownsValuable("val_30")},
	{"ceo_status", func(st *State, _ Aggregates) bool { return st.CurrentJob == "job_20" }},
	{"lifelong_learner", func(st *State, _ Aggregates) bool { return len(st.CompletedCourses) >= 5 }},
	{"overqualified", func(st *State, _ Aggregates) bool { return len(st.CompletedCourses) >= 11 }},
	{"grown_up", func(_ *State, agg Aggregates) bool { return agg.Age >= 30 }},
	{"social_elite", prestigeAtLeast(10_000)},
	{"world_famous", prestigeAtLeast(50_000)},
	{"living_legend", prestigeAtLeast(100_000)},
}

func itemNumber(id, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

// CheckAll recomputes prestige and unlocks every achievement whose condition
// now holds. It returns the ids unlocked by this call.
func CheckAll(st *State, cat Catalog, n Notifier) []string {
	agg := ComputeAggregates(st, cat)
	st.Prestige = agg.Prestige

	var unlocked []string
	for _, r := range achievementRules {
		if st.hasAchievement(r.id) || !r.met(st, agg) {
			continue
		}
		st.Achievements = append(st.Achievements, r.id)
		unlocked = append(unlocked, r.id)
		if n != nil {
			n.AchievementUnlocked(r.id)
		}
	}
	return unlocked
}
