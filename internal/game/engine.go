package game

import (
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"tradequest/internal/catalog"
)

// Catalog is the read-only game data the engine consults.
// *catalog.Catalog implements it.
type Catalog interface {
	Job(id string) (catalog.Job, bool)
	Course(id string) (catalog.Course, bool)
	Property(id string) (catalog.Property, bool)
	Vehicle(id string) (catalog.Vehicle, bool)
	Valuable(id string) (catalog.Valuable, bool)
	Event(id string) (catalog.Event, bool)
	EventList() []catalog.Event
	LoanOffer(id string) (catalog.LoanOffer, bool)
	MarketSeed() []catalog.Symbol
}

type Phase int

const (
	PhaseRunning Phase = iota
	PhaseFrozen
	PhaseTerminal
)

var phaseNames = map[Phase]string{
	PhaseRunning:  "running",
	PhaseFrozen:   "frozen",
	PhaseTerminal: "terminal",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range phaseNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

var allowedTransitions = map[Phase][]Phase{
	PhaseRunning:  {PhaseFrozen, PhaseTerminal},
	PhaseFrozen:   {PhaseRunning, PhaseTerminal},
	PhaseTerminal: nil,
}

var errBadTransition = errors.New("illegal phase transition")

type Options struct {
	Tuning   Tuning
	Rand     RandomSource
	Logger   *slog.Logger
	Notifier Notifier
}

// Engine drives one save. Public methods are serialized.
type Engine struct {
	mu       sync.Mutex
	st       *State
	cat      Catalog
	tuning   Tuning
	events   EventEngine
	rand     RandomSource
	log      *slog.Logger
	notifier Notifier
	phase    Phase
}

func NewEngine(st *State, cat Catalog, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	st.Normalize()
	tuning := opts.Tuning.WithDefaults()
	e := &Engine{
		st:       st,
		cat:      cat,
		tuning:   tuning,
		events:   NewEventEngine(cat, tuning),
		rand:     opts.Rand,
		log:      opts.Logger,
		notifier: opts.Notifier,
	}
	e.phase = derivePhase(st)
	return e
}

func derivePhase(st *State) Phase {
	switch {
	case st.Deceased:
		return PhaseTerminal
	case st.Balance.IsNegative():
		return PhaseFrozen
	default:
		return PhaseRunning
	}
}

func (e *Engine) transition(to Phase) error {
	if e.phase == to {
		return nil
	}
	for _, allowed := range allowedTransitions[e.phase] {
		if allowed == to {
			e.log.Info("phase changed", "from", e.phase.String(), "to", to.String())
			e.phase = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", errBadTransition, e.phase, to)
}

// syncPhase moves between running and frozen after the balance changed.
func (e *Engine) syncPhase() {
	if e.phase == PhaseTerminal {
		return
	}
	if e.st.Balance.IsNegative() {
		_ = e.transition(PhaseFrozen)
		return
	}
	_ = e.transition(PhaseRunning)
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Snapshot returns a deep copy of the current save.
func (e *Engine) Snapshot() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Clone()
}

// View is a consistent read of the engine for dashboards.
type View struct {
	Phase      Phase
	Aggregates Aggregates
	State      *State
}

// View reads phase, aggregates and a state copy under one lock.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		Phase:      e.phase,
		Aggregates: ComputeAggregates(e.st, e.cat),
		State:      e.st.Clone(),
	}
}

func (e *Engine) Tuning() Tuning {
	return e.tuning
}

type AdvanceResult struct {
	Hours           int               `json:"hours"`
	Days            int               `json:"days"`
	CourseCompleted string            `json:"course_completed,omitempty"`
	Settlement      *SettlementReport `json:"settlement,omitempty"`
	TriggeredEvent  *catalog.Event    `json:"triggered_event,omitempty"`
	Unlocked        []string          `json:"unlocked,omitempty"`
	Died            bool              `json:"died"`
	Estate          *EstateReport     `json:"estate,omitempty"`
	Phase           Phase             `json:"phase"`
}

// Advance moves the clock forward. Whole days are simulated one at a time;
// a call of a month or more also settles finances once and may start a
// random event.
func (e *Engine) Advance(hours int) (AdvanceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := AdvanceResult{Phase: e.phase}
	if e.phase == PhaseTerminal {
		return res, ErrGameOver
	}
	if hours <= 0 {
		return res, ErrInvalidHours
	}
	if e.st.Balance.IsNegative() {
		_ = e.transition(PhaseFrozen)
		e.log.Warn("advance rejected", "balance", e.st.Balance.String())
		res.Phase = e.phase
		return res, ErrAccountFrozen
	}

	if hours >= HoursPerDay {
		days := hours / HoursPerDay
		for range days {
			e.st.CreatedAt = e.st.CreatedAt.Add(HoursPerDay * time.Hour)
			e.events.ProcessDay(e.st)
			AdvanceMarketOneDay(e.st, e.tuning, e.rand, e.st.CreatedAt, e.events.modifier(e.st))
			res.Days++
			if rollDeath(e.st, e.tuning, e.rand) {
				res.Hours = res.Days * HoursPerDay
				res.Died = true
				res.Estate = e.die()
				res.Phase = e.phase
				return res, nil
			}
		}
		if rest := hours % HoursPerDay; rest > 0 {
			e.st.CreatedAt = e.st.CreatedAt.Add(time.Duration(rest) * time.Hour)
		}
	} else {
		e.st.CreatedAt = e.st.CreatedAt.Add(time.Duration(hours) * time.Hour)
	}
	res.Hours = hours

	res.CourseCompleted = e.progressCourse(hours)

	if hours >= HoursPerMonth {
		rep := Settle(e.st, e.cat, e.tuning)
		res.Settlement = &rep
		e.log.Info("month settled",
			"date", e.st.CreatedAt.Format(dateLayout),
			"salary", rep.Salary.String(),
			"upkeep", rep.Upkeep.String(),
			"loans", rep.Loans.String(),
			"dividends", rep.Dividends.String(),
			"balance", e.st.Balance.String(),
		)
		if ev, ok := e.events.RollRandom(e.st, e.rand); ok {
			res.TriggeredEvent = &ev
			e.log.Info("random event started", "event", ev.ID, "duration", ev.Duration)
		}
	}

	res.Unlocked = CheckAll(e.st, e.cat, e.notifier)
	e.syncPhase()
	res.Phase = e.phase
	return res, nil
}

func (e *Engine) progressCourse(hours int) string {
	c := e.st.ActiveCourse
	if c == nil {
		return ""
	}
	c.RemainingHours -= hours
	if c.RemainingHours > 0 {
		return ""
	}
	e.st.CompletedCourses = appendUnique(e.st.CompletedCourses, c.ID)
	e.st.ActiveCourse = nil
	e.log.Info("course completed", "course", c.ID)
	return c.ID
}

func (e *Engine) die() *EstateReport {
	estate := ValueEstate(e.st, e.cat)
	e.st.Deceased = true
	e.st.Estate = &estate
	e.st.Prestige = estate.Prestige
	_ = e.transition(PhaseTerminal)
	e.log.Info("player died",
		"date", e.st.CreatedAt.Format(dateLayout),
		"age", estate.Age,
		"net_worth", estate.NetWorth.String(),
	)
	return &estate
}

// TriggerEvent starts a catalogue event by id, matching case-insensitively.
func (e *Engine) TriggerEvent(id string) (catalog.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseTerminal {
		return catalog.Event{}, ErrGameOver
	}
	ev, err := e.events.Trigger(e.st, id)
	if err != nil {
		return ev, err
	}
	e.log.Info("event triggered", "event", ev.ID, "duration", ev.Duration)
	return ev, nil
}

type DeathCheck struct {
	Age          int           `json:"age"`
	AnnualChance float64       `json:"annual_chance"`
	DailyChance  float64       `json:"daily_chance"`
	Died         bool          `json:"died"`
	Estate       *EstateReport `json:"estate,omitempty"`
}

// CheckDeathChance performs one mortality draw outside the daily loop.
func (e *Engine) CheckDeathChance() (DeathCheck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseTerminal {
		return DeathCheck{}, ErrGameOver
	}
	age := MortalityAge(e.st.CreatedAt, e.st.DateOfBirth)
	out := DeathCheck{
		Age:          age,
		AnnualChance: e.tuning.AnnualDeathChance(age),
		DailyChance:  e.tuning.DailyDeathChance(age),
	}
	if rollDeath(e.st, e.tuning, e.rand) {
		out.Died = true
		out.Estate = e.die()
	}
	return out, nil
}

// CheckAchievements re-evaluates achievements without advancing time.
func (e *Engine) CheckAchievements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CheckAll(e.st, e.cat, e.notifier)
}

// Aggregates exposes the dashboard figures for the current state.
func (e *Engine) Aggregates() Aggregates {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeAggregates(e.st, e.cat)
}
