package game

import (
	"fmt"
	"strings"

	"tradequest/internal/catalog"
)

// EventEngine owns the rules for world events. The active list itself lives
// in State so it survives save/load.
type EventEngine struct {
	cat    Catalog
	tuning Tuning
}

func NewEventEngine(cat Catalog, tuning Tuning) EventEngine {
	return EventEngine{cat: cat, tuning: tuning.WithDefaults()}
}

// Trigger activates an event by id. Triggering an already active event is a
// no-op that reports ErrEventActive.
func (e EventEngine) Trigger(st *State, id string) (catalog.Event, error) {
	ev, ok := e.cat.Event(id)
	if !ok {
		return catalog.Event{}, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	if st.eventActive(ev.ID) {
		return ev, fmt.Errorf("%w: %s", ErrEventActive, ev.ID)
	}
	st.ActiveEvents = append(st.ActiveEvents, ActiveEvent{Event: ev, Remaining: ev.Duration})
	return ev, nil
}

// ProcessDay ages every active event by one day and drops the expired ones.
func (e EventEngine) ProcessDay(st *State) {
	kept := st.ActiveEvents[:0]
	for _, a := range st.ActiveEvents {
		a.Remaining--
		if a.Remaining > 0 {
			kept = append(kept, a)
		}
	}
	st.ActiveEvents = kept
	if st.EventCooldownDays > 0 {
		st.EventCooldownDays--
	}
}

// ModifierFor multiplies the impacts of every active event that matches.
func (e EventEngine) ModifierFor(st *State, symbol, sector string) float64 {
	modifier := 1.0
	for _, a := range st.ActiveEvents {
		ev := a.Event
		switch ev.TargetType {
		case catalog.TargetGlobal:
			modifier *= ev.Impact
		case catalog.TargetSector:
			if strings.EqualFold(ev.TargetID, sector) {
				modifier *= ev.Impact
			}
		case catalog.TargetSingle:
			if strings.EqualFold(ev.TargetID, symbol) {
				modifier *= ev.Impact
			}
		}
	}
	return modifier
}

func (e EventEngine) modifier(st *State) ModifierFunc {
	return func(symbol, sector string) float64 {
		return e.ModifierFor(st, symbol, sector)
	}
}

// RollRandom runs the monthly random-event policy: only when nothing is
// active and the cooldown has run out.
func (e EventEngine) RollRandom(st *State, rng RandomSource) (catalog.Event, bool) {
	if len(st.ActiveEvents) > 0 || st.EventCooldownDays > 0 {
		return catalog.Event{}, false
	}
	if rng.Float64() >= e.tuning.RandomEventChance {
		return catalog.Event{}, false
	}
	ev, ok := pickWeighted(e.cat.EventList(), rng.Float64())
	if !ok {
		return catalog.Event{}, false
	}
	st.ActiveEvents = append(st.ActiveEvents, ActiveEvent{Event: ev, Remaining: ev.Duration})
	st.EventCooldownDays = e.tuning.RandomEventCooldownDays
	return ev, true
}

func pickWeighted(events []catalog.Event, seed float64) (catalog.Event, bool) {
	total := 0.0
	for _, ev := range events {
		if ev.Weight > 0 {
			total += ev.Weight
		}
	}
	if total <= 0 {
		return catalog.Event{}, false
	}
	target := seed * total
	for _, ev := range events {
		if ev.Weight <= 0 {
			continue
		}
		if target < ev.Weight {
			return ev, true
		}
		target -= ev.Weight
	}
	// seed rounding can leave target at the upper edge
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Weight > 0 {
			return events[i], true
		}
	}
	return catalog.Event{}, false
}

func (s *State) ActiveEventIDs() []string {
	ids := make([]string, 0, len(s.ActiveEvents))
	for _, a := range s.ActiveEvents {
		ids = append(ids, a.Event.ID)
	}
	return ids
}
