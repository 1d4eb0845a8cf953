package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest/internal/catalog"
)

func TestModifierCompoundsInAnyOrder(t *testing.T) {
	cat := testCatalog(t)
	ev := NewEventEngine(cat, DefaultTuning())

	for _, order := range [][]string{{"S_TECH_UP", "T_ACME_DOWN"}, {"T_ACME_DOWN", "S_TECH_UP"}} {
		st := newTestState(t, cat)
		for _, id := range order {
			_, err := ev.Trigger(st, id)
			require.NoError(t, err)
		}
		assert.InDelta(t, 1.045, ev.ModifierFor(st, "acme", "TECH"), 1e-9)
		assert.InDelta(t, 1.0, ev.ModifierFor(st, "COIN", "crypto"), 1e-9)
	}
}

func TestGlobalEventHitsEverySymbol(t *testing.T) {
	cat := testCatalog(t)
	ev := NewEventEngine(cat, DefaultTuning())
	st := newTestState(t, cat)

	_, err := ev.Trigger(st, "G_CRASH_01")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, ev.ModifierFor(st, "COIN", "crypto"), 1e-9)
	assert.InDelta(t, 0.9, ev.ModifierFor(st, "ANY", ""), 1e-9)
}

func TestProcessDayExpiresEvents(t *testing.T) {
	cat := testCatalog(t)
	ev := NewEventEngine(cat, DefaultTuning())
	st := newTestState(t, cat)
	st.EventCooldownDays = 2

	_, err := ev.Trigger(st, "T_ACME_DOWN") // two days
	require.NoError(t, err)
	_, err = ev.Trigger(st, "G_CRASH_01") // three days
	require.NoError(t, err)

	ev.ProcessDay(st)
	assert.Equal(t, []string{"T_ACME_DOWN", "G_CRASH_01"}, st.ActiveEventIDs())
	ev.ProcessDay(st)
	assert.Equal(t, []string{"G_CRASH_01"}, st.ActiveEventIDs())
	assert.Equal(t, 0, st.EventCooldownDays)
	ev.ProcessDay(st)
	assert.Empty(t, st.ActiveEventIDs())
	assert.Equal(t, 0, st.EventCooldownDays)
}

func TestRollRandomRespectsChance(t *testing.T) {
	cat := testCatalog(t)
	ev := NewEventEngine(cat, DefaultTuning())

	st := newTestState(t, cat)
	_, ok := ev.RollRandom(st, constRand(0.15))
	assert.False(t, ok)

	_, ok = ev.RollRandom(st, &seqRand{vals: []float64{0.05, 0.9}})
	require.True(t, ok)
	assert.Equal(t, []string{"S_TECH_UP"}, st.ActiveEventIDs())
	assert.Equal(t, 365, st.EventCooldownDays)
}

func TestRollRandomSkipsWhenEventActive(t *testing.T) {
	cat := testCatalog(t)
	ev := NewEventEngine(cat, DefaultTuning())
	st := newTestState(t, cat)
	st.ActiveEvents = []ActiveEvent{{Event: catalog.Event{ID: "X"}, Remaining: 4}}

	_, ok := ev.RollRandom(st, constRand(0))
	assert.False(t, ok)
	assert.Len(t, st.ActiveEvents, 1)
}
