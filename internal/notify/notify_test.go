package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Push(Toast{Achievement: "a"}))
	assert.True(t, q.Push(Toast{Achievement: "b"}))
	assert.False(t, q.Push(Toast{Achievement: "c"}))
	assert.Equal(t, int64(1), q.Dropped())

	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Achievement)
	assert.Empty(t, q.Drain())
}

func TestSlotNotifierUsesTitle(t *testing.T) {
	q := NewQueue(4)
	at := time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC)
	n := SlotNotifier{
		Slot:  "main",
		Sink:  q,
		Title: func(id string) string { return "Title of " + id },
		Now:   func() time.Time { return at },
	}
	n.AchievementUnlocked("millionaire")

	got := q.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0].Slot)
	assert.Equal(t, "Title of millionaire", got[0].Title)
	assert.Equal(t, at, got[0].At)
	assert.NotEmpty(t, got[0].ID)

	SlotNotifier{}.AchievementUnlocked("ignored")
}

func TestHubFiltersBySlot(t *testing.T) {
	h := NewHub(4)
	all, cancelAll := h.Subscribe("")
	one, cancelOne := h.Subscribe("one")
	defer cancelAll()

	h.Push(Toast{Slot: "one"})
	h.Push(Toast{Slot: "two"})
	assert.Len(t, all.Drain(), 2)
	assert.Len(t, one.Drain(), 1)

	cancelOne()
	assert.Equal(t, 1, h.Subscribers())
	assert.False(t, NewHub(1).Push(Toast{}))
}

func TestOutboxRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outbox.json")

	got, err := LoadOutbox(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, AppendOutbox(path, Toast{Achievement: "a"}))
	require.NoError(t, AppendOutbox(path, Toast{Achievement: "b"}, Toast{Achievement: "c"}))

	got, err = TakeOutbox(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Achievement)

	got, err = LoadOutbox(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
