package slots

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest/internal/catalog"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/store"
)

func newManager(t *testing.T, sink notify.Sink) (*Manager, store.Store) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	st, err := store.NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewManager(st, cat, Options{
		Seed:   99,
		Sink:   sink,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}), st
}

var input = game.NewGameInput{
	PlayerName:  "Alan",
	DateOfBirth: game.NewDate(1995, time.April, 2),
	Start:       time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
}

func TestCreateOpenUpdate(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t, nil)

	_, err := m.Create(ctx, "main", input)
	require.NoError(t, err)
	_, err = m.Create(ctx, "main", input)
	require.ErrorIs(t, err, ErrSlotExists)

	require.NoError(t, m.Update(ctx, "main", func(e *game.Engine) error {
		_, err := e.Advance(game.HoursPerDay)
		return err
	}))

	saved, err := st.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, input.Start.Add(24*time.Hour), saved.CreatedAt)

	m.Forget("main")
	e, err := m.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, saved.CreatedAt, e.Snapshot().CreatedAt)
}

func TestUpdateDoesNotSaveFailures(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t, nil)
	_, err := m.Create(ctx, "main", input)
	require.NoError(t, err)

	err = m.Update(ctx, "main", func(e *game.Engine) error {
		_, err := e.Advance(0)
		return err
	})
	require.ErrorIs(t, err, game.ErrInvalidHours)

	saved, err := st.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, input.Start, saved.CreatedAt)
}

func TestSeededSlotsReplay(t *testing.T) {
	ctx := context.Background()
	run := func() *game.State {
		m, _ := newManager(t, nil)
		e, err := m.Create(ctx, "main", input)
		require.NoError(t, err)
		_, err = e.Advance(10 * game.HoursPerDay)
		require.NoError(t, err)
		return e.Snapshot()
	}
	a, b := run(), run()
	assert.Equal(t, a.Market, b.Market)
}

func TestAchievementsReachSink(t *testing.T) {
	ctx := context.Background()
	q := notify.NewQueue(8)
	m, _ := newManager(t, q)
	_, err := m.Create(ctx, "main", input)
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "main", func(e *game.Engine) error {
		return e.BuyVehicle("veh_01")
	}))
	var ride *notify.Toast
	for _, toast := range q.Drain() {
		if toast.Achievement == "first_ride" {
			ride = &toast
		}
	}
	require.NotNil(t, ride)
	assert.Equal(t, "main", ride.Slot)
	assert.Equal(t, "First Ride", ride.Title)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)
	_, err := m.Create(ctx, "main", input)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "main"))
	_, err = m.Open(ctx, "main")
	require.ErrorIs(t, err, store.ErrNotFound)
}

// slowStore widens the window between snapshot and write and records the
// clock of every save in write order.
type slowStore struct {
	store.Store
	mu    sync.Mutex
	saved []time.Time
}

func (s *slowStore) Save(ctx context.Context, slot string, st *game.State) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, st.CreatedAt)
	return s.Store.Save(ctx, slot, st)
}

func TestConcurrentUpdatesSaveInOrder(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.Default()
	require.NoError(t, err)
	fs, err := store.NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	slow := &slowStore{Store: fs}
	m := NewManager(slow, cat, Options{Seed: 7, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	_, err = m.Create(ctx, "main", input)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Update(ctx, "main", func(e *game.Engine) error {
				_, err := e.Advance(1)
				return err
			}))
		}()
	}
	wg.Wait()

	want := input.Start.Add(workers * time.Hour)
	saved, err := fs.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, want, saved.CreatedAt)

	// The first entry is the save from Create.
	require.Len(t, slow.saved, workers+1)
	for i := 1; i < len(slow.saved); i++ {
		assert.True(t, slow.saved[i].After(slow.saved[i-1]), "save %d went backwards", i)
	}
}
