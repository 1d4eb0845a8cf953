// Package slots binds save slots in a store to live engines.
package slots

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"tradequest/internal/catalog"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/store"
)

var ErrSlotExists = errors.New("slot already exists")

type Options struct {
	Tuning game.Tuning
	// Seed makes every slot's random source reproducible. Zero seeds from
	// the clock.
	Seed   int64
	Sink   notify.Sink
	Logger *slog.Logger
}

type Manager struct {
	store  store.Store
	cat    *catalog.Catalog
	tuning game.Tuning
	seed   int64
	sink   notify.Sink
	log    *slog.Logger

	mu      sync.Mutex
	engines map[string]*game.Engine
	// locks serializes Update per slot so saves land in mutation order.
	locks map[string]*sync.Mutex
}

func NewManager(st store.Store, cat *catalog.Catalog, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		store:   st,
		cat:     cat,
		tuning:  opts.Tuning.WithDefaults(),
		seed:    opts.Seed,
		sink:    opts.Sink,
		log:     opts.Logger,
		engines: map[string]*game.Engine{},
		locks:   map[string]*sync.Mutex{},
	}
}

func (m *Manager) Catalog() *catalog.Catalog {
	return m.cat
}

func (m *Manager) Store() store.Store {
	return m.store
}

func (m *Manager) randFor(slot string) game.RandomSource {
	seed := m.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(slot))
	return mathrand.New(mathrand.NewSource(seed ^ int64(h.Sum64())))
}

func (m *Manager) engineFor(slot string, st *game.State) *game.Engine {
	return game.NewEngine(st, m.cat, game.Options{
		Tuning: m.tuning,
		Rand:   m.randFor(slot),
		Logger: m.log.With("slot", slot),
		Notifier: notify.SlotNotifier{
			Slot:  slot,
			Sink:  m.sink,
			Title: m.cat.AchievementTitle,
		},
	})
}

// Create starts a new game in an empty slot and persists it.
func (m *Manager) Create(ctx context.Context, slot string, in game.NewGameInput) (*game.Engine, error) {
	if err := store.ValidateSlot(slot); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[slot]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotExists, slot)
	}
	if _, err := m.store.Load(ctx, slot); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotExists, slot)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	st, err := game.NewGame(in, m.cat, m.tuning)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, slot, st); err != nil {
		return nil, err
	}
	e := m.engineFor(slot, st)
	m.engines[slot] = e
	m.log.Info("game created", "slot", slot, "difficulty", st.Difficulty)
	return e, nil
}

// Open returns the cached engine for slot, loading it on first use.
func (m *Manager) Open(ctx context.Context, slot string) (*game.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[slot]; ok {
		return e, nil
	}
	st, err := m.store.Load(ctx, slot)
	if err != nil {
		return nil, err
	}
	e := m.engineFor(slot, st)
	m.engines[slot] = e
	return e, nil
}

// Update runs fn against the slot's engine and saves the result when fn
// succeeds. Engine actions reject before mutating, so a failed fn leaves
// nothing to persist.
func (m *Manager) Update(ctx context.Context, slot string, fn func(e *game.Engine) error) error {
	lock := m.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	e, err := m.Open(ctx, slot)
	if err != nil {
		return err
	}
	if err := fn(e); err != nil {
		return err
	}
	return m.store.Save(ctx, slot, e.Snapshot())
}

func (m *Manager) slotLock(slot string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[slot]
	if !ok {
		l = &sync.Mutex{}
		m.locks[slot] = l
	}
	return l
}

func (m *Manager) Delete(ctx context.Context, slot string) error {
	lock := m.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, slot); err != nil {
		return err
	}
	delete(m.engines, slot)
	return nil
}

// Forget drops the cached engine so the next Open reloads from the store.
func (m *Manager) Forget(slot string) {
	m.mu.Lock()
	delete(m.engines, slot)
	m.mu.Unlock()
}
