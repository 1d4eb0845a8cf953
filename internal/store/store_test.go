package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest/internal/catalog"
	"tradequest/internal/config"
	"tradequest/internal/game"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleState(t *testing.T) *game.State {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	st, err := game.NewGame(game.NewGameInput{
		PlayerName:    "Grace",
		PlayerSurname: "Hopper",
		DateOfBirth:   game.NewDate(1990, time.June, 1),
		Start:         time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}, cat, game.DefaultTuning())
	require.NoError(t, err)
	st.SetExtraString("knowledge_level", "3")
	return st
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	st := sampleState(t)

	_, err := s.Load(ctx, "main")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Save(ctx, "../escape", st), ErrInvalidSlot)

	require.NoError(t, s.Save(ctx, "main", st))
	got, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(st.Balance))
	assert.Equal(t, "Grace Hopper", got.PlayerName())
	assert.Equal(t, "3", got.ExtraString("knowledge_level"))
	assert.Equal(t, st.DateOfBirth, got.DateOfBirth)
	assert.Len(t, got.Market[game.ClassStocks], len(st.Market[game.ClassStocks]))

	st.Deceased = true
	require.NoError(t, s.Save(ctx, "main", st))
	require.NoError(t, s.Save(ctx, "alt", sampleState(t)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alt", list[0].Slot)
	assert.Equal(t, "main", list[1].Slot)
	assert.True(t, list[1].Deceased)
	assert.Equal(t, "10000.00", list[0].Balance)
	assert.True(t, list[0].GameDate.Equal(st.CreatedAt))

	require.NoError(t, s.Delete(ctx, "alt"))
	require.ErrorIs(t, s.Delete(ctx, "alt"), ErrNotFound)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStoreCompressed(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, true)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	_, err = os.Stat(filepath.Join(dir, "main.json.zst"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "main.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreSwitchesFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	plain, err := NewFileStore(dir, false)
	require.NoError(t, err)
	defer plain.Close()
	require.NoError(t, plain.Save(ctx, "main", sampleState(t)))

	zst, err := NewFileStore(dir, true)
	require.NoError(t, err)
	defer zst.Close()
	st, err := zst.Load(ctx, "main")
	require.NoError(t, err)
	require.NoError(t, zst.Save(ctx, "main", st))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "main.json.zst", entries[0].Name())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "tq.db"), quietLogger())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TQ_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TQ_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	for _, slot := range []string{"main", "alt"} {
		_ = s.Delete(ctx, slot)
	}
	exerciseStore(t, s)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "a", "b.db")}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "tape"}, nil)
	require.Error(t, err)
}

func TestValidateSlot(t *testing.T) {
	for _, ok := range []string{"main", "save_2", "A-b"} {
		if err := ValidateSlot(ok); err != nil {
			t.Fatalf("slot %q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a/b", "..", "white space"} {
		if err := ValidateSlot(bad); err == nil {
			t.Fatalf("slot %q accepted", bad)
		}
	}
}
