// Package store persists save records by slot name.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"tradequest/internal/config"
	"tradequest/internal/game"
)

var (
	ErrNotFound    = errors.New("save not found")
	ErrInvalidSlot = errors.New("invalid slot name")
)

type SlotInfo struct {
	Slot      string    `json:"slot"`
	Player    string    `json:"player"`
	GameDate  time.Time `json:"game_date"`
	Balance   string    `json:"balance"`
	Deceased  bool      `json:"deceased"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	Load(ctx context.Context, slot string) (*game.State, error)
	Save(ctx context.Context, slot string, st *game.State) error
	List(ctx context.Context) ([]SlotInfo, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSlot keeps slot names safe to use as file names.
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

func infoOf(slot string, st *game.State, updated time.Time) SlotInfo {
	return SlotInfo{
		Slot:      slot,
		Player:    st.PlayerName(),
		GameDate:  st.CreatedAt,
		Balance:   st.Balance.StringFixed(2),
		Deceased:  st.Deceased,
		UpdatedAt: updated.UTC(),
	}
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileStore(cfg.Dir, cfg.Compress)
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
