package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tradequest/internal/game"
)

type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db, log: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("sqlite store opened", "path", path)
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot       TEXT PRIMARY KEY,
			player     TEXT NOT NULL DEFAULT '',
			game_date  INTEGER NOT NULL,
			balance    TEXT NOT NULL DEFAULT '0',
			deceased   INTEGER NOT NULL DEFAULT 0,
			data       TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, slot string) (*game.State, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load save %s: %w", slot, err)
	}
	var st game.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode save %s: %w", slot, err)
	}
	st.Normalize()
	return &st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, slot string, st *game.State) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode save %s: %w", slot, err)
	}
	deceased := 0
	if st.Deceased {
		deceased = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saves (slot, player, game_date, balance, deceased, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			player = excluded.player,
			game_date = excluded.game_date,
			balance = excluded.balance,
			deceased = excluded.deceased,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		slot, st.PlayerName(), st.CreatedAt.Unix(), st.Balance.StringFixed(2), deceased, string(raw), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, player, game_date, balance, deceased, updated_at
		FROM saves ORDER BY slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SlotInfo{}
	for rows.Next() {
		var (
			info              SlotInfo
			gameDate, updated int64
			deceased          int
		)
		if err := rows.Scan(&info.Slot, &info.Player, &gameDate, &info.Balance, &deceased, &updated); err != nil {
			return nil, err
		}
		info.GameDate = time.Unix(gameDate, 0).UTC()
		info.UpdatedAt = time.Unix(0, updated).UTC()
		info.Deceased = deceased != 0
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
