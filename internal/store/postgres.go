package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradequest/internal/db"
	"tradequest/internal/game"
)

// PostgresStore keeps saves as JSONB rows, for the hosted server.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := db.Connect(ctx, databaseURL, db.PoolOptions{})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, log: logger}, nil
}

func (s *PostgresStore) Load(ctx context.Context, slot string) (*game.State, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM saves WHERE slot = $1`, slot).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load save %s: %w", slot, err)
	}
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode save %s: %w", slot, err)
	}
	st.Normalize()
	return &st, nil
}

func (s *PostgresStore) Save(ctx context.Context, slot string, st *game.State) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode save %s: %w", slot, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO saves (slot, player, game_date, balance, deceased, data, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6::jsonb, now())
		ON CONFLICT (slot) DO UPDATE SET
			player = EXCLUDED.player,
			game_date = EXCLUDED.game_date,
			balance = EXCLUDED.balance,
			deceased = EXCLUDED.deceased,
			data = EXCLUDED.data,
			updated_at = now()`,
		slot, st.PlayerName(), st.CreatedAt, st.Balance.StringFixed(2), st.Deceased, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot, player, game_date, balance::text, deceased, updated_at
		FROM saves ORDER BY slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SlotInfo{}
	for rows.Next() {
		var info SlotInfo
		if err := rows.Scan(&info.Slot, &info.Player, &info.GameDate, &info.Balance, &info.Deceased, &info.UpdatedAt); err != nil {
			return nil, err
		}
		info.GameDate = info.GameDate.UTC()
		info.UpdatedAt = info.UpdatedAt.UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, slot)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
