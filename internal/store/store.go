package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-parlor/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("not_found")
	ErrVersionConflict = errors.New("version_conflict")
	ErrAlreadyExists   = errors.New("already_exists")
)

const defaultActionLimit = 200

// Store keeps game snapshots, the action log and presence in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) CreateGame(ctx context.Context, st *game.TableState) (GameRecord, error) {
	blob, err := json.Marshal(st)
	if err != nil {
		return GameRecord{}, fmt.Errorf("encode game: %w", err)
	}
	rec := GameRecord{ID: st.ID, Version: 1, State: st.Clone()}
	err = s.Pool.QueryRow(ctx, `
		INSERT INTO games (id, game_type, status, host_id, hand_number, version, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at`,
		st.ID, string(st.Type), string(st.Status), st.HostID, st.HandNumber, blob, st.UpdatedAt,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameRecord{}, ErrAlreadyExists
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("insert game: %w", err)
	}
	return rec, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (GameRecord, error) {
	var (
		rec  GameRecord
		blob []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, version, state, created_at, updated_at FROM games WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Version, &blob, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return GameRecord{}, mapNotFound(err)
	}
	rec.State = &game.TableState{}
	if err := json.Unmarshal(blob, rec.State); err != nil {
		return GameRecord{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return rec, nil
}

// SaveGame replaces the snapshot if it is still at expectedVersion and, when
// action is set, records it at the new version in the same transaction.
func (s *Store) SaveGame(ctx context.Context, st *game.TableState, expectedVersion int64, action *game.Action) (GameRecord, error) {
	blob, err := json.Marshal(st)
	if err != nil {
		return GameRecord{}, fmt.Errorf("encode game: %w", err)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return GameRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec := GameRecord{ID: st.ID, State: st.Clone()}
	err = tx.QueryRow(ctx, `
		UPDATE games
		SET status = $2, host_id = $3, hand_number = $4, state = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $7
		RETURNING version, created_at, updated_at`,
		st.ID, string(st.Status), st.HostID, st.HandNumber, blob, st.UpdatedAt, expectedVersion,
	).Scan(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM games WHERE id = $1`, st.ID).Scan(&one); err != nil {
			return GameRecord{}, mapNotFound(err)
		}
		return GameRecord{}, ErrVersionConflict
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("update game: %w", err)
	}

	if action != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO game_actions (id, game_id, version, hand_number, player_id, action_type, amount, acted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			NewID(), st.ID, rec.Version, st.HandNumber, action.PlayerID, string(action.Type), action.Amount, action.Timestamp,
		)
		if err != nil {
			return GameRecord{}, fmt.Errorf("insert action: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return GameRecord{}, err
	}
	return rec, nil
}

// ListActions returns the most recent limit actions of a game, oldest first.
func (s *Store) ListActions(ctx context.Context, gameID string, limit int) ([]ActionRecord, error) {
	if limit <= 0 {
		limit = defaultActionLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, game_id, version, hand_number, player_id, action_type, amount, acted_at, created_at
		FROM (
			SELECT * FROM game_actions WHERE game_id = $1 ORDER BY version DESC LIMIT $2
		) recent
		ORDER BY version ASC`, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ActionRecord{}
	for rows.Next() {
		var (
			r   ActionRecord
			typ string
		)
		if err := rows.Scan(&r.ID, &r.GameID, &r.Version, &r.HandNumber, &r.PlayerID, &typ, &r.Amount, &r.ActedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Type = game.ActionType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SetPresence(ctx context.Context, p Presence) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO game_presence (game_id, player_id, online, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id, player_id) DO UPDATE SET online = EXCLUDED.online, last_seen = EXCLUDED.last_seen`,
		p.GameID, p.PlayerID, p.Online, p.LastSeen,
	)
	return err
}

func (s *Store) ListPresence(ctx context.Context, gameID string) ([]Presence, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT game_id, player_id, online, last_seen FROM game_presence
		WHERE game_id = $1 ORDER BY player_id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Presence{}
	for rows.Next() {
		var p Presence
		if err := rows.Scan(&p.GameID, &p.PlayerID, &p.Online, &p.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
