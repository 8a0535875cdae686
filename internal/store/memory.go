package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"card-parlor/internal/game"
)

// Memory is the process-local store used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	games    map[string]GameRecord
	actions  map[string][]ActionRecord
	presence map[string]map[string]Presence
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		games:    map[string]GameRecord{},
		actions:  map[string][]ActionRecord{},
		presence: map[string]map[string]Presence{},
		now:      time.Now,
	}
}

func (m *Memory) Close() {}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateGame(_ context.Context, st *game.TableState) (GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[st.ID]; ok {
		return GameRecord{}, ErrAlreadyExists
	}
	now := m.now().UTC()
	rec := GameRecord{ID: st.ID, Version: 1, State: st.Clone(), CreatedAt: now, UpdatedAt: now}
	m.games[st.ID] = rec
	return copyRecord(rec), nil
}

func (m *Memory) GetGame(_ context.Context, id string) (GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return GameRecord{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) SaveGame(_ context.Context, st *game.TableState, expectedVersion int64, action *game.Action) (GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[st.ID]
	if !ok {
		return GameRecord{}, ErrNotFound
	}
	if cur.Version != expectedVersion {
		return GameRecord{}, ErrVersionConflict
	}
	now := m.now().UTC()
	rec := GameRecord{ID: st.ID, Version: cur.Version + 1, State: st.Clone(), CreatedAt: cur.CreatedAt, UpdatedAt: now}
	m.games[st.ID] = rec
	if action != nil {
		m.actions[st.ID] = append(m.actions[st.ID], ActionRecord{
			ID:         NewID(),
			GameID:     st.ID,
			Version:    rec.Version,
			HandNumber: st.HandNumber,
			PlayerID:   action.PlayerID,
			Type:       action.Type,
			Amount:     action.Amount,
			ActedAt:    action.Timestamp,
			CreatedAt:  now,
		})
	}
	return copyRecord(rec), nil
}

func (m *Memory) ListActions(_ context.Context, gameID string, limit int) ([]ActionRecord, error) {
	if limit <= 0 {
		limit = defaultActionLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.actions[gameID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]ActionRecord{}, all...), nil
}

func (m *Memory) SetPresence(_ context.Context, p Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[p.GameID]; !ok {
		return ErrNotFound
	}
	if m.presence[p.GameID] == nil {
		m.presence[p.GameID] = map[string]Presence{}
	}
	m.presence[p.GameID][p.PlayerID] = p
	return nil
}

func (m *Memory) ListPresence(_ context.Context, gameID string) ([]Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Presence, 0, len(m.presence[gameID]))
	for _, p := range m.presence[gameID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func copyRecord(r GameRecord) GameRecord {
	r.State = r.State.Clone()
	return r
}
