package store

import (
	"time"

	"card-parlor/internal/game"
)

// GameRecord is a stored snapshot. Version starts at 1 and grows by one with
// every accepted transition.
type GameRecord struct {
	ID        string
	Version   int64
	State     *game.TableState
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ActionRecord struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	Version    int64           `json:"version"`
	HandNumber int             `json:"hand_number"`
	PlayerID   string          `json:"player_id"`
	Type       game.ActionType `json:"type"`
	Amount     int64           `json:"amount"`
	ActedAt    time.Time       `json:"acted_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Presence struct {
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}
