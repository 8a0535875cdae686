package game

import (
	"errors"
	"time"
)

var (
	ErrInvalidPlayerCount   = errors.New("invalid_player_count")
	ErrNotPlayersTurn       = errors.New("not_players_turn")
	ErrPlayerNotActionable  = errors.New("player_not_actionable")
	ErrCannotCheck          = errors.New("cannot_check")
	ErrInvalidRaiseAmount   = errors.New("invalid_raise_amount")
	ErrInvalidActionType    = errors.New("invalid_action_type")
	ErrInsufficientCards    = errors.New("insufficient_cards")
	ErrDuplicateCard        = errors.New("duplicate_card")
	ErrInvalidConfig        = errors.New("invalid_config")
	ErrGameNotWaiting       = errors.New("game_not_waiting")
	ErrGameNotActive        = errors.New("game_not_active")
	ErrGameNotCompleted     = errors.New("game_not_completed")
	ErrPlayerNotFound       = errors.New("player_not_found")
	ErrDuplicatePlayer      = errors.New("duplicate_player")
	ErrTableFull            = errors.New("table_full")
	ErrUnsupportedGame      = errors.New("unsupported_game")
	ErrInvalidPlayerDetails = errors.New("invalid_player_details")
)

type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"
)

var actionTypes = []ActionType{ActionFold, ActionCheck, ActionCall, ActionRaise, ActionAllIn}

func ParseActionType(s string) (ActionType, error) {
	for _, t := range actionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidActionType
}

type Action struct {
	Type      ActionType `json:"type"`
	PlayerID  string     `json:"player_id"`
	Amount    int64      `json:"amount,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ValidateAction checks an action against s without changing anything.
func ValidateAction(s *TableState, a Action) error {
	if s.Status != GameActive {
		return ErrGameNotActive
	}
	idx := s.PlayerIndex(a.PlayerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	if idx != s.CurrentPlayerIndex {
		return ErrNotPlayersTurn
	}
	me := s.Players[idx]
	if me.Status != PlayerActive {
		return ErrPlayerNotActionable
	}
	switch a.Type {
	case ActionFold, ActionCall, ActionAllIn:
		return nil
	case ActionCheck:
		if me.CurrentBet < s.CurrentBet {
			return ErrCannotCheck
		}
		return nil
	case ActionRaise:
		if a.Amount <= 0 || a.Amount < s.CurrentBet*2 {
			return ErrInvalidRaiseAmount
		}
		return nil
	default:
		return ErrInvalidActionType
	}
}
