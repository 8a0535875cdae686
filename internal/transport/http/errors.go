package httptransport

import (
	"errors"
	"net/http"

	"card-parlor/internal/game"
	"card-parlor/internal/table"

	"github.com/rs/zerolog/log"
)

var errInvalidJSON = errors.New("invalid_json")

// MapError turns a service or engine error into an HTTP status and the code
// clients see in {"error": code}.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, "invalid_json"
	case errors.Is(err, table.ErrGameNotFound):
		return http.StatusNotFound, "game_not_found"
	case errors.Is(err, game.ErrPlayerNotFound):
		return http.StatusNotFound, "player_not_found"
	case errors.Is(err, table.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, table.ErrNotHost):
		return http.StatusForbidden, "not_host"
	case errors.Is(err, game.ErrNotPlayersTurn):
		return http.StatusConflict, "not_players_turn"
	case errors.Is(err, game.ErrPlayerNotActionable):
		return http.StatusConflict, "player_not_actionable"
	case errors.Is(err, game.ErrGameNotWaiting):
		return http.StatusConflict, "game_not_waiting"
	case errors.Is(err, game.ErrGameNotActive):
		return http.StatusConflict, "game_not_active"
	case errors.Is(err, game.ErrGameNotCompleted):
		return http.StatusConflict, "game_not_completed"
	case errors.Is(err, game.ErrTableFull):
		return http.StatusConflict, "table_full"
	case errors.Is(err, game.ErrDuplicatePlayer):
		return http.StatusConflict, "duplicate_player"
	case errors.Is(err, game.ErrCannotCheck):
		return http.StatusBadRequest, "cannot_check"
	case errors.Is(err, game.ErrInvalidRaiseAmount):
		return http.StatusBadRequest, "invalid_raise_amount"
	case errors.Is(err, game.ErrInvalidActionType):
		return http.StatusBadRequest, "invalid_action_type"
	case errors.Is(err, game.ErrInvalidPlayerCount):
		return http.StatusBadRequest, "invalid_player_count"
	case errors.Is(err, game.ErrInvalidPlayerDetails):
		return http.StatusBadRequest, "invalid_player_details"
	case errors.Is(err, game.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, game.ErrUnsupportedGame):
		return http.StatusBadRequest, "unsupported_game"
	case errors.Is(err, game.ErrInsufficientCards):
		return http.StatusInternalServerError, "insufficient_cards"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := MapError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	WriteHTTPError(w, status, code)
}
