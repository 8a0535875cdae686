package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"card-parlor/internal/game"
	"card-parlor/internal/table"

	"github.com/go-chi/chi/v5"
)

type GameHandlers struct {
	svc *table.Service
}

func NewGameHandlers(svc *table.Service) *GameHandlers {
	return &GameHandlers{svc: svc}
}

type createGameRequest struct {
	Type          game.GameType `json:"type"`
	HostID        string        `json:"host_id"`
	HostName      string        `json:"host_name"`
	SmallBlind    int64         `json:"small_blind"`
	BigBlind      int64         `json:"big_blind"`
	StartingChips int64         `json:"starting_chips"`
}

type joinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type hostRequest struct {
	PlayerID string `json:"player_id"`
}

type actionRequest struct {
	PlayerID  string    `json:"player_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type presenceRequest struct {
	Online bool `json:"online"`
}

func decode(r *http.Request, v any, optional bool) error {
	if optional && r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

func (h *GameHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, err)
			return
		}
		rec, err := h.svc.CreateGame(r.Context(), table.CreateGameInput{
			Type:          req.Type,
			Host:          game.Seat{ID: req.HostID, Name: req.HostName},
			SmallBlind:    req.SmallBlind,
			BigBlind:      req.BigBlind,
			StartingChips: req.StartingChips,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		h.respond(w, r, http.StatusCreated, rec.ID, req.HostID)
	}
}

// Get returns the public view, or the seated player's own view with
// ?player_id=.
func (h *GameHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, http.StatusOK, chi.URLParam(r, "game_id"), r.URL.Query().Get("player_id"))
	}
}

func (h *GameHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, err)
			return
		}
		gameID := chi.URLParam(r, "game_id")
		if _, err := h.svc.Join(r.Context(), gameID, game.Seat{ID: req.PlayerID, Name: req.Name}); err != nil {
			writeError(w, err)
			return
		}
		h.respond(w, r, http.StatusOK, gameID, req.PlayerID)
	}
}

func (h *GameHandlers) Leave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		if _, err := h.svc.Leave(r.Context(), gameID, chi.URLParam(r, "player_id")); err != nil {
			writeError(w, err)
			return
		}
		h.respond(w, r, http.StatusOK, gameID, "")
	}
}

func (h *GameHandlers) Start() http.HandlerFunc {
	return h.hostOnly(func(r *http.Request, gameID, playerID string) error {
		_, err := h.svc.Start(r.Context(), gameID, playerID)
		return err
	})
}

func (h *GameHandlers) NextHand() http.HandlerFunc {
	return h.hostOnly(func(r *http.Request, gameID, playerID string) error {
		_, err := h.svc.NextHand(r.Context(), gameID, playerID)
		return err
	})
}

func (h *GameHandlers) hostOnly(run func(r *http.Request, gameID, playerID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hostRequest
		if err := decode(r, &req, true); err != nil {
			writeError(w, err)
			return
		}
		gameID := chi.URLParam(r, "game_id")
		if err := run(r, gameID, req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		h.respond(w, r, http.StatusOK, gameID, req.PlayerID)
	}
}

func (h *GameHandlers) SubmitAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, err)
			return
		}
		typ, err := game.ParseActionType(req.Type)
		if err != nil {
			writeError(w, err)
			return
		}
		gameID := chi.URLParam(r, "game_id")
		a := game.Action{Type: typ, PlayerID: req.PlayerID, Amount: req.Amount, Timestamp: req.Timestamp}
		if _, err := h.svc.Act(r.Context(), gameID, a); err != nil {
			writeError(w, err)
			return
		}
		h.respond(w, r, http.StatusOK, gameID, req.PlayerID)
	}
}

func (h *GameHandlers) ListActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.Actions(r.Context(), chi.URLParam(r, "game_id"), ParseLimit(r, 200))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *GameHandlers) ListPresence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.Presence(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *GameHandlers) SetPresence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req presenceRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, err)
			return
		}
		p, err := h.svc.SetPresence(r.Context(), chi.URLParam(r, "game_id"), chi.URLParam(r, "player_id"), req.Online)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// respond writes the current view of the game, personalised when playerID is
// seated.
func (h *GameHandlers) respond(w http.ResponseWriter, r *http.Request, status int, gameID, playerID string) {
	if playerID != "" {
		view, err := h.svc.PlayerView(r.Context(), gameID, playerID)
		if err == nil {
			writeJSON(w, status, view)
			return
		}
		if r.Method == http.MethodGet {
			writeError(w, err)
			return
		}
	}
	view, err := h.svc.PublicView(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}
