package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-parlor/internal/config"
	"card-parlor/internal/game"
	"card-parlor/internal/game/viewmodel"
	"card-parlor/internal/store"
	"card-parlor/internal/table"
)

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{})
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected /healthz 200, got %d", w.Code)
	}
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{})
	id := seatedGame(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/games/"+id+"/start", map[string]any{"player_id": "guest"})
	if w.Code != http.StatusForbidden || errorCode(t, w) != "not_host" {
		t.Fatalf("expected 403 not_host, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/start", map[string]any{"player_id": "host"})
	if w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	started := decodeBody[viewmodel.PlayerStateView](t, w)
	if started.Status != "active" || len(started.MyHoleCards) != 2 || started.Pot != 30 {
		t.Fatalf("unexpected started view %+v", started)
	}
	if len(started.Seats[1].HoleCards) != 0 {
		t.Fatal("guest cards visible to host")
	}

	w = doJSON(t, router, http.MethodGet, "/api/games/"+id, nil)
	public := decodeBody[viewmodel.PublicStateView](t, w)
	for _, s := range public.Seats {
		if len(s.HoleCards) != 0 {
			t.Fatal("public view leaked cards")
		}
	}

	// heads-up: the host deals and posts the big blind, the guest acts first
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/actions", map[string]any{"player_id": "host", "type": "call"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "not_players_turn" {
		t.Fatalf("expected 409 not_players_turn, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/actions", map[string]any{"player_id": "guest", "type": "bet"})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_action_type" {
		t.Fatalf("expected 400 invalid_action_type, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/actions", map[string]any{"player_id": "guest", "type": "raise", "amount": 30})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_raise_amount" {
		t.Fatalf("expected 400 invalid_raise_amount, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/actions", map[string]any{"player_id": "guest", "type": "fold"})
	if w.Code != http.StatusOK {
		t.Fatalf("fold: %d %s", w.Code, w.Body.String())
	}
	done := decodeBody[viewmodel.PlayerStateView](t, w)
	if done.Status != "completed" || done.Result == nil || !done.Result.Uncontested {
		t.Fatalf("unexpected result view %+v", done)
	}

	w = doJSON(t, router, http.MethodGet, "/api/games/"+id+"/actions", nil)
	actions := decodeBody[struct{ Items []store.ActionRecord }](t, w)
	if len(actions.Items) != 1 || actions.Items[0].Type != game.ActionFold {
		t.Fatalf("unexpected action log %+v", actions.Items)
	}

	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/next-hand", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("next hand: %d %s", w.Code, w.Body.String())
	}
	next := decodeBody[viewmodel.PublicStateView](t, w)
	if next.HandNumber != 2 || next.DealerSeat != 1 {
		t.Fatalf("unexpected next hand %+v", next)
	}
}

func TestJoinAndLeaveOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{})
	id := seatedGame(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/games/"+id+"/players", map[string]any{"player_id": "guest"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "duplicate_player" {
		t.Fatalf("expected 409 duplicate_player, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/api/games/"+id+"/players/guest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leave: %d %s", w.Code, w.Body.String())
	}
	if v := decodeBody[viewmodel.PublicStateView](t, w); len(v.Seats) != 1 {
		t.Fatalf("expected one seat left, got %d", len(v.Seats))
	}
	w = doJSON(t, router, http.MethodPost, "/api/games/"+id+"/start", nil)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_player_count" {
		t.Fatalf("expected 400 invalid_player_count, got %d", w.Code)
	}
}

func TestPresenceOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{})
	id := seatedGame(t, router)

	w := doJSON(t, router, http.MethodPut, "/api/games/"+id+"/presence/guest", map[string]any{"online": true})
	if w.Code != http.StatusOK {
		t.Fatalf("presence: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPut, "/api/games/"+id+"/presence/ghost", map[string]any{"online": true})
	if w.Code != http.StatusNotFound || errorCode(t, w) != "player_not_found" {
		t.Fatalf("expected 404 player_not_found, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/games/"+id+"/presence", nil)
	items := decodeBody[struct{ Items []store.Presence }](t, w).Items
	if len(items) != 1 || items[0].PlayerID != "guest" || !items[0].Online {
		t.Fatalf("unexpected presence %+v", items)
	}
	w = doJSON(t, router, http.MethodGet, "/api/games/"+id, nil)
	if v := decodeBody[viewmodel.PublicStateView](t, w); !v.Seats[1].Online {
		t.Fatal("seat should show online")
	}
}

func TestErrorResponsesAreJSON(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{})

	w := doJSON(t, router, http.MethodPost, "/api/games", "{")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_json" {
		t.Fatalf("expected 400 invalid_json, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/games/missing", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "game_not_found" {
		t.Fatalf("expected 404 game_not_found, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/games", map[string]any{"host_id": "h", "type": "blackjack"})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "unsupported_game" {
		t.Fatalf("expected 400 unsupported_game, got %d", w.Code)
	}
	id := seatedGame(t, router)
	w = doJSON(t, router, http.MethodGet, "/api/games/"+id+"?player_id=ghost", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "player_not_found" {
		t.Fatalf("expected 404 player_not_found, got %d", w.Code)
	}
}

func TestDebugVarsRequireAdminKey(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{AdminAPIKey: "admin-key"})

	w := doJSON(t, router, http.MethodGet, "/api/debug/vars", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	req.Header.Set("X-Admin-Key", "admin-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	vars := decodeBody[map[string]any](t, rec)
	if _, ok := vars["actions_applied_total"]; !ok {
		t.Fatal("expected service counters in debug vars")
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{table.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
		{table.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{fmt.Errorf("save game: %w", table.ErrVersionConflict), http.StatusConflict, "version_conflict"},
		{game.ErrCannotCheck, http.StatusBadRequest, "cannot_check"},
		{game.ErrGameNotActive, http.StatusConflict, "game_not_active"},
		{game.ErrTableFull, http.StatusConflict, "table_full"},
		{game.ErrInsufficientCards, http.StatusInternalServerError, "insufficient_cards"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, code := MapError(tt.err)
		if status != tt.status || code != tt.code {
			t.Fatalf("MapError(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestParseLimit(t *testing.T) {
	for q, want := range map[string]int{"": 200, "?limit=5": 5, "?limit=0": 1, "?limit=9999": 500, "?limit=x": 200} {
		req := httptest.NewRequest(http.MethodGet, "/x"+q, nil)
		if got := ParseLimit(req, 200); got != want {
			t.Fatalf("ParseLimit(%q) = %d, want %d", q, got, want)
		}
	}
}
