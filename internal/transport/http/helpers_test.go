package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/config"
	"card-parlor/internal/game"
	"card-parlor/internal/store"
	"card-parlor/internal/table"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, cfg config.ServerConfig) (*chi.Mux, *table.Service) {
	t.Helper()
	router, svc, _ := newTestRouterWith(t, cfg, store.NewMemory())
	return router, svc
}

type testRepo interface {
	table.Repository
	Pinger
}

func newTestRouterWith(t *testing.T, cfg config.ServerConfig, repo testRepo) (*chi.Mux, *table.Service, *broadcast.Hub) {
	t.Helper()
	hub := broadcast.NewHub(100, 64)
	svc := table.NewService(table.Options{
		Engine:    game.NewEngine(),
		Store:     repo,
		Publisher: broadcast.Local{Hub: hub},
	})
	return NewRouter(Deps{Service: svc, Hub: hub, Store: repo, Config: cfg}), svc, hub
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, w)["error"]
}

// seatedGame creates a game hosted by "host" with "guest" joined and returns its id.
func seatedGame(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/games", map[string]any{"host_id": "host", "host_name": "Host"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create game: %d %s", w.Code, w.Body.String())
	}
	id := decodeBody[map[string]any](t, w)["game_id"].(string)
	w = doJSON(t, h, http.MethodPost, "/api/games/"+id+"/players", map[string]any{"player_id": "guest", "name": "Guest"})
	if w.Code != http.StatusOK {
		t.Fatalf("join: %d %s", w.Code, w.Body.String())
	}
	return id
}
