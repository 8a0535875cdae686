package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/config"
	"card-parlor/internal/game/viewmodel"
	"card-parlor/internal/store"

	"github.com/gorilla/websocket"
)

// readSSE returns the next non-ping event from the stream.
func readSSE(t *testing.T, r *bufio.Reader) broadcast.Event {
	t.Helper()
	var ev broadcast.Event
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			continue
		}
		if line == "" && ev.Event != "" {
			if ev.Event == broadcast.EventPing {
				ev = broadcast.Event{}
				continue
			}
			return ev
		}
	}
}

func postJSON(t *testing.T, url string, body any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post %s: status %d", url, resp.StatusCode)
	}
}

func TestEventStreamSnapshotThenChanges(t *testing.T) {
	router, _ := newTestRouter(t, config.ServerConfig{HeartbeatEvery: time.Minute})
	srv := httptest.NewServer(router)
	defer srv.Close()
	id := seatedGame(t, router)

	resp, err := http.Get(srv.URL + "/api/games/" + id + "/events?player_id=host")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	r := bufio.NewReader(resp.Body)

	first := readSSE(t, r)
	if first.Event != broadcast.EventState || first.EventID != "" || first.Version != 2 {
		t.Fatalf("unexpected snapshot %+v", first)
	}

	postJSON(t, srv.URL+"/api/games/"+id+"/start", map[string]any{"player_id": "host"})
	next := readSSE(t, r)
	if next.Event != broadcast.EventState || next.Version != 3 || next.EventID == "" {
		t.Fatalf("unexpected event after start %+v", next)
	}
	var view viewmodel.PlayerStateView
	if err := json.Unmarshal(next.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.MyHoleCards) != 2 {
		t.Fatalf("stream should carry the player's own cards, got %v", view.MyHoleCards)
	}
}

func TestEventStreamUnknownGame(t *testing.T) {
	router, _, hub := newTestRouterWith(t, config.ServerConfig{}, store.NewMemory())
	w := doJSON(t, router, http.MethodGet, "/api/games/nope/events", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "game_not_found" {
		t.Fatalf("expected 404 game_not_found, got %d", w.Code)
	}
	if n := hub.Subscribers("nope"); n != 0 {
		t.Fatalf("failed stream left %d subscribers", n)
	}
}

// readHookRepo runs onRead once, in the middle of the next game read.
type readHookRepo struct {
	*store.Memory
	mu     sync.Mutex
	onRead func()
}

func (r *readHookRepo) GetGame(ctx context.Context, id string) (store.GameRecord, error) {
	rec, err := r.Memory.GetGame(ctx, id)
	r.mu.Lock()
	hook := r.onRead
	r.onRead = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return rec, err
}

func TestEventStreamKeepsChangesDuringSnapshot(t *testing.T) {
	repo := &readHookRepo{Memory: store.NewMemory()}
	router, _, hub := newTestRouterWith(t, config.ServerConfig{HeartbeatEvery: time.Minute}, repo)
	srv := httptest.NewServer(router)
	defer srv.Close()
	id := seatedGame(t, router)

	repo.mu.Lock()
	repo.onRead = func() {
		hub.Deliver(broadcast.Event{Event: broadcast.EventPresence, GameID: id, Version: 2, Data: json.RawMessage(`{}`)})
	}
	repo.mu.Unlock()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/games/" + id + "/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	if first := readSSE(t, r); first.Event != broadcast.EventState {
		t.Fatalf("expected snapshot first, got %+v", first)
	}
	if next := readSSE(t, r); next.Event != broadcast.EventPresence || next.EventID == "" {
		t.Fatalf("event delivered while the snapshot was read was lost, got %+v", next)
	}
}

func TestStaleStateEventsAreSkipped(t *testing.T) {
	tests := []struct {
		ev   broadcast.Event
		want bool
	}{
		{broadcast.Event{Event: broadcast.EventState, Version: 3}, true},
		{broadcast.Event{Event: broadcast.EventState, Version: 4}, false},
		{broadcast.Event{Event: broadcast.EventPresence, Version: 3}, false},
	}
	for _, tt := range tests {
		if got := stale(tt.ev, 3); got != tt.want {
			t.Fatalf("stale(%s v%d) = %v, want %v", tt.ev.Event, tt.ev.Version, got, tt.want)
		}
	}
}

func readWS(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketPresenceAndActions(t *testing.T) {
	router, svc := newTestRouter(t, config.ServerConfig{HeartbeatEvery: time.Minute})
	srv := httptest.NewServer(router)
	defer srv.Close()
	id := seatedGame(t, router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/games/" + id + "/ws?player_id=guest"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readWS(t, conn, func(m map[string]any) bool { return m["event"] != nil })
	if first["event"] != broadcast.EventState {
		t.Fatalf("expected state snapshot first, got %v", first)
	}
	readWS(t, conn, func(m map[string]any) bool { return m["event"] == broadcast.EventPresence })

	online, err := svc.Presence(context.Background(), id)
	if err != nil || len(online) != 1 || !online[0].Online {
		t.Fatalf("expected guest online, got %+v (%v)", online, err)
	}

	// before the hand starts an action is rejected
	if err := conn.WriteJSON(map[string]any{"type": "action", "action": "call"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := readWS(t, conn, func(m map[string]any) bool { return m["type"] == "action_result" })
	if res["ok"] != false || res["error"] != "game_not_active" {
		t.Fatalf("unexpected result %v", res)
	}

	postJSON(t, srv.URL+"/api/games/"+id+"/start", map[string]any{"player_id": "host"})
	if err := conn.WriteJSON(map[string]any{"type": "action", "action": "call"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res = readWS(t, conn, func(m map[string]any) bool { return m["type"] == "action_result" })
	if res["ok"] != true {
		t.Fatalf("call should succeed, got %v", res)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		items, _ := svc.Presence(context.Background(), id)
		if len(items) == 1 && !items[0].Online {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("guest should go offline after the socket closes")
}
