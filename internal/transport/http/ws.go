package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"card-parlor/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxMessage   = 4096
	wsSendBuffered = 16
)

type wsClientMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

type wsActionResult struct {
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// WebSocket pushes the same events as Events. A connection opened with
// ?player_id= also marks the player online for its lifetime and accepts
// {"type":"action"} messages on their behalf.
func (h *StreamHandlers) WebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		playerID := r.URL.Query().Get("player_id")
		events := h.hub.Subscribe(gameID)
		defer h.hub.Unsubscribe(gameID, events)
		first, err := h.snapshotEvent(r.Context(), gameID, playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		metricWSConnectionsTotal.Add(1)
		metricWSConnectionsActive.Add(1)
		defer metricWSConnectionsActive.Add(-1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if playerID != "" {
			h.markPresence(ctx, gameID, playerID, true)
			defer h.markPresence(context.Background(), gameID, playerID, false)
		}

		replies := make(chan wsActionResult, wsSendBuffered)
		go h.readLoop(ctx, cancel, conn, gameID, playerID, replies)

		if err := writeWS(conn, first); err != nil {
			return
		}
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if stale(ev, first.Version) {
					continue
				}
				if err := writeWS(conn, h.personalize(ctx, ev, playerID)); err != nil {
					return
				}
			case res := <-replies:
				if err := writeWS(conn, res); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}

func (h *StreamHandlers) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, gameID, playerID string, replies chan<- wsActionResult) {
	defer cancel()
	conn.SetReadLimit(wsMaxMessage)
	wait := 2 * h.heartbeat
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		var msg wsClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "action" {
			continue
		}
		res := h.wsAction(ctx, gameID, playerID, msg)
		select {
		case replies <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (h *StreamHandlers) wsAction(ctx context.Context, gameID, playerID string, msg wsClientMessage) wsActionResult {
	res := wsActionResult{Type: "action_result"}
	if playerID == "" {
		res.Error = "player_not_found"
		return res
	}
	typ, err := game.ParseActionType(msg.Action)
	if err != nil {
		_, res.Error = MapError(err)
		return res
	}
	rec, err := h.svc.Act(ctx, gameID, game.Action{Type: typ, PlayerID: playerID, Amount: msg.Amount})
	if err != nil {
		_, res.Error = MapError(err)
		return res
	}
	res.OK = true
	res.Version = rec.Version
	return res
}

func (h *StreamHandlers) markPresence(ctx context.Context, gameID, playerID string, online bool) {
	if _, err := h.svc.SetPresence(ctx, gameID, playerID, online); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Str("player_id", playerID).Msg("presence update failed")
	}
}

func writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
