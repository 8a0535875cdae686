package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/table"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type StreamHandlers struct {
	svc       *table.Service
	hub       *broadcast.Hub
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func NewStreamHandlers(svc *table.Service, hub *broadcast.Hub, heartbeat time.Duration) *StreamHandlers {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandlers{
		svc:       svc,
		hub:       hub,
		heartbeat: heartbeat,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Events streams game changes as server-sent events. Without Last-Event-ID
// the stream opens with the current snapshot; with it, buffered events after
// that id are replayed first.
func (h *StreamHandlers) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		playerID := r.URL.Query().Get("player_id")
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		// Subscribe before reading the snapshot so nothing committed in
		// between is missed.
		ch := h.hub.Subscribe(gameID)
		defer h.hub.Unsubscribe(gameID, ch)
		first, err := h.snapshotEvent(r.Context(), gameID, playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		var seen int64
		replayed := map[string]bool{}
		if last := r.Header.Get("Last-Event-ID"); last != "" {
			for _, ev := range h.hub.ReplayAfter(gameID, last) {
				replayed[ev.EventID] = true
				if err := WriteSSE(w, h.personalize(r.Context(), ev, playerID)); err != nil {
					return
				}
			}
		} else {
			if err := WriteSSE(w, first); err != nil {
				return
			}
			seen = first.Version
		}
		flusher.Flush()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if stale(ev, seen) || replayed[ev.EventID] {
					continue
				}
				if err := WriteSSE(w, h.personalize(r.Context(), ev, playerID)); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if err := WriteSSE(w, broadcast.Event{Event: broadcast.EventPing, GameID: gameID, ServerTS: time.Now().UnixMilli()}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// snapshotEvent is an unnumbered state event holding the current view.
func (h *StreamHandlers) snapshotEvent(ctx context.Context, gameID, playerID string) (broadcast.Event, error) {
	if playerID != "" {
		view, err := h.svc.PlayerView(ctx, gameID, playerID)
		if err != nil {
			return broadcast.Event{}, err
		}
		return broadcast.NewEvent(broadcast.EventState, gameID, view.Version, view)
	}
	view, err := h.svc.PublicView(ctx, gameID)
	if err != nil {
		return broadcast.Event{}, err
	}
	return broadcast.NewEvent(broadcast.EventState, gameID, view.Version, view)
}

// stale reports a state event already covered by the snapshot a stream
// opened with.
func stale(ev broadcast.Event, snapshotVersion int64) bool {
	return ev.Event == broadcast.EventState && ev.Version <= snapshotVersion
}

// personalize swaps a public state payload for the player's own view so a
// seated subscriber sees their hole cards.
func (h *StreamHandlers) personalize(ctx context.Context, ev broadcast.Event, playerID string) broadcast.Event {
	if playerID == "" || ev.Event != broadcast.EventState {
		return ev
	}
	view, err := h.svc.PlayerView(ctx, ev.GameID, playerID)
	if err != nil || view.Version != ev.Version {
		return ev
	}
	if raw, err := json.Marshal(view); err == nil {
		ev.Data = raw
	}
	return ev
}

func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func WriteSSE(w http.ResponseWriter, ev broadcast.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.EventID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.EventID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, data)
	return err
}
