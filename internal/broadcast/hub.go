package broadcast

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

const (
	EventState    = "state"
	EventAction   = "action"
	EventPresence = "presence"
	EventHandEnd  = "hand_end"
	EventPing     = "ping"
)

// Event is one change notification for a game. EventID is assigned by the Hub
// that delivers it and only orders events within that process.
type Event struct {
	EventID  string          `json:"event_id,omitempty"`
	Event    string          `json:"event"`
	GameID   string          `json:"game_id"`
	Version  int64           `json:"version"`
	ServerTS int64           `json:"server_ts"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func NewEvent(kind, gameID string, version int64, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: kind, GameID: gameID, Version: version, ServerTS: time.Now().UnixMilli(), Data: raw}, nil
}

type topic struct {
	nextID   int64
	events   []Event
	watchers map[chan Event]struct{}
}

// Hub fans events out to in-process subscribers and keeps the last few per
// game for Last-Event-ID replay. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu        sync.Mutex
	history   int
	buffer    int
	topics    map[string]*topic
	closed    bool
	OnDropped func(gameID string)
}

func NewHub(history, buffer int) *Hub {
	if history <= 0 {
		history = 100
	}
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{history: history, buffer: buffer, topics: map[string]*topic{}}
}

func (h *Hub) topic(gameID string) *topic {
	t := h.topics[gameID]
	if t == nil {
		t = &topic{watchers: map[chan Event]struct{}{}}
		h.topics[gameID] = t
	}
	return t
}

// Deliver stamps ev with the next id for its game and hands it to every
// subscriber of that game.
func (h *Hub) Deliver(ev Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Event{}
	}
	t := h.topic(ev.GameID)
	t.nextID++
	ev.EventID = strconv.FormatInt(t.nextID, 10)
	if ev.ServerTS == 0 {
		ev.ServerTS = time.Now().UnixMilli()
	}
	t.events = append(t.events, ev)
	if len(t.events) > h.history {
		t.events = t.events[len(t.events)-h.history:]
	}
	for ch := range t.watchers {
		select {
		case ch <- ev:
		default:
			if h.OnDropped != nil {
				h.OnDropped(ev.GameID)
			}
		}
	}
	return ev
}

// ReplayAfter returns buffered events newer than lastEventID, or all of them
// when lastEventID is empty or unparsable.
func (h *Hub) ReplayAfter(gameID, lastEventID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[gameID]
	if t == nil || len(t.events) == 0 {
		return nil
	}
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		last = 0
	}
	out := make([]Event, 0, len(t.events))
	for _, ev := range t.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) Subscribe(gameID string) chan Event {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.topic(gameID).watchers[ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(gameID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[gameID]
	if t == nil {
		return
	}
	if _, ok := t.watchers[ch]; ok {
		delete(t.watchers, ch)
		close(ch)
	}
}

func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.topics[gameID]; t != nil {
		return len(t.watchers)
	}
	return 0
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, t := range h.topics {
		for ch := range t.watchers {
			close(ch)
			delete(t.watchers, ch)
		}
	}
}
