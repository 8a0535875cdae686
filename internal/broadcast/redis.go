package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"card-parlor/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	eventsChannel  = "events:"
	snapshotPrefix = "snapshot:"
)

// Redis carries events between server processes over pub/sub. Every process
// relays the channel into its own Hub, the publisher included, so events are
// delivered once per process.
type Redis struct {
	client *redis.Client
	prefix string
	hub    *Hub
}

func NewRedis(client *redis.Client, prefix string, hub *Hub) *Redis {
	return &Redis{client: client, prefix: keyPrefix(prefix), hub: hub}
}

func (r *Redis) channel(gameID string) string {
	return r.prefix + eventsChannel + gameID
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	ev.EventID = ""
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(ev.GameID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Relay subscribes to every game channel and feeds the Hub until stop is
// called or ctx ends. It returns once the subscription is live.
func (r *Redis) Relay(ctx context.Context) (stop func(), err error) {
	ps := r.client.PSubscribe(ctx, r.prefix+eventsChannel+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed event")
				continue
			}
			if ev.GameID == "" {
				ev.GameID = strings.TrimPrefix(msg.Channel, r.prefix+eventsChannel)
			}
			r.hub.Deliver(ev)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = ps.Close()
		case <-done:
		}
	}()
	return func() {
		_ = ps.Close()
		<-done
	}, nil
}

// SnapshotCache keeps the latest stored snapshot of each game in Redis so
// reads skip the database. Entries expire after ttl.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SnapshotCache{client: client, prefix: keyPrefix(prefix), ttl: ttl}
}

type cachedSnapshot struct {
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	State     json.RawMessage `json:"state"`
}

func (c *SnapshotCache) key(gameID string) string {
	return c.prefix + snapshotPrefix + gameID
}

func (c *SnapshotCache) Set(ctx context.Context, rec store.GameRecord) error {
	state, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data, err := json.Marshal(cachedSnapshot{Version: rec.Version, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt, State: state})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(rec.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Get reports a miss with ok=false and a nil error.
func (c *SnapshotCache) Get(ctx context.Context, gameID string) (store.GameRecord, bool, error) {
	data, err := c.client.Get(ctx, c.key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.GameRecord{}, false, nil
	}
	if err != nil {
		return store.GameRecord{}, false, fmt.Errorf("get cached snapshot: %w", err)
	}
	var snap cachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return store.GameRecord{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	rec := store.GameRecord{ID: gameID, Version: snap.Version, CreatedAt: snap.CreatedAt, UpdatedAt: snap.UpdatedAt}
	if err := json.Unmarshal(snap.State, &rec.State); err != nil {
		return store.GameRecord{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return rec, true, nil
}

func (c *SnapshotCache) Invalidate(ctx context.Context, gameID string) error {
	return c.client.Del(ctx, c.key(gameID)).Err()
}

func keyPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, ":") {
		return prefix
	}
	return prefix + ":"
}
