package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/game"
	"card-parlor/internal/game/viewmodel"
	"card-parlor/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrGameNotFound    = errors.New("game_not_found")
	ErrNotHost         = errors.New("not_host")
	ErrVersionConflict = store.ErrVersionConflict
)

type Repository interface {
	CreateGame(ctx context.Context, st *game.TableState) (store.GameRecord, error)
	GetGame(ctx context.Context, id string) (store.GameRecord, error)
	SaveGame(ctx context.Context, st *game.TableState, expectedVersion int64, action *game.Action) (store.GameRecord, error)
	ListActions(ctx context.Context, gameID string, limit int) ([]store.ActionRecord, error)
	SetPresence(ctx context.Context, p store.Presence) error
	ListPresence(ctx context.Context, gameID string) ([]store.Presence, error)
}

type Cache interface {
	Get(ctx context.Context, gameID string) (store.GameRecord, bool, error)
	Set(ctx context.Context, rec store.GameRecord) error
	Invalidate(ctx context.Context, gameID string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev broadcast.Event) error
}

type Options struct {
	Engine    *game.Engine
	Store     Repository
	Cache     Cache
	Publisher Publisher
	Defaults  game.Config
	Now       func() time.Time
}

// Service runs engine transitions against stored games. Transitions on one
// game are serialized in this process; across processes the store's version
// check rejects the loser.
type Service struct {
	engine   *game.Engine
	repo     Repository
	cache    Cache
	pub      Publisher
	defaults game.Config
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*gameLock
}

func NewService(opts Options) *Service {
	s := &Service{
		engine:   opts.Engine,
		repo:     opts.Store,
		cache:    opts.Cache,
		pub:      opts.Publisher,
		defaults: opts.Defaults,
		now:      opts.Now,
		locks:    map[string]*gameLock{},
	}
	if s.engine == nil {
		s.engine = game.NewEngine()
	}
	if s.defaults == (game.Config{}) {
		s.defaults = game.DefaultConfig()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type CreateGameInput struct {
	Type          game.GameType
	Host          game.Seat
	SmallBlind    int64
	BigBlind      int64
	StartingChips int64
}

func (s *Service) CreateGame(ctx context.Context, in CreateGameInput) (store.GameRecord, error) {
	if in.Type == "" {
		in.Type = game.GameTexasHoldem
	}
	if err := game.SupportsGame(in.Type); err != nil {
		return store.GameRecord{}, err
	}
	in.Host.ID = strings.TrimSpace(in.Host.ID)
	if in.Host.ID == "" {
		return store.GameRecord{}, game.ErrInvalidPlayerDetails
	}
	cfg := s.defaults
	if in.SmallBlind != 0 {
		cfg.SmallBlind = in.SmallBlind
	}
	if in.BigBlind != 0 {
		cfg.BigBlind = in.BigBlind
	}
	if in.StartingChips != 0 {
		cfg.StartingChips = in.StartingChips
	}

	st, err := s.engine.NewTable(store.NewID(), cfg, []game.Seat{in.Host})
	if err != nil {
		return store.GameRecord{}, err
	}
	rec, err := s.repo.CreateGame(ctx, st)
	if err != nil {
		return store.GameRecord{}, fmt.Errorf("create game: %w", err)
	}
	metricGamesCreated.Add(1)
	log.Info().Str("game_id", rec.ID).Str("player_id", in.Host.ID).Int64("big_blind", cfg.BigBlind).Msg("game created")
	s.remember(ctx, rec)
	s.publishState(ctx, rec)
	return rec, nil
}

// Get returns the latest snapshot, preferring the cache.
func (s *Service) Get(ctx context.Context, gameID string) (store.GameRecord, error) {
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, gameID)
		if err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("snapshot cache read failed")
		} else if ok {
			return rec, nil
		}
	}
	rec, err := s.load(ctx, gameID)
	if err != nil {
		return store.GameRecord{}, err
	}
	s.remember(ctx, rec)
	return rec, nil
}

func (s *Service) PublicView(ctx context.Context, gameID string) (viewmodel.PublicStateView, error) {
	rec, err := s.Get(ctx, gameID)
	if err != nil {
		return viewmodel.PublicStateView{}, err
	}
	return viewmodel.BuildPublicState(rec.State, rec.Version, s.online(ctx, gameID)), nil
}

func (s *Service) PlayerView(ctx context.Context, gameID, playerID string) (viewmodel.PlayerStateView, error) {
	rec, err := s.Get(ctx, gameID)
	if err != nil {
		return viewmodel.PlayerStateView{}, err
	}
	view, ok := viewmodel.BuildPlayerState(rec.State, playerID, rec.Version, s.online(ctx, gameID))
	if !ok {
		return viewmodel.PlayerStateView{}, game.ErrPlayerNotFound
	}
	return view, nil
}

func (s *Service) Join(ctx context.Context, gameID string, seat game.Seat) (store.GameRecord, error) {
	seat.ID = strings.TrimSpace(seat.ID)
	return s.transition(ctx, gameID, "join", seat.ID, nil, func(st *game.TableState) (*game.TableState, error) {
		return s.engine.Join(st, seat)
	})
}

func (s *Service) Leave(ctx context.Context, gameID, playerID string) (store.GameRecord, error) {
	return s.transition(ctx, gameID, "leave", playerID, nil, func(st *game.TableState) (*game.TableState, error) {
		return s.engine.Leave(st, playerID)
	})
}

// Start deals the first hand. Only the host may start it.
func (s *Service) Start(ctx context.Context, gameID, playerID string) (store.GameRecord, error) {
	return s.transition(ctx, gameID, "start", playerID, nil, func(st *game.TableState) (*game.TableState, error) {
		if playerID != "" && st.HostID != playerID {
			return nil, ErrNotHost
		}
		return s.engine.Start(st)
	})
}

// NextHand reseats a completed game for another hand and deals it.
func (s *Service) NextHand(ctx context.Context, gameID, playerID string) (store.GameRecord, error) {
	return s.transition(ctx, gameID, "next_hand", playerID, nil, func(st *game.TableState) (*game.TableState, error) {
		if playerID != "" && st.HostID != playerID {
			return nil, ErrNotHost
		}
		waiting, err := s.engine.NextHand(st)
		if err != nil {
			return nil, err
		}
		return s.engine.Start(waiting)
	})
}

func (s *Service) Act(ctx context.Context, gameID string, a game.Action) (store.GameRecord, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	rec, err := s.transition(ctx, gameID, "action", a.PlayerID, &a, func(st *game.TableState) (*game.TableState, error) {
		return s.engine.Apply(st, a)
	})
	if err != nil {
		metricActionsRejected.Add(1)
		return rec, err
	}
	metricActionsApplied.Add(1)
	return rec, nil
}

func (s *Service) Actions(ctx context.Context, gameID string, limit int) ([]store.ActionRecord, error) {
	if _, err := s.load(ctx, gameID); err != nil {
		return nil, err
	}
	return s.repo.ListActions(ctx, gameID, limit)
}

// SetPresence records whether a seated player is connected. It never changes
// the game snapshot.
func (s *Service) SetPresence(ctx context.Context, gameID, playerID string, online bool) (store.Presence, error) {
	rec, err := s.Get(ctx, gameID)
	if err != nil {
		return store.Presence{}, err
	}
	if rec.State.PlayerIndex(playerID) < 0 {
		return store.Presence{}, game.ErrPlayerNotFound
	}
	p := store.Presence{GameID: gameID, PlayerID: playerID, Online: online, LastSeen: s.now().UTC()}
	if err := s.repo.SetPresence(ctx, p); err != nil {
		return store.Presence{}, fmt.Errorf("set presence: %w", err)
	}
	log.Debug().Str("game_id", gameID).Str("player_id", playerID).Bool("online", online).Msg("presence updated")
	s.publish(ctx, broadcast.EventPresence, gameID, rec.Version, p)
	return p, nil
}

func (s *Service) Presence(ctx context.Context, gameID string) ([]store.Presence, error) {
	if _, err := s.Get(ctx, gameID); err != nil {
		return nil, err
	}
	return s.repo.ListPresence(ctx, gameID)
}

func (s *Service) transition(
	ctx context.Context,
	gameID, op, playerID string,
	action *game.Action,
	fn func(*game.TableState) (*game.TableState, error),
) (store.GameRecord, error) {
	unlock := s.lock(gameID)
	defer unlock()

	rec, err := s.load(ctx, gameID)
	if err != nil {
		return store.GameRecord{}, err
	}
	next, err := fn(rec.State)
	if err != nil {
		if errors.Is(err, game.ErrInsufficientCards) {
			log.Error().Err(err).Str("game_id", gameID).Str("op", op).Msg("deck exhausted mid-hand")
		} else {
			log.Debug().Err(err).Str("game_id", gameID).Str("player_id", playerID).Str("op", op).Msg("transition rejected")
		}
		return store.GameRecord{}, err
	}
	saved, err := s.repo.SaveGame(ctx, next, rec.Version, action)
	if errors.Is(err, store.ErrVersionConflict) {
		metricVersionConflicts.Add(1)
		log.Warn().Str("game_id", gameID).Str("op", op).Int64("version", rec.Version).Msg("version conflict")
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, gameID)
		}
		return store.GameRecord{}, ErrVersionConflict
	}
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Str("op", op).Msg("save game failed")
		return store.GameRecord{}, fmt.Errorf("save game: %w", err)
	}

	ev := log.Info().Str("game_id", gameID).Str("op", op).Int64("version", saved.Version).
		Str("status", string(next.Status)).Str("round", string(next.Round))
	if playerID != "" {
		ev = ev.Str("player_id", playerID)
	}
	if action != nil {
		ev = ev.Str("action", string(action.Type)).Int64("amount", action.Amount)
	}
	ev.Msg("game updated")

	s.remember(ctx, saved)
	if action != nil {
		s.publish(ctx, broadcast.EventAction, gameID, saved.Version, action)
	}
	s.publishState(ctx, saved)
	if next.Status == game.GameCompleted && next.Result != nil {
		metricHandsCompleted.Add(1)
		s.publish(ctx, broadcast.EventHandEnd, gameID, saved.Version, next.Result)
	}
	return saved, nil
}

func (s *Service) load(ctx context.Context, gameID string) (store.GameRecord, error) {
	rec, err := s.repo.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return store.GameRecord{}, ErrGameNotFound
	}
	if err != nil {
		return store.GameRecord{}, fmt.Errorf("load game: %w", err)
	}
	return rec, nil
}

// gameLock serializes transitions on one game. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type gameLock struct {
	sync.Mutex
	refs int
}

func (s *Service) lock(gameID string) func() {
	s.mu.Lock()
	l := s.locks[gameID]
	if l == nil {
		l = &gameLock{}
		s.locks[gameID] = l
	}
	l.refs++
	s.mu.Unlock()
	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, gameID)
		}
		s.mu.Unlock()
	}
}

func (s *Service) remember(ctx context.Context, rec store.GameRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		log.Warn().Err(err).Str("game_id", rec.ID).Msg("snapshot cache write failed")
	}
}

func (s *Service) online(ctx context.Context, gameID string) map[string]bool {
	list, err := s.repo.ListPresence(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("list presence failed")
		return nil
	}
	out := make(map[string]bool, len(list))
	for _, p := range list {
		out[p.PlayerID] = p.Online
	}
	return out
}

func (s *Service) publishState(ctx context.Context, rec store.GameRecord) {
	s.publish(ctx, broadcast.EventState, rec.ID, rec.Version,
		viewmodel.BuildPublicState(rec.State, rec.Version, s.online(ctx, rec.ID)))
}

func (s *Service) publish(ctx context.Context, kind, gameID string, version int64, data any) {
	if s.pub == nil {
		return
	}
	ev, err := broadcast.NewEvent(kind, gameID, version, data)
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Str("event", kind).Msg("broadcast failed")
	}
}
