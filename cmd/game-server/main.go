package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/config"
	"card-parlor/internal/game"
	"card-parlor/internal/logging"
	"card-parlor/internal/store"
	"card-parlor/internal/table"
	httptransport "card-parlor/internal/transport/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	httptransport.LogRoutes(app.router)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	app.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type app struct {
	router  *chi.Mux
	hub     *broadcast.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires storage, broadcast and the HTTP router. Postgres and Redis are
// used when configured; otherwise everything stays in this process.
func newApp(ctx context.Context, cfg config.AppConfig) (*app, error) {
	a := &app{hub: broadcast.NewHub(0, cfg.Server.SubscriberBuffer)}
	a.hub.OnDropped = httptransport.CountDropped

	var (
		repo   table.Repository
		pinger httptransport.Pinger
	)
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(cfg.Server.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		if err := st.Ping(ctx); err != nil {
			a.Close()
			return nil, err
		}
		repo, pinger = st, st
		log.Info().Msg("using postgres store")
	} else {
		mem := store.NewMemory()
		repo, pinger = mem, mem
		log.Warn().Msg("POSTGRES_DSN not set, games are kept in memory")
	}

	opts := table.Options{
		Engine:    game.NewEngine(),
		Store:     repo,
		Publisher: broadcast.Local{Hub: a.hub},
		Defaults:  cfg.Table.Game(),
	}
	if cfg.Server.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Server.RedisAddr,
			Password: cfg.Server.RedisPassword,
			DB:       cfg.Server.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, err
		}
		relay := broadcast.NewRedis(client, cfg.Server.RedisPrefix, a.hub)
		stopRelay, err := relay.Relay(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, stopRelay)
		opts.Publisher = relay
		opts.Cache = broadcast.NewSnapshotCache(client, cfg.Server.RedisPrefix, cfg.Server.SnapshotTTL)
		log.Info().Str("addr", cfg.Server.RedisAddr).Msg("using redis broadcast and snapshot cache")
	}

	a.router = httptransport.NewRouter(httptransport.Deps{
		Service: table.NewService(opts),
		Hub:     a.hub,
		Store:   pinger,
		Config:  cfg.Server,
	})
	return a, nil
}
