package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"card-parlor/internal/broadcast"
	"card-parlor/internal/config"
	"card-parlor/internal/table"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Service *table.Service
	Hub     *broadcast.Hub
	Store   Pinger
	Config  config.ServerConfig
}

func NewRouter(d Deps) *chi.Mux {
	games := NewGameHandlers(d.Service)
	streams := NewStreamHandlers(d.Service, d.Hub, d.Config.HeartbeatEvery)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", healthHandler(d.Store))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/games", games.Create())
		r.Route("/games/{game_id}", func(r chi.Router) {
			r.Get("/", games.Get())
			r.Post("/players", games.Join())
			r.Delete("/players/{player_id}", games.Leave())
			r.Post("/start", games.Start())
			r.Post("/next-hand", games.NextHand())
			r.Post("/actions", games.SubmitAction())
			r.Get("/actions", games.ListActions())
			r.Get("/presence", games.ListPresence())
			r.Put("/presence/{player_id}", games.SetPresence())
			r.Get("/events", streams.Events())
			r.Get("/ws", streams.WebSocket())
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.Error().Err(err).Msg("health check failed")
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	fmt.Fprintf(&b, "Registered routes (%d):\n", len(routes))
	for _, rt := range routes {
		fmt.Fprintf(&b, "  %-6s %s\n", rt.Method, rt.Path)
	}
	log.Debug().Msg(b.String())
}
