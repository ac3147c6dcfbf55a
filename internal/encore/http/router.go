// Package http is the browser-facing adapter: login and callback pages,
// the game control endpoints, a websocket state stream and health probes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/encoreparty/encore/internal/encore/session"
	"github.com/encoreparty/encore/internal/encore/source"
	"github.com/encoreparty/encore/internal/encore/store"
	"github.com/encoreparty/encore/pkg/httpx"
	"github.com/encoreparty/encore/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *session.Manager
	Games    *GameHandler
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *session.Manager,
	resolver source.Resolver,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		Sessions:     sessions,
		Games:        NewGameHandler(st, resolver, logger),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerGame()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// Close stops the game engine's countdown and disconnects stream clients.
func (r *Router) Close() {
	r.Games.Close()
}

func (r *Router) registerAuth() {
	login := &LoginHandler{Sessions: r.Sessions, Logger: r.logger}
	callback := &CallbackHandler{Sessions: r.Sessions, Logger: r.logger}

	// Login starts a provider round trip; keep it strict so a misbehaving
	// page cannot spin up verifier churn.
	r.Mux.Handle("GET /login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /callback",
		httpx.Chain(callback,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(&LogoutHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(&SessionHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerGame() {
	// Setup resolves artist sources against the provider; strict limit.
	r.Mux.Handle("POST /v1/game",
		httpx.Chain(http.HandlerFunc(r.Games.HandleStart),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// In-round signals arrive at human pace; lenient is plenty.
	r.Mux.Handle("POST /v1/game/go",
		httpx.Chain(http.HandlerFunc(r.Games.HandleGo),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/game/correct",
		httpx.Chain(http.HandlerFunc(r.Games.HandleCorrect),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/game/pass",
		httpx.Chain(http.HandlerFunc(r.Games.HandlePass),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/game/end",
		httpx.Chain(http.HandlerFunc(r.Games.HandleEnd),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/game/state",
		httpx.Chain(http.HandlerFunc(r.Games.HandleState),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/game/summary",
		httpx.Chain(http.HandlerFunc(r.Games.HandleSummary),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.HandleFunc("GET /v1/game/ws", r.Games.HandleWS)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
