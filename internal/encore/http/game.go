package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/internal/encore/engine"
	"github.com/encoreparty/encore/internal/encore/session"
	"github.com/encoreparty/encore/internal/encore/source"
	"github.com/encoreparty/encore/internal/encore/store"
	"github.com/encoreparty/encore/pkg/gamesdk"
	"github.com/encoreparty/encore/pkg/httpx"
	"github.com/encoreparty/encore/pkg/idx"
	"github.com/encoreparty/encore/pkg/slogx"
)

// GameHandler owns the one game run the service hosts at a time and the
// websocket hub that streams its snapshots.
type GameHandler struct {
	store    store.Store
	resolver source.Resolver
	logger   *slog.Logger
	sched    engine.Scheduler
	hub      *hub

	mu  sync.Mutex
	eng *engine.Engine
}

// NewGameHandler wires the game endpoints.
func NewGameHandler(st store.Store, resolver source.Resolver, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		store:    st,
		resolver: resolver,
		logger:   logger,
		sched:    engine.NewTickerScheduler(),
		hub:      newHub(logger),
	}
}

// Close stops the current countdown and drops stream clients.
func (h *GameHandler) Close() {
	h.mu.Lock()
	if h.eng != nil {
		h.eng.Stop()
	}
	h.mu.Unlock()
	h.hub.close()
}

// HandleStart serves POST /v1/game: persist the configuration, resolve the
// artist sources and set up a fresh engine. An under-provisioned pool is a
// 409; the error-phase snapshot stays readable via the state endpoint.
func (h *GameHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var cfg domain.GameConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		gamesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if err := cfg.Validate(); err != nil {
		apiErr := *gamesdk.ErrInvalidRequest
		apiErr.Description = err.Error()
		apiErr.WriteError(w)
		return
	}

	for i := range cfg.Teams {
		if cfg.Teams[i].ID.IsZero() {
			cfg.Teams[i].ID = idx.New()
		}
	}

	// The stored config slot is what a restarted service would pick up.
	if raw, err := json.Marshal(cfg); err == nil {
		if err := h.store.Put(ctx, store.SlotGameConfig, raw); err != nil {
			log.Warn("persisting game config failed", "err", err)
		}
	}

	artists, err := h.resolver.Resolve(ctx, cfg.Sources)
	if err != nil && !errors.Is(err, source.ErrNoArtists) {
		h.writeResolveError(w, log, err)
		return
	}

	h.mu.Lock()
	if h.eng != nil {
		h.eng.Stop()
	}
	eng := engine.New(engine.Config{
		Game:      cfg,
		Artists:   artists,
		Scheduler: h.sched,
		Logger:    h.logger,
		Notify:    h.hub.broadcast,
	})
	h.eng = eng
	h.mu.Unlock()

	snap := eng.Snapshot()
	if snap.Phase == engine.PhaseError {
		apiErr := gamesdk.APIError{
			StatusCode: http.StatusConflict,
			Code:       gamesdk.ErrorCodeInsufficientArtists,
			Description: fmt.Sprintf(
				"found %d artists but %d are needed; add sources or lower the popularity floor",
				snap.Diagnostic.Found, snap.Diagnostic.Needed,
			),
		}
		apiErr.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, stateResponse(snap))
}

func (h *GameHandler) writeResolveError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		gamesdk.ErrSessionExpired.WriteError(w)
	case errors.Is(err, session.ErrAnonymousUnavailable):
		gamesdk.ErrNotLoggedIn.WriteError(w)
	case errors.Is(err, session.ErrNetwork):
		gamesdk.ErrNetworkError.WriteError(w)
	default:
		log.Error("artist source resolution failed", "err", err)
		gamesdk.ErrServerError.WriteError(w)
	}
}

func (h *GameHandler) HandleGo(w http.ResponseWriter, r *http.Request) {
	h.event(w, func(e *engine.Engine) error { return e.Go() })
}

func (h *GameHandler) HandleCorrect(w http.ResponseWriter, r *http.Request) {
	h.event(w, func(e *engine.Engine) error { return e.Correct() })
}

func (h *GameHandler) HandlePass(w http.ResponseWriter, r *http.Request) {
	h.event(w, func(e *engine.Engine) error { return e.Pass() })
}

func (h *GameHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	h.event(w, func(e *engine.Engine) error { return e.End() })
}

// event runs one engine signal and answers with the resulting snapshot.
func (h *GameHandler) event(w http.ResponseWriter, fn func(*engine.Engine) error) {
	eng := h.current()
	if eng == nil {
		gamesdk.ErrNoGame.WriteError(w)
		return
	}

	if err := fn(eng); err != nil {
		if errors.Is(err, engine.ErrWrongPhase) {
			apiErr := *gamesdk.ErrWrongPhase
			apiErr.Description = err.Error()
			apiErr.WriteError(w)
			return
		}
		gamesdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, stateResponse(eng.Snapshot()))
}

func (h *GameHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	eng := h.current()
	if eng == nil {
		gamesdk.ErrNoGame.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stateResponse(eng.Snapshot()))
}

func (h *GameHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	eng := h.current()
	if eng == nil {
		gamesdk.ErrNoGame.WriteError(w)
		return
	}

	sum, err := eng.Summary()
	if err != nil {
		gamesdk.ErrGameNotOver.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summaryResponse(sum))
}

// HandleWS serves GET /v1/game/ws, upgrading to a websocket that receives
// a snapshot on every state change.
func (h *GameHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	var initial *engine.Snapshot
	if eng := h.current(); eng != nil {
		s := eng.Snapshot()
		initial = &s
	}
	h.hub.serve(w, r, initial)
}

func (h *GameHandler) current() *engine.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng
}

// stateResponse and summaryResponse keep the handler payloads in one
// place; the JSON shapes are mirrored by pkg/gamesdk.
func stateResponse(s engine.Snapshot) map[string]any {
	return map[string]any{"snapshot": s}
}

func summaryResponse(s engine.Summary) map[string]any {
	return map[string]any{"summary": s}
}
