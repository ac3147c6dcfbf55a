package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/encoreparty/encore/internal/encore/session"
	"github.com/encoreparty/encore/pkg/gamesdk"
	"github.com/encoreparty/encore/pkg/httpx"
	"github.com/encoreparty/encore/pkg/slogx"
)

// LoginHandler serves GET /login. By default it redirects the browser to
// the provider's authorization page; with ?redirect=false it returns the
// URL as JSON for non-browser callers.
type LoginHandler struct {
	Sessions *session.Manager
	Logger   *slog.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	authURL, err := h.Sessions.BeginLogin(ctx)
	if err != nil {
		log.Error("begin login failed", "err", err)
		gamesdk.ErrServerError.WriteError(w)
		return
	}

	if r.URL.Query().Get("redirect") == "false" {
		httpx.WriteJSON(w, http.StatusOK, gamesdk.LoginResponse{AuthorizeURL: authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler serves GET /callback, the provider's redirect target.
// Auth failures send the browser back to the login prompt with an error
// code rather than rendering a bare API error.
type CallbackHandler struct {
	Sessions *session.Manager
	Logger   *slog.Logger
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	err := h.Sessions.CompleteLogin(ctx, r.URL.Query())
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.Is(err, session.ErrAuthorizationDenied):
		http.Redirect(w, r, "/?login=denied", http.StatusFound)
	case errors.Is(err, session.ErrMissingVerifier):
		// Storage inconsistency; the user can simply start over.
		http.Redirect(w, r, "/?login=retry", http.StatusFound)
	case errors.Is(err, session.ErrNetwork):
		log.Warn("callback exchange unreachable", "err", err)
		http.Redirect(w, r, "/?login=unavailable", http.StatusFound)
	default:
		log.Error("code exchange failed", "err", err)
		http.Redirect(w, r, "/?login=failed", http.StatusFound)
	}
}

// LogoutHandler serves POST /v1/logout. Always succeeds.
type LogoutHandler struct {
	Sessions *session.Manager
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context())
	httpx.WriteJSON(w, http.StatusOK, gamesdk.SessionResponse{LoggedIn: false})
}

// SessionHandler serves GET /v1/session, the logged-in probe.
type SessionHandler struct {
	Sessions *session.Manager
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, gamesdk.SessionResponse{
		LoggedIn: h.Sessions.LoggedIn(r.Context()),
	})
}
