package gamesdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/encoreparty/encore/pkg/httpx"
)

// API error codes returned in the error field of error responses.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeAuthorizationDenied = "authorization_denied"
	ErrorCodeMissingVerifier     = "missing_verifier"
	ErrorCodeSessionExpired      = "session_expired"
	ErrorCodeNotLoggedIn         = "not_logged_in"
	ErrorCodeNetworkError        = "network_error"
	ErrorCodeNoGame              = "no_game"
	ErrorCodeWrongPhase          = "wrong_phase"
	ErrorCodeGameNotOver         = "game_not_over"
	ErrorCodeInsufficientArtists = "insufficient_artists"
	ErrorCodeServerError         = "server_error"
)

// APIError is the wire shape of every error response. It implements error
// so the SDK client can return it directly.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrAuthorizationDenied = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeAuthorizationDenied,
		Description: "the provider declined the authorization request",
	}

	ErrMissingVerifier = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMissingVerifier,
		Description: "no login attempt is in flight; start the login again",
	}

	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionExpired,
		Description: "the session has expired; log in again",
	}

	ErrNotLoggedIn = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeNotLoggedIn,
		Description: "this operation requires a logged-in session",
	}

	ErrNetworkError = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeNetworkError,
		Description: "the provider could not be reached",
	}

	ErrNoGame = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNoGame,
		Description: "no game has been started",
	}

	ErrWrongPhase = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeWrongPhase,
		Description: "the game is not in a phase that accepts this event",
	}

	ErrGameNotOver = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeGameNotOver,
		Description: "the game has not finished yet",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an unexpected error occurred",
	}
)
