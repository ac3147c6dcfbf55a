// Package gamesdk holds the wire types of the game service API plus a
// small Go client. The server marshals its own domain types; the JSON tags
// here mirror that wire format so external consumers never need to import
// server internals.
package gamesdk

// SessionResponse reports login state.
type SessionResponse struct {
	LoggedIn bool `json:"logged_in"`
}

// LoginResponse carries the provider authorization URL the browser should
// follow.
type LoginResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// Team is one configured group of players.
type Team struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Enabled bool     `json:"enabled"`
}

// SourceRef names one artist source.
type SourceRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// StartGameRequest is the body of POST /v1/game.
type StartGameRequest struct {
	Teams            []Team      `json:"teams"`
	PerPlayerSeconds int         `json:"per_player_seconds"`
	Mode             string      `json:"mode"`
	Sources          []SourceRef `json:"sources"`
	MinPopularity    int         `json:"min_popularity"`
	MinArtists       int         `json:"min_artists"`
}

// Artist is one guessable record.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres,omitempty"`
}

// Guess is one correct guess and its on-screen elapsed time.
type Guess struct {
	Artist         Artist  `json:"artist"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// PlayerStats is one player's accumulated results.
type PlayerStats struct {
	Name                 string   `json:"name"`
	Correct              int      `json:"correct"`
	Passed               int      `json:"passed"`
	CurrentStreak        int      `json:"current_streak"`
	CurrentStreakArtists []Artist `json:"current_streak_artists,omitempty"`
	BestStreak           int      `json:"best_streak"`
	BestStreakArtists    []Artist `json:"best_streak_artists,omitempty"`
	Fastest              *Guess   `json:"fastest,omitempty"`
	Guesses              []Guess  `json:"guesses,omitempty"`
}

// TeamScore pairs a team with its running score.
type TeamScore struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// ShortfallDiagnostic explains an under-provisioned artist pool.
type ShortfallDiagnostic struct {
	Found            int    `json:"found"`
	Needed           int    `json:"needed"`
	MinPopularity    int    `json:"min_popularity"`
	Teams            int    `json:"teams"`
	Mode             string `json:"mode"`
	PerPlayerSeconds int    `json:"per_player_seconds"`
}

// Snapshot is the observable game state.
type Snapshot struct {
	Phase            string               `json:"phase"`
	Mode             string               `json:"mode"`
	DefaultsApplied  bool                 `json:"defaults_applied,omitempty"`
	Team             string               `json:"team,omitempty"`
	Player           string               `json:"player,omitempty"`
	CurrentArtist    *Artist              `json:"current_artist,omitempty"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Scores           []TeamScore          `json:"scores"`
	PlayerStats      *PlayerStats         `json:"player_stats,omitempty"`
	Diagnostic       *ShortfallDiagnostic `json:"diagnostic,omitempty"`
}

// FastestHighlight is the quickest correct guess of the game.
type FastestHighlight struct {
	Team   string `json:"team"`
	Player string `json:"player"`
	Guess  Guess  `json:"guess"`
}

// StreakHighlight is the longest streak of the game.
type StreakHighlight struct {
	Team    string   `json:"team"`
	Player  string   `json:"player"`
	Length  int      `json:"length"`
	Artists []Artist `json:"artists"`
}

// Summary is the final result sheet.
type Summary struct {
	Rankings        []TeamScore       `json:"rankings"`
	Fastest         *FastestHighlight `json:"fastest,omitempty"`
	BestStreak      *StreakHighlight  `json:"best_streak,omitempty"`
	Players         []PlayerStats     `json:"players"`
	DefaultsApplied bool              `json:"defaults_applied,omitempty"`
}

// StateResponse wraps the current snapshot.
type StateResponse struct {
	Snapshot Snapshot `json:"snapshot"`
}

// SummaryResponse wraps the final result sheet.
type SummaryResponse struct {
	Summary Summary `json:"summary"`
}

// HealthResponse is the body of /livez and /readyz; readyz also fills
// Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}
