package engine

import (
	"github.com/encoreparty/encore/internal/encore/domain"
)

// Phase is the engine's observable state.
type Phase string

const (
	PhaseReady     Phase = "ready"
	PhasePlaying   Phase = "playing"
	PhaseRoundDone Phase = "round_done"
	PhaseTeamDone  Phase = "team_done"
	PhaseGameOver  Phase = "game_over"
	PhaseError     Phase = "error"
)

// ShortfallDiagnostic describes an under-provisioned artist pool in enough
// detail for the operator to fix the configuration rather than retry.
type ShortfallDiagnostic struct {
	Found            int         `json:"found"`
	Needed           int         `json:"needed"`
	MinPopularity    int         `json:"min_popularity"`
	Teams            int         `json:"teams"`
	Mode             domain.Mode `json:"mode"`
	PerPlayerSeconds int         `json:"per_player_seconds"`
}

// Remedies lists configuration changes that would close the shortfall.
func (d ShortfallDiagnostic) Remedies() []string {
	return []string{
		"add more artist sources",
		"lower the popularity floor",
		"shorten the per-player duration",
		"reduce the number of teams",
	}
}

// TeamScore pairs a team with its running score.
type TeamScore struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// Snapshot is a read-only copy of the game state, safe to hand to the UI
// after the engine's lock is released.
type Snapshot struct {
	Phase            Phase                `json:"phase"`
	Mode             domain.Mode          `json:"mode"`
	DefaultsApplied  bool                 `json:"defaults_applied,omitempty"`
	Team             string               `json:"team,omitempty"`
	Player           string               `json:"player,omitempty"`
	CurrentArtist    *domain.Artist       `json:"current_artist,omitempty"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Scores           []TeamScore          `json:"scores"`
	PlayerStats      *domain.PlayerStats  `json:"player_stats,omitempty"`
	Diagnostic       *ShortfallDiagnostic `json:"diagnostic,omitempty"`
}

// PlayerHighlight attributes a game-wide superlative to the player who
// earned it.
type PlayerHighlight struct {
	Team   string `json:"team"`
	Player string `json:"player"`
}

// FastestHighlight is the quickest correct guess across the whole game.
type FastestHighlight struct {
	PlayerHighlight
	Guess domain.Guess `json:"guess"`
}

// StreakHighlight is the longest streak across the whole game.
type StreakHighlight struct {
	PlayerHighlight
	Length  int             `json:"length"`
	Artists []domain.Artist `json:"artists"`
}

// Summary is the final result sheet, available once the game is over.
type Summary struct {
	Rankings        []TeamScore          `json:"rankings"`
	Fastest         *FastestHighlight    `json:"fastest,omitempty"`
	BestStreak      *StreakHighlight     `json:"best_streak,omitempty"`
	Players         []domain.PlayerStats `json:"players"`
	DefaultsApplied bool                 `json:"defaults_applied,omitempty"`
}
