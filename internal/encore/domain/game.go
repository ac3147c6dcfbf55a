package domain

import (
	"errors"
	"fmt"
)

// Mode selects how a team's time box is spent.
type Mode string

const (
	// ModeIndividual gives every member their own timed turn.
	ModeIndividual Mode = "individual"
	// ModeSwapPlaces gives the whole team one continuous turn of
	// perPlayerDuration x memberCount, passing the device between members.
	ModeSwapPlaces Mode = "swap_places"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIndividual, ModeSwapPlaces:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown game mode %q", s)
	}
}

// GameConfig is the immutable input to a game run. It is also the shape
// persisted in the game_config storage slot.
type GameConfig struct {
	Teams            []Team      `json:"teams"`
	PerPlayerSeconds int         `json:"per_player_seconds"`
	Mode             Mode        `json:"mode"`
	Sources          []SourceRef `json:"sources"`
	MinPopularity    int         `json:"min_popularity"`
	MinArtists       int         `json:"min_artists"`
}

var (
	ErrNoSources       = errors.New("game config: at least one artist source is required")
	ErrBadDuration     = errors.New("game config: per-player duration must be positive")
	ErrBadMinimum      = errors.New("game config: minimum artist count must be positive")
	ErrBadPopularity   = errors.New("game config: popularity floor must be within 0..100")
	ErrUnsupportedMode = errors.New("game config: unsupported mode")
)

// Validate checks the parts of the config the engine cannot default away.
// Team shortages are deliberately not an error here; the engine substitutes
// placeholder teams for those.
func (c GameConfig) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	if c.PerPlayerSeconds <= 0 {
		return ErrBadDuration
	}
	if c.MinArtists <= 0 {
		return ErrBadMinimum
	}
	if c.MinPopularity < 0 || c.MinPopularity > 100 {
		return ErrBadPopularity
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return ErrUnsupportedMode
	}
	return nil
}
