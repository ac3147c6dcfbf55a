package domain

import "github.com/encoreparty/encore/pkg/idx"

// Team is a configured group of players. Member order is the turn order
// after the engine shuffles it at game start.
type Team struct {
	ID      idx.ID   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Enabled bool     `json:"enabled"`
}

// ValidForPlay reports whether the team can take part in a game: it must be
// enabled and have at least two members.
func (t Team) ValidForPlay() bool {
	return t.Enabled && len(t.Members) >= 2
}
