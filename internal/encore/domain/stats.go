package domain

// Guess records one correct guess and how long the artist was on screen
// before it, measured from when that artist was first displayed.
type Guess struct {
	Artist         Artist  `json:"artist"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// PlayerStats accumulates one player's results across all their turns in a
// game. Mutated only by the engine during that player's active turn.
type PlayerStats struct {
	Name    string `json:"name"`
	Correct int    `json:"correct"`
	Passed  int    `json:"passed"`

	CurrentStreak        int      `json:"current_streak"`
	CurrentStreakArtists []Artist `json:"current_streak_artists,omitempty"`
	BestStreak           int      `json:"best_streak"`
	BestStreakArtists    []Artist `json:"best_streak_artists,omitempty"`

	Fastest *Guess  `json:"fastest,omitempty"`
	Guesses []Guess `json:"guesses,omitempty"`
}

// RecordCorrect folds a correct guess into the stats.
func (p *PlayerStats) RecordCorrect(g Guess) {
	p.Correct++
	p.Guesses = append(p.Guesses, g)

	p.CurrentStreak++
	p.CurrentStreakArtists = append(p.CurrentStreakArtists, g.Artist)
	if p.CurrentStreak > p.BestStreak {
		p.BestStreak = p.CurrentStreak
		p.BestStreakArtists = append([]Artist(nil), p.CurrentStreakArtists...)
	}

	if p.Fastest == nil || g.ElapsedSeconds < p.Fastest.ElapsedSeconds {
		fastest := g
		p.Fastest = &fastest
	}
}

// RecordPass breaks the current streak.
func (p *PlayerStats) RecordPass() {
	p.Passed++
	p.CurrentStreak = 0
	p.CurrentStreakArtists = nil
}

// ResetStreak clears the running streak without counting a pass, used when
// a new turn begins.
func (p *PlayerStats) ResetStreak() {
	p.CurrentStreak = 0
	p.CurrentStreakArtists = nil
}
