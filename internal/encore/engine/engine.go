// Package engine runs a game: a state machine over ready, playing,
// round-done, team-done, game-over and error phases that advances through
// players and teams, counts down each turn, records guesses and produces
// the final rankings. All mutation happens behind one mutex; callers and
// the tick scheduler are serialized through it.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/internal/encore/pool"
)

const tickInterval = time.Second

var (
	// ErrWrongPhase rejects an event the current phase does not accept.
	ErrWrongPhase = errors.New("event_not_allowed")

	// ErrGameNotOver rejects a summary request before the game ends.
	ErrGameNotOver = errors.New("game_not_over")
)

// Config wires an Engine. Game and Artists are required; the rest default
// to production implementations.
type Config struct {
	Game    domain.GameConfig
	Artists []domain.Artist

	Scheduler Scheduler
	Logger    *slog.Logger
	Now       func() time.Time

	// Notify, when set, receives a snapshot after every state change. It
	// is called outside the engine lock.
	Notify func(Snapshot)
}

// Engine owns one game run from setup to summary.
type Engine struct {
	cfg    domain.GameConfig
	sched  Scheduler
	logger *slog.Logger
	now    func() time.Time
	notify func(Snapshot)

	mu              sync.Mutex
	phase           Phase
	diag            *ShortfallDiagnostic
	defaultsApplied bool

	pool   *pool.Pool
	teams  []domain.Team
	stats  [][]*domain.PlayerStats
	scores []int

	teamIdx int
	slotIdx int

	remaining int
	// serial identifies the current turn; a tick scheduled under an older
	// serial is ignored, so a lingering timer can never end a later round.
	serial   uint64
	stopTick func()

	current domain.Artist
	shownAt time.Time
}

// New sets up a game. An under-provisioned artist pool puts the engine in
// the error phase immediately; the diagnostic is available via Snapshot.
// Play never starts from there.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:    cfg.Game,
		sched:  cfg.Scheduler,
		logger: cfg.Logger,
		now:    cfg.Now,
		notify: cfg.Notify,
	}
	if e.sched == nil {
		e.sched = NewTickerScheduler()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}

	found := 0
	for _, a := range cfg.Artists {
		if a.Popularity >= e.cfg.MinPopularity {
			found++
		}
	}
	if found < e.cfg.MinArtists {
		e.phase = PhaseError
		e.diag = &ShortfallDiagnostic{
			Found:            found,
			Needed:           e.cfg.MinArtists,
			MinPopularity:    e.cfg.MinPopularity,
			Teams:            len(e.cfg.Teams),
			Mode:             e.cfg.Mode,
			PerPlayerSeconds: e.cfg.PerPlayerSeconds,
		}
		e.logger.Warn("artist pool under-provisioned",
			"found", found,
			"needed", e.cfg.MinArtists,
			"min_popularity", e.cfg.MinPopularity,
		)
		return e
	}

	e.pool = pool.Build(cfg.Artists, e.cfg.MinPopularity, e.cfg.MinArtists)
	e.setupTeams()
	e.phase = PhaseReady
	return e
}

// setupTeams freezes the play order: valid teams are copied and shuffled,
// as is each team's member list. When no configured team can play,
// placeholder teams are substituted so the game still runs.
func (e *Engine) setupTeams() {
	var teams []domain.Team
	for _, t := range e.cfg.Teams {
		if !t.ValidForPlay() {
			continue
		}
		c := t
		c.Members = append([]string(nil), t.Members...)
		teams = append(teams, c)
	}

	if len(teams) == 0 {
		e.defaultsApplied = true
		switch e.cfg.Mode {
		case domain.ModeSwapPlaces:
			teams = []domain.Team{
				{Name: "Team 1", Members: []string{"Player 1", "Player 2"}, Enabled: true},
			}
		default:
			teams = []domain.Team{
				{Name: "Player 1", Members: []string{"Player 1"}, Enabled: true},
				{Name: "Player 2", Members: []string{"Player 2"}, Enabled: true},
			}
		}
		e.logger.Info("no playable team configured, using placeholder teams",
			"mode", string(e.cfg.Mode),
			"teams", len(teams),
		)
	}

	pool.Shuffle(teams)
	for i := range teams {
		pool.Shuffle(teams[i].Members)
	}

	e.teams = teams
	e.scores = make([]int, len(teams))
	e.stats = make([][]*domain.PlayerStats, len(teams))
	for i, t := range teams {
		if e.cfg.Mode == domain.ModeSwapPlaces {
			// The whole team plays one continuous turn; stats are kept
			// for the team as a unit.
			e.stats[i] = []*domain.PlayerStats{{Name: t.Name}}
			continue
		}
		slots := make([]*domain.PlayerStats, len(t.Members))
		for j, m := range t.Members {
			slots[j] = &domain.PlayerStats{Name: m}
		}
		e.stats[i] = slots
	}
}

// Go starts the next turn. It is accepted in the ready phase and as the
// continue signal after a round or team finishes; from the last team's
// team-done it finalizes the game instead.
func (e *Engine) Go() error {
	e.mu.Lock()

	switch e.phase {
	case PhaseReady:
	case PhaseRoundDone:
		e.slotIdx++
	case PhaseTeamDone:
		if e.teamIdx+1 >= len(e.teams) {
			e.phase = PhaseGameOver
			snap := e.snapshotLocked()
			e.mu.Unlock()
			e.emit(snap)
			return nil
		}
		e.teamIdx++
		e.slotIdx = 0
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: go in phase %s", ErrWrongPhase, e.phase)
	}

	e.startTurnLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

func (e *Engine) startTurnLocked() {
	e.phase = PhasePlaying

	e.remaining = e.cfg.PerPlayerSeconds
	if e.cfg.Mode == domain.ModeSwapPlaces {
		e.remaining = e.cfg.PerPlayerSeconds * len(e.teams[e.teamIdx].Members)
	}

	e.stats[e.teamIdx][e.slotIdx].ResetStreak()
	e.advanceArtistLocked()

	e.serial++
	serial := e.serial
	e.stopTick = e.sched.Every(tickInterval, func() { e.tick(serial) })

	e.logger.Info("turn started",
		"team", e.teams[e.teamIdx].Name,
		"player", e.stats[e.teamIdx][e.slotIdx].Name,
		"seconds", e.remaining,
	)
}

// Correct scores the current artist for the active team, extends the
// player's streak and moves to the next artist.
func (e *Engine) Correct() error {
	e.mu.Lock()
	if e.phase != PhasePlaying {
		e.mu.Unlock()
		return fmt.Errorf("%w: correct in phase %s", ErrWrongPhase, e.phase)
	}

	g := domain.Guess{
		Artist:         e.current,
		ElapsedSeconds: e.now().Sub(e.shownAt).Seconds(),
	}
	e.stats[e.teamIdx][e.slotIdx].RecordCorrect(g)
	e.scores[e.teamIdx]++
	e.advanceArtistLocked()

	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Pass skips the current artist, breaking the streak. No score change.
func (e *Engine) Pass() error {
	e.mu.Lock()
	if e.phase != PhasePlaying {
		e.mu.Unlock()
		return fmt.Errorf("%w: pass in phase %s", ErrWrongPhase, e.phase)
	}

	e.stats[e.teamIdx][e.slotIdx].RecordPass()
	e.advanceArtistLocked()

	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// End force-finishes the current turn before the clock runs out.
func (e *Engine) End() error {
	e.mu.Lock()
	if e.phase != PhasePlaying {
		e.mu.Unlock()
		return fmt.Errorf("%w: end in phase %s", ErrWrongPhase, e.phase)
	}

	e.endTurnLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Stop cancels any running countdown without changing phase. Used at
// teardown so no timer goroutine outlives the engine's owner.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.cancelTickLocked()
	e.mu.Unlock()
}

// tick is the countdown callback. Ticks from a previous turn carry a stale
// serial and are dropped.
func (e *Engine) tick(serial uint64) {
	e.mu.Lock()
	if e.phase != PhasePlaying || serial != e.serial {
		e.mu.Unlock()
		return
	}

	e.remaining--
	if e.remaining > 0 {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.emit(snap)
		return
	}

	e.remaining = 0
	e.endTurnLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
}

func (e *Engine) endTurnLocked() {
	e.cancelTickLocked()

	team := e.teams[e.teamIdx]
	switch {
	case e.cfg.Mode == domain.ModeSwapPlaces:
		e.phase = PhaseTeamDone
	case e.slotIdx+1 < len(e.stats[e.teamIdx]):
		e.phase = PhaseRoundDone
	default:
		e.phase = PhaseTeamDone
	}

	e.logger.Info("turn ended",
		"team", team.Name,
		"player", e.stats[e.teamIdx][e.slotIdx].Name,
		"score", e.scores[e.teamIdx],
		"phase", string(e.phase),
	)
}

// cancelTickLocked stops the countdown and invalidates any tick already in
// flight. Idempotent.
func (e *Engine) cancelTickLocked() {
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
	e.serial++
}

func (e *Engine) advanceArtistLocked() {
	if a, ok := e.pool.Next(); ok {
		e.current = a
		e.shownAt = e.now()
	}
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Snapshot returns a read-only copy of the observable game state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:            e.phase,
		Mode:             e.cfg.Mode,
		DefaultsApplied:  e.defaultsApplied,
		RemainingSeconds: e.remaining,
	}

	if e.diag != nil {
		d := *e.diag
		s.Diagnostic = &d
		return s
	}

	s.Scores = make([]TeamScore, len(e.teams))
	for i, t := range e.teams {
		s.Scores[i] = TeamScore{Team: t.Name, Score: e.scores[i]}
	}

	if e.phase != PhaseGameOver {
		s.Team = e.teams[e.teamIdx].Name
		s.Player = e.stats[e.teamIdx][e.slotIdx].Name
	}
	if e.phase == PhasePlaying {
		a := e.current
		s.CurrentArtist = &a
		ps := *e.stats[e.teamIdx][e.slotIdx]
		s.PlayerStats = &ps
	}
	return s
}

// Summary computes the final rankings and game-wide highlights. Only valid
// once the game is over.
func (e *Engine) Summary() (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseGameOver {
		return Summary{}, ErrGameNotOver
	}

	sum := Summary{DefaultsApplied: e.defaultsApplied}

	sum.Rankings = make([]TeamScore, len(e.teams))
	for i, t := range e.teams {
		sum.Rankings[i] = TeamScore{Team: t.Name, Score: e.scores[i]}
	}
	sort.SliceStable(sum.Rankings, func(i, j int) bool {
		return sum.Rankings[i].Score > sum.Rankings[j].Score
	})

	for i, slots := range e.stats {
		team := e.teams[i].Name
		for _, ps := range slots {
			sum.Players = append(sum.Players, *ps)

			if ps.Fastest != nil &&
				(sum.Fastest == nil || ps.Fastest.ElapsedSeconds < sum.Fastest.Guess.ElapsedSeconds) {
				sum.Fastest = &FastestHighlight{
					PlayerHighlight: PlayerHighlight{Team: team, Player: ps.Name},
					Guess:           *ps.Fastest,
				}
			}
			if ps.BestStreak > 0 &&
				(sum.BestStreak == nil || ps.BestStreak > sum.BestStreak.Length) {
				sum.BestStreak = &StreakHighlight{
					PlayerHighlight: PlayerHighlight{Team: team, Player: ps.Name},
					Length:          ps.BestStreak,
					Artists:         append([]domain.Artist(nil), ps.BestStreakArtists...),
				}
			}
		}
	}

	return sum, nil
}

func (e *Engine) emit(s Snapshot) {
	if e.notify != nil {
		e.notify(s)
	}
}
