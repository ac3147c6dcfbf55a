package engine_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/internal/encore/engine"
	"github.com/stretchr/testify/require"
)

// manualScheduler hands the tick callback to the test instead of running a
// ticker. Stale callbacks stay invokable on purpose so tests can prove the
// engine ignores them.
type manualScheduler struct {
	mu      sync.Mutex
	fn      func()
	stopped int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.stopped++
		s.mu.Unlock()
	}
}

// Tick fires the most recently scheduled callback, live or not.
func (s *manualScheduler) Tick() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *manualScheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func (s *manualScheduler) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func makeArtists(n int) []domain.Artist {
	out := make([]domain.Artist, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Artist{
			ID:         fmt.Sprintf("artist-%d", i),
			Name:       fmt.Sprintf("Artist %d", i),
			Popularity: 50,
		})
	}
	return out
}

func team(name string, members ...string) domain.Team {
	return domain.Team{Name: name, Members: members, Enabled: true}
}

type fixture struct {
	eng   *engine.Engine
	sched *manualScheduler
	clock *fakeClock
}

func newFixture(t *testing.T, game domain.GameConfig, artistCount int) *fixture {
	t.Helper()

	f := &fixture{sched: &manualScheduler{}, clock: newFakeClock()}
	f.eng = engine.New(engine.Config{
		Game:      game,
		Artists:   makeArtists(artistCount),
		Scheduler: f.sched,
		Now:       f.clock.Now,
	})
	return f
}

func baseConfig(mode domain.Mode, teams ...domain.Team) domain.GameConfig {
	return domain.GameConfig{
		Teams:            teams,
		PerPlayerSeconds: 10,
		Mode:             mode,
		Sources:          []domain.SourceRef{{Kind: domain.SourceTopArtists}},
		MinPopularity:    0,
		MinArtists:       3,
	}
}

func TestIndividualGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 3)
	require.Equal(t, engine.PhaseReady, f.eng.Phase())

	require.NoError(t, f.eng.Go())
	snap := f.eng.Snapshot()
	require.Equal(t, engine.PhasePlaying, snap.Phase)
	require.Equal(t, 10, snap.RemainingSeconds)
	require.NotNil(t, snap.CurrentArtist)
	firstPlayer := snap.Player

	// Two correct guesses inside the round.
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.Correct())
	snap = f.eng.Snapshot()
	require.Equal(t, 2, snap.Scores[0].Score)
	require.Equal(t, 2, snap.PlayerStats.CurrentStreak)
	require.Equal(t, 2, snap.PlayerStats.BestStreak)

	// Third draw exhausts the 3-artist pool; the next advance reshuffles
	// and keeps playing instead of ending the round.
	require.NoError(t, f.eng.Pass())
	require.NoError(t, f.eng.Correct())
	require.Equal(t, engine.PhasePlaying, f.eng.Phase())

	// The round ends only when the clock runs out.
	f.sched.TickN(9)
	require.Equal(t, engine.PhasePlaying, f.eng.Phase())
	require.Equal(t, 1, f.eng.Snapshot().RemainingSeconds)
	f.sched.Tick()
	require.Equal(t, engine.PhaseRoundDone, f.eng.Phase())
	require.Equal(t, 0, f.eng.Snapshot().RemainingSeconds)

	// Second member's turn.
	require.NoError(t, f.eng.Go())
	snap = f.eng.Snapshot()
	require.Equal(t, engine.PhasePlaying, snap.Phase)
	require.NotEqual(t, firstPlayer, snap.Player)
	require.Equal(t, 0, snap.PlayerStats.CurrentStreak)

	require.NoError(t, f.eng.Correct())
	f.sched.TickN(10)
	require.Equal(t, engine.PhaseTeamDone, f.eng.Phase())

	// Last team done: continue finalizes.
	require.NoError(t, f.eng.Go())
	require.Equal(t, engine.PhaseGameOver, f.eng.Phase())

	sum, err := f.eng.Summary()
	require.NoError(t, err)
	require.Len(t, sum.Rankings, 1)
	// Final score equals the total number of correct signals.
	require.Equal(t, 4, sum.Rankings[0].Score)
	require.Equal(t, 2, sum.BestStreak.Length)
	require.Len(t, sum.BestStreak.Artists, 2)
}

func TestSwapPlacesGame(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(domain.ModeSwapPlaces, team("Trio", "Ana", "Ben", "Cas"))
	cfg.PerPlayerSeconds = 5
	f := newFixture(t, cfg, 5)

	require.NoError(t, f.eng.Go())
	snap := f.eng.Snapshot()
	require.Equal(t, engine.PhasePlaying, snap.Phase)
	// Whole team shares one turn of perPlayer x members.
	require.Equal(t, 15, snap.RemainingSeconds)
	require.Equal(t, "Trio", snap.Player)

	f.sched.TickN(14)
	require.Equal(t, engine.PhasePlaying, f.eng.Phase())
	f.sched.Tick()

	// No per-member round summary in swap mode; the team finishes as one.
	require.Equal(t, engine.PhaseTeamDone, f.eng.Phase())

	require.NoError(t, f.eng.Go())
	require.Equal(t, engine.PhaseGameOver, f.eng.Phase())
}

func TestDefaultTeams(t *testing.T) {
	t.Parallel()

	t.Run("individual mode synthesizes two solo teams", func(t *testing.T) {
		t.Parallel()

		// One-member and disabled teams are not playable.
		cfg := baseConfig(domain.ModeIndividual,
			team("Solo", "Zoe"),
			domain.Team{Name: "Off", Members: []string{"A", "B"}, Enabled: false},
		)
		f := newFixture(t, cfg, 5)

		snap := f.eng.Snapshot()
		require.Equal(t, engine.PhaseReady, snap.Phase)
		require.True(t, snap.DefaultsApplied)
		require.Len(t, snap.Scores, 2)
		require.NotEqual(t, snap.Scores[0].Team, snap.Scores[1].Team)

		require.NoError(t, f.eng.Go())
		require.Equal(t, engine.PhasePlaying, f.eng.Phase())
	})

	t.Run("swap mode synthesizes one two-member team", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, baseConfig(domain.ModeSwapPlaces), 5)

		snap := f.eng.Snapshot()
		require.True(t, snap.DefaultsApplied)
		require.Len(t, snap.Scores, 1)

		require.NoError(t, f.eng.Go())
		require.Equal(t, 20, f.eng.Snapshot().RemainingSeconds)
	})
}

func TestInsufficientArtists(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob"))
	cfg.MinArtists = 20
	f := newFixture(t, cfg, 5)

	require.Equal(t, engine.PhaseError, f.eng.Phase())

	snap := f.eng.Snapshot()
	require.NotNil(t, snap.Diagnostic)
	require.Equal(t, 5, snap.Diagnostic.Found)
	require.Equal(t, 20, snap.Diagnostic.Needed)
	require.Equal(t, 1, snap.Diagnostic.Teams)
	require.NotEmpty(t, snap.Diagnostic.Remedies())

	// Playing is never reached.
	require.ErrorIs(t, f.eng.Go(), engine.ErrWrongPhase)
	require.ErrorIs(t, f.eng.Correct(), engine.ErrWrongPhase)
}

func TestPopularityFloorCountsBeforeTrim(t *testing.T) {
	t.Parallel()

	artists := makeArtists(10)
	for i := 0; i < 6; i++ {
		artists[i].Popularity = 10
	}

	eng := engine.New(engine.Config{
		Game: domain.GameConfig{
			Teams:            []domain.Team{team("Duo", "A", "B")},
			PerPlayerSeconds: 10,
			Mode:             domain.ModeIndividual,
			Sources:          []domain.SourceRef{{Kind: domain.SourceTopArtists}},
			MinPopularity:    30,
			MinArtists:       5,
		},
		Artists:   artists,
		Scheduler: &manualScheduler{},
	})

	require.Equal(t, engine.PhaseError, eng.Phase())
	require.Equal(t, 4, eng.Snapshot().Diagnostic.Found)
}

func TestTimerEndsRoundExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 3)
	require.NoError(t, f.eng.Go())

	f.sched.TickN(10)
	require.Equal(t, engine.PhaseRoundDone, f.eng.Phase())
	require.Equal(t, 1, f.sched.stopCount())

	// A lingering tick from the finished turn must be a no-op.
	f.sched.TickN(3)
	require.Equal(t, engine.PhaseRoundDone, f.eng.Phase())
	require.Equal(t, 0, f.eng.Snapshot().RemainingSeconds)

	// The next turn is unaffected by the stale callback having fired.
	require.NoError(t, f.eng.Go())
	require.Equal(t, 10, f.eng.Snapshot().RemainingSeconds)
}

func TestStaleTickDuringNextTurn(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 3)
	require.NoError(t, f.eng.Go())

	// Capture the first turn's callback, end the turn early, start the
	// next one, then fire the stale callback.
	f.sched.mu.Lock()
	stale := f.sched.fn
	f.sched.mu.Unlock()

	require.NoError(t, f.eng.End())
	require.Equal(t, engine.PhaseRoundDone, f.eng.Phase())
	require.NoError(t, f.eng.Go())
	require.Equal(t, 10, f.eng.Snapshot().RemainingSeconds)

	stale()
	require.Equal(t, 10, f.eng.Snapshot().RemainingSeconds)
}

func TestStreaks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 5)
	require.NoError(t, f.eng.Go())

	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.Pass())

	snap := f.eng.Snapshot()
	require.Equal(t, 0, snap.PlayerStats.CurrentStreak)
	require.Equal(t, 2, snap.PlayerStats.BestStreak)
	require.Equal(t, 1, snap.PlayerStats.Passed)

	// A shorter later streak does not displace the best.
	require.NoError(t, f.eng.Correct())
	snap = f.eng.Snapshot()
	require.Equal(t, 1, snap.PlayerStats.CurrentStreak)
	require.Equal(t, 2, snap.PlayerStats.BestStreak)
	require.GreaterOrEqual(t, snap.PlayerStats.BestStreak, snap.PlayerStats.CurrentStreak)
}

func TestFastestGuessPerArtist(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 5)
	require.NoError(t, f.eng.Go())

	// Elapsed time is measured from when each artist appeared, not from
	// round start.
	f.clock.Advance(4 * time.Second)
	require.NoError(t, f.eng.Correct())
	f.clock.Advance(1 * time.Second)
	require.NoError(t, f.eng.Correct())

	snap := f.eng.Snapshot()
	require.NotNil(t, snap.PlayerStats.Fastest)
	require.InDelta(t, 1.0, snap.PlayerStats.Fastest.ElapsedSeconds, 0.001)
}

func TestSummaryHighlights(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob"))
	f := newFixture(t, cfg, 5)

	// First player: three correct with a 2s fastest.
	require.NoError(t, f.eng.Go())
	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.End())

	// Second player: one quick correct.
	require.NoError(t, f.eng.Go())
	f.clock.Advance(500 * time.Millisecond)
	require.NoError(t, f.eng.Correct())
	require.NoError(t, f.eng.End())
	require.NoError(t, f.eng.Go())

	sum, err := f.eng.Summary()
	require.NoError(t, err)
	require.Equal(t, 4, sum.Rankings[0].Score)
	require.Equal(t, 3, sum.BestStreak.Length)
	require.InDelta(t, 0.5, sum.Fastest.Guess.ElapsedSeconds, 0.001)
	require.Len(t, sum.Players, 2)
}

func TestEventPhaseGuards(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 5)

	require.ErrorIs(t, f.eng.Correct(), engine.ErrWrongPhase)
	require.ErrorIs(t, f.eng.Pass(), engine.ErrWrongPhase)
	require.ErrorIs(t, f.eng.End(), engine.ErrWrongPhase)

	_, err := f.eng.Summary()
	require.ErrorIs(t, err, engine.ErrGameNotOver)

	require.NoError(t, f.eng.Go())
	require.ErrorIs(t, f.eng.Go(), engine.ErrWrongPhase)
}

func TestNotify(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var phases []engine.Phase

	sched := &manualScheduler{}
	eng := engine.New(engine.Config{
		Game:      baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")),
		Artists:   makeArtists(5),
		Scheduler: sched,
		Notify: func(s engine.Snapshot) {
			mu.Lock()
			phases = append(phases, s.Phase)
			mu.Unlock()
		},
	})

	require.NoError(t, eng.Go())
	require.NoError(t, eng.Correct())
	sched.TickN(10)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, engine.PhasePlaying, phases[0])
	require.Equal(t, engine.PhaseRoundDone, phases[len(phases)-1])
	// One snapshot per tick plus the go and correct events.
	require.Len(t, phases, 12)
}

func TestStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, baseConfig(domain.ModeIndividual, team("Duo", "Alice", "Bob")), 5)
	require.NoError(t, f.eng.Go())

	f.eng.Stop()
	require.Equal(t, 1, f.sched.stopCount())

	// A tick surviving teardown changes nothing.
	f.sched.Tick()
	require.Equal(t, 10, f.eng.Snapshot().RemainingSeconds)
}
