package pool_test

import (
	"fmt"
	"testing"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/internal/encore/pool"
	"github.com/stretchr/testify/require"
)

func artists(pops ...int) []domain.Artist {
	out := make([]domain.Artist, 0, len(pops))
	for i, p := range pops {
		out = append(out, domain.Artist{
			ID:         fmt.Sprintf("artist-%d", i),
			Name:       fmt.Sprintf("Artist %d", i),
			Popularity: p,
		})
	}
	return out
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("drops records below the popularity floor", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(artists(10, 50, 49, 90), 50, 0)
		require.Equal(t, 2, p.Size())

		seen := map[int]bool{}
		for i, n := 0, p.Size(); i < n; i++ {
			a, ok := p.Next()
			require.True(t, ok)
			seen[a.Popularity] = true
		}
		require.Equal(t, map[int]bool{50: true, 90: true}, seen)
	})

	t.Run("trims the least popular slice when oversized", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(artists(5, 80, 40, 95, 60), 0, 3)
		require.Equal(t, 3, p.Size())

		for i, n := 0, p.Size(); i < n; i++ {
			a, ok := p.Next()
			require.True(t, ok)
			require.GreaterOrEqual(t, a.Popularity, 60)
		}
	})

	t.Run("zero max size keeps everything", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(artists(1, 2, 3, 4, 5), 0, 0)
		require.Equal(t, 5, p.Size())
	})
}

func TestNext(t *testing.T) {
	t.Parallel()

	t.Run("yields each artist once per cycle", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(artists(10, 20, 30, 40), 0, 0)

		seen := map[string]int{}
		for i := 0; i < 4; i++ {
			a, ok := p.Next()
			require.True(t, ok)
			seen[a.ID]++
		}
		require.Len(t, seen, 4)
		for id, n := range seen {
			require.Equal(t, 1, n, "artist %s drawn %d times in one cycle", id, n)
		}
	})

	t.Run("reshuffles and wraps on exhaustion", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(artists(10, 20, 30), 0, 0)

		for i := 0; i < 3; i++ {
			_, ok := p.Next()
			require.True(t, ok)
		}

		// Second cycle keeps producing the same distinct set.
		seen := map[string]bool{}
		for i := 0; i < 3; i++ {
			a, ok := p.Next()
			require.True(t, ok)
			seen[a.ID] = true
		}
		require.Len(t, seen, 3)
	})

	t.Run("empty pool reports not ok", func(t *testing.T) {
		t.Parallel()

		p := pool.Build(nil, 0, 0)
		_, ok := p.Next()
		require.False(t, ok)
	})
}

func TestShuffle(t *testing.T) {
	t.Parallel()

	t.Run("preserves elements", func(t *testing.T) {
		t.Parallel()

		s := []int{1, 2, 3, 4, 5, 6, 7, 8}
		pool.Shuffle(s)

		seen := map[int]bool{}
		for _, v := range s {
			seen[v] = true
		}
		require.Len(t, seen, 8)
	})

	t.Run("permutes large inputs", func(t *testing.T) {
		t.Parallel()

		orig := make([]int, 128)
		for i := range orig {
			orig[i] = i
		}
		s := append([]int(nil), orig...)
		pool.Shuffle(s)

		// A fixed-point permutation of 128 elements is vanishingly
		// unlikely under a uniform shuffle.
		require.NotEqual(t, orig, s)
	})

	t.Run("handles degenerate sizes", func(t *testing.T) {
		t.Parallel()

		pool.Shuffle([]int{})
		one := []int{42}
		pool.Shuffle(one)
		require.Equal(t, []int{42}, one)
	})
}
