// Package pool builds and cycles the artist pool the game engine draws
// from. Records below the popularity floor are dropped, oversized pools are
// trimmed from the least-popular end, and the survivors are shuffled. The
// pool never runs dry mid-round: consuming the last entry reshuffles and
// wraps around.
package pool

import (
	"crypto/rand"
	"sort"
	"sync"

	"github.com/encoreparty/encore/internal/encore/domain"
)

// Pool is a cyclic, shuffled sequence of artists. Safe for use from a
// single goroutine; the engine serializes access behind its own lock.
type Pool struct {
	mu      sync.Mutex
	artists []domain.Artist
	next    int
}

// Build filters, trims and shuffles raw artist records into a playable
// pool. Records with popularity below minPopularity are dropped. When more
// than maxSize survive the filter, only the maxSize most popular are kept
// so the retained set skews recognizable. maxSize <= 0 means unbounded.
func Build(raw []domain.Artist, minPopularity, maxSize int) *Pool {
	kept := make([]domain.Artist, 0, len(raw))
	for _, a := range raw {
		if a.Popularity >= minPopularity {
			kept = append(kept, a)
		}
	}

	if maxSize > 0 && len(kept) > maxSize {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Popularity > kept[j].Popularity
		})
		kept = kept[:maxSize]
	}

	Shuffle(kept)
	return &Pool{artists: kept}
}

// Size reports how many distinct artists the pool cycles through.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.artists)
}

// Next returns the next artist in the current cycle. Exhausting the pool
// reshuffles it and restarts from the top rather than failing, so a round
// can always run out its clock. ok is false only for an empty pool.
func (p *Pool) Next() (domain.Artist, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.artists) == 0 {
		return domain.Artist{}, false
	}

	if p.next >= len(p.artists) {
		shuffle(p.artists)
		p.next = 0
	}

	a := p.artists[p.next]
	p.next++
	return a, true
}

// Shuffle permutes s in place with a uniform Fisher-Yates pass driven by
// crypto/rand. The engine reuses it for team and member ordering.
func Shuffle[T any](s []T) {
	shuffle(s)
}

func shuffle[T any](s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := randIntn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// randIntn returns a uniform value in [0, n) using rejection sampling so
// no residue class is favored.
func randIntn(n int) int {
	full := ^uint32(0)
	limit := full - full%uint32(n)
	var b [4]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand failing is unrecoverable on every supported
			// platform; fairness of a party game does not warrant a
			// fallback generator.
			panic("pool: crypto/rand failure: " + err.Error())
		}
		v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		if v < limit {
			return int(v % uint32(n))
		}
	}
}
