package engine_test

import (
	"testing"
	"time"

	"github.com/encoreparty/encore/internal/encore/engine"
)

func TestTickerScheduler(t *testing.T) {
	t.Parallel()

	t.Run("fires repeatedly until stopped", func(t *testing.T) {
		t.Parallel()

		fired := make(chan struct{}, 16)
		stop := engine.NewTickerScheduler().Every(5*time.Millisecond, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		defer stop()

		for i := 0; i < 3; i++ {
			select {
			case <-fired:
			case <-time.After(time.Second):
				t.Fatal("tick never fired")
			}
		}
	})

	t.Run("stop is idempotent and ends ticking", func(t *testing.T) {
		t.Parallel()

		fired := make(chan struct{}, 16)
		stop := engine.NewTickerScheduler().Every(5*time.Millisecond, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})

		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("tick never fired")
		}

		stop()
		stop()

		// Drain anything already in flight, then expect silence.
		time.Sleep(20 * time.Millisecond)
		for len(fired) > 0 {
			<-fired
		}
		select {
		case <-fired:
			t.Fatal("tick fired after stop")
		case <-time.After(30 * time.Millisecond):
		}
	})
}
