package engine

import (
	"sync"
	"time"
)

// Scheduler drives the one-second countdown. The engine owns exactly one
// subscription per turn and cancels it on every exit from play, so a tick
// can never outlive the turn that scheduled it.
type Scheduler interface {
	// Every invokes fn once per interval until the returned stop function
	// is called. stop is idempotent.
	Every(interval time.Duration, fn func()) (stop func())
}

type tickerScheduler struct{}

// NewTickerScheduler returns the production Scheduler backed by
// time.Ticker.
func NewTickerScheduler() Scheduler {
	return tickerScheduler{}
}

func (tickerScheduler) Every(interval time.Duration, fn func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
