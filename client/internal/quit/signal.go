// Package quit holds the process-wide shutdown signal shared by the update
// pipeline and the status surface.
package quit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Signal is a one-shot cancellation flag. Once set it stays set.
type Signal struct {
	requested atomic.Bool
	once      sync.Once
	done      chan struct{}
}

func NewSignal() *Signal {
	return &Signal{
		done: make(chan struct{}),
	}
}

// Set requests shutdown. Calling it more than once has no further effect.
func (s *Signal) Set() {
	s.once.Do(func() {
		s.requested.Store(true)
		close(s.done)
	})
}

// IsSet is a non-blocking read of the flag.
func (s *Signal) IsSet() bool {
	return s.requested.Load()
}

// Done is closed once the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Wait sleeps for d in steps of at most granularity, checking the flag before
// every step. It returns true if the wait was cut short by a shutdown request.
func (s *Signal) Wait(d, granularity time.Duration) bool {
	if granularity <= 0 {
		granularity = d
	}

	start := time.Now()
	for {
		if s.IsSet() {
			return true
		}

		remaining := d - time.Since(start)
		if remaining <= 0 {
			return false
		}

		step := granularity
		if remaining < step {
			step = remaining
		}

		timer := time.NewTimer(step)
		select {
		case <-timer.C:
		case <-s.done:
			timer.Stop()
			return true
		}
	}
}
