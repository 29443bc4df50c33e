package session

import (
	"time"

	"presenter-studio/internal/retry"
)

// CoolingGate spaces provider submissions of one session at least Period
// apart.
type CoolingGate struct {
	Period time.Duration
	Clock  retry.Clock
}

// Remaining is how long a submission still has to wait after the last
// provider activity at last.
func (g CoolingGate) Remaining(last *time.Time) time.Duration {
	if last == nil || g.Period <= 0 {
		return 0
	}
	wait := last.Add(g.Period).Sub(g.Clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}
