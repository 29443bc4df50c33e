// Package retry holds the polling and backoff discipline shared by every
// provider client. Waiting always goes through a Clock so tests can run the
// full pipeline without sleeping.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCeilingExceeded is returned by Poll when the policy timeout elapses
// before the polled job reaches a terminal state.
var ErrCeilingExceeded = errors.New("poll ceiling exceeded")

// Clock abstracts time for waits.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy bounds a retried or polled operation.
type Policy struct {
	MaxAttempts int           // attempts for Do; ignored by Poll
	Interval    time.Duration // wait between attempts or polls
	Timeout     time.Duration // overall ceiling for Poll; zero means no ceiling
}

func (p Policy) String() string {
	return fmt.Sprintf("attempts=%d interval=%s timeout=%s", p.MaxAttempts, p.Interval, p.Timeout)
}

// Poll calls check at the policy interval until it reports done, returns an
// error, or the timeout ceiling elapses. The first check runs immediately.
func Poll(ctx context.Context, clock Clock, p Policy, check func(ctx context.Context) (bool, error)) error {
	start := clock.Now()
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if p.Timeout > 0 && clock.Now().Sub(start)+p.Interval > p.Timeout {
			return fmt.Errorf("%w after %s", ErrCeilingExceeded, clock.Now().Sub(start))
		}
		if err := clock.Sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

// Do runs fn up to MaxAttempts times, waiting Interval between attempts, as
// long as retryable(err) holds. It returns the last error.
func Do(ctx context.Context, clock Clock, p Policy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		if sleepErr := clock.Sleep(ctx, p.Interval); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}
