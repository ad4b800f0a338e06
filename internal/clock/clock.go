// Package clock abstracts wall time so that budgets, delays and cache
// expiry can be driven from tests.
package clock

import (
	"context"
	"time"
)

// Clock reports the current time and sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type system struct{}

// System returns the real clock.
func System() Clock { return system{} }

func (system) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done, whichever comes first.
func (system) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
