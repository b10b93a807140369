package copyvio

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Clock is the detector's view of time. Tests substitute a fake to observe
// rate limiting without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// pacer spaces search queries at least interval apart. Time spent between
// queries (fetching, scoring) counts toward the interval; only the remaining
// deficit is slept.
type pacer struct {
	lim   *rate.Limiter
	clock Clock
}

// newPacer returns nil, meaning no waiting, for a non-positive interval.
func newPacer(interval time.Duration, clock Clock) *pacer {
	if interval <= 0 {
		return nil
	}
	return &pacer{lim: rate.NewLimiter(rate.Every(interval), 1), clock: clock}
}

// wait blocks until the next query may be issued. The first call of a fresh
// pacer returns at once.
func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	now := p.clock.Now()
	r := p.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		r.CancelAt(now)
		return ctx.Err()
	case <-p.clock.After(delay):
		return nil
	}
}
