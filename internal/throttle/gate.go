// Package throttle bounds the total outbound call rate to the exchange.
// One shared Gate serves every component: scanning, entries, order polling
// and position monitoring all draw from the same token bucket.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Gate is a shared token-bucket throttle over exchange calls. It bounds
// rate, not mutual exclusion: concurrent callers block only until the
// bucket refills. No caller is starved as long as the rate is positive.
type Gate struct {
	lim     *rate.Limiter
	maxWait time.Duration
}

// NewGate creates a gate allowing perSecond requests with the given burst.
// maxWait is the acquisition ceiling: waits longer than this fail with
// domain.ErrRateGateTimeout and the underlying call must not be attempted.
// maxWait <= 0 means wait indefinitely.
func NewGate(perSecond float64, burst int, maxWait time.Duration) *Gate {
	if burst < 1 {
		burst = 1
	}
	return &Gate{
		lim:     rate.NewLimiter(rate.Limit(perSecond), burst),
		maxWait: maxWait,
	}
}

// Acquire blocks until the rate budget allows one request, the wait ceiling
// elapses, or ctx is canceled.
func (g *Gate) Acquire(ctx context.Context) error {
	wctx := ctx
	if g.maxWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, g.maxWait)
		defer cancel()
	}

	if err := g.lim.Wait(wctx); err != nil {
		// Distinguish caller cancellation from hitting the ceiling.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrRateGateTimeout, err)
	}
	return nil
}
