package util

import (
	"context"

	"golang.org/x/time/rate"
)

// ReadThrottle paces source file reads so a large tree does not saturate
// slow or network-mounted disks. A nil ReadThrottle never blocks.
type ReadThrottle struct {
	limiter *rate.Limiter
}

// NewReadThrottle allows perSecond reads with bursts of up to burst reads.
// It returns nil when perSecond is not positive.
func NewReadThrottle(perSecond float64, burst int) *ReadThrottle {
	if perSecond <= 0 {
		return nil
	}
	return &ReadThrottle{limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Acquire blocks until one read may proceed or ctx ends.
func (t *ReadThrottle) Acquire(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

// Burst reports how many reads may start back to back.
func (t *ReadThrottle) Burst() int {
	if t == nil {
		return 0
	}
	return t.limiter.Burst()
}
