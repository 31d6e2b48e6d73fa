package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadThrottle_Unlimited(t *testing.T) {
	throttle := NewReadThrottle(0, 4)
	require.Nil(t, throttle)

	for i := 0; i < 50; i++ {
		require.NoError(t, throttle.Acquire(context.Background()))
	}
	assert.Equal(t, 0, throttle.Burst())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, throttle.Acquire(ctx), context.Canceled)
}

func TestReadThrottle_PacesAfterBurst(t *testing.T) {
	throttle := NewReadThrottle(20, 2)
	require.NotNil(t, throttle)
	assert.Equal(t, 2, throttle.Burst())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, throttle.Acquire(context.Background()))
	}
	// The third read waits for one refill at 20/s.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestReadThrottle_BurstAtLeastOne(t *testing.T) {
	assert.Equal(t, 1, NewReadThrottle(5, 0).Burst())
}

func TestReadThrottle_CancelledWhileWaiting(t *testing.T) {
	throttle := NewReadThrottle(0.5, 1)
	require.NoError(t, throttle.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, throttle.Acquire(ctx))
}
