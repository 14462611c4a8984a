package rabbit

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxReconnectDelay = 60 * time.Second

// newReconnectBackOff returns the recovery schedule shared by the
// supervisor and the consuming channels: 1s, 2s, 4s ... capped at 60s,
// without jitter and without giving up.
func newReconnectBackOff() backoff.BackOff {
	return newExponentialBackOff(time.Second, maxReconnectDelay)
}

// newPublishBackOff returns base, 2*base, 4*base ... for at most
// maxAttempts-1 retries of a single reply.
func newPublishBackOff(base time.Duration, maxAttempts int) backoff.BackOff {
	retries := 0
	if maxAttempts > 1 {
		retries = maxAttempts - 1
	}
	return backoff.WithMaxRetries(newExponentialBackOff(base, 0), uint64(retries))
}

func newExponentialBackOff(initial, max time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	if max <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.Reset()
	return b
}
