package worker

import "time"

// Config controls how the processor retries completions.
type Config struct {
	// MaxAttempts is the total number of completion calls per delivery
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"5"`

	// RetryBaseDelay is the wait after the first failed attempt; it doubles
	// on every further attempt (2s, 4s, 8s, 16s with the default)
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"2s"`
}
