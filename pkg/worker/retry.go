package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
)

// newRetryPolicy returns the completion backoff: base, 2*base, 4*base, ...
// without jitter, stopping after maxAttempts-1 retries or when ctx is done.
func newRetryPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.RetryBaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         cfg.RetryBaseDelay << maxAttempts(cfg),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts(cfg)-1)), ctx)
}

func maxAttempts(cfg Config) int {
	if cfg.MaxAttempts < 1 {
		return 1
	}
	return cfg.MaxAttempts
}

// retryCompletion calls the completer until it succeeds, fails with a
// permanent error, or runs out of attempts. Once attempts are exhausted the
// returned error wraps both ErrRetriesExhausted and the last failure.
func (p *Processor) retryCompletion(ctx context.Context, provider llm.Provider, model, prompt string, fields map[string]interface{}) (string, int, error) {
	attempt := 0

	op := func() (string, error) {
		attempt++
		text, err := p.completer.Complete(ctx, provider, model, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	notify := func(err error, next time.Duration) {
		p.logger.WarnWithContext(ctx, "completion attempt failed, retrying", err, withFields(fields, map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts(p.cfg),
			"retry_in":     next.String(),
		}))
	}

	text, err := backoff.RetryNotifyWithData(op, newRetryPolicy(ctx, p.cfg), notify)
	if err == nil {
		return text, attempt, nil
	}
	if ctx.Err() == nil && attempt >= maxAttempts(p.cfg) && IsTransient(err) {
		return "", attempt, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	return "", attempt, err
}

func withFields(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
