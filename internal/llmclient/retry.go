package llmclient

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// retryPolicy is the exponential-backoff-with-jitter policy from spec
// §4.1: retry abort_timeout/provider_5xx up to MaxRetries additional
// attempts, starting at InitialDelay. Adapted from the teacher's
// llm/retry/backoff.go, narrowed to the classification this package uses.
type retryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	jitter := d * 0.25
	d += (rand.Float64()*2 - 1) * jitter
	if d < float64(p.InitialDelay) {
		d = float64(p.InitialDelay)
	}
	return time.Duration(d)
}

// retryer runs fn under policy, retrying only errors classified as
// retriable by isRetriable (abort_timeout, provider_5xx per §4.1).
type retryer struct {
	policy retryPolicy
	logger *zap.Logger
}

func newRetryer(policy retryPolicy, logger *zap.Logger) *retryer {
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 50 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 150 * time.Millisecond
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2.0
	}
	return &retryer{policy: policy, logger: logger}
}

func (r *retryer) do(ctx context.Context, purpose string, fn func(attempt int) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.policy.delay(attempt)
			r.logger.Debug("llm_retry",
				zap.String("purpose", purpose),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("llm retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetriable(err) {
			return nil, err
		}
		if attempt >= r.policy.MaxRetries {
			break
		}
	}
	return nil, lastErr
}
