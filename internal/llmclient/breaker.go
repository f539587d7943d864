package llmclient

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// breakerState mirrors the Closed/Open/HalfOpen state machine of the
// teacher's llm/circuitbreaker/breaker.go, kept private to this package:
// one breaker instance guards each LLM purpose independently so a string
// of route-mapper timeouts doesn't trip the gate stage's breaker.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

type breakerConfig struct {
	Threshold        int
	ResetTimeout     time.Duration
	HalfOpenMaxCalls int
}

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{Threshold: 5, ResetTimeout: 60 * time.Second, HalfOpenMaxCalls: 3}
}

type circuitBreaker struct {
	cfg    breakerConfig
	logger *zap.Logger
	name   string

	mu                sync.Mutex
	state             breakerState
	failureCount      int
	lastFailureTime   time.Time
	halfOpenCallCount int
}

func newCircuitBreaker(name string, cfg breakerConfig, logger *zap.Logger) *circuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 3
	}
	return &circuitBreaker{cfg: cfg, logger: logger, name: name}
}

var errCircuitOpen = &breakerError{"circuit breaker open"}
var errTooManyHalfOpenCalls = &breakerError{"too many calls in half-open state"}

type breakerError struct{ msg string }

func (e *breakerError) Error() string { return e.msg }

func (b *circuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if time.Since(b.lastFailureTime) > b.cfg.ResetTimeout {
			b.state = breakerHalfOpen
			b.halfOpenCallCount = 0
			b.logger.Info("llm_breaker_half_open", zap.String("purpose", b.name))
			return nil
		}
		return errCircuitOpen
	case breakerHalfOpen:
		if b.halfOpenCallCount >= b.cfg.HalfOpenMaxCalls {
			return errTooManyHalfOpenCalls
		}
		b.halfOpenCallCount++
		return nil
	default:
		return nil
	}
}

func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		b.failureCount = 0
	case breakerHalfOpen:
		b.logger.Info("llm_breaker_closed", zap.String("purpose", b.name))
		b.state = breakerClosed
		b.failureCount = 0
		b.halfOpenCallCount = 0
	}
}

func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case breakerClosed:
		if b.failureCount >= b.cfg.Threshold {
			b.logger.Warn("llm_breaker_open", zap.String("purpose", b.name), zap.Int("failures", b.failureCount))
			b.state = breakerOpen
		}
	case breakerHalfOpen:
		b.logger.Warn("llm_breaker_reopen", zap.String("purpose", b.name))
		b.state = breakerOpen
		b.halfOpenCallCount = 0
	}
}
