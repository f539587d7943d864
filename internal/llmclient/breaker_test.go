package llmclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := newCircuitBreaker("gate", breakerConfig{Threshold: 3, ResetTimeout: time.Hour, HalfOpenMaxCalls: 1}, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, b.allow())
		b.recordFailure()
	}

	assert.ErrorIs(t, b.allow(), errCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	b := newCircuitBreaker("gate", breakerConfig{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenMaxCalls: 1}, zap.NewNop())

	require.NoError(t, b.allow())
	b.recordFailure()
	assert.ErrorIs(t, b.allow(), errCircuitOpen)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.allow())
	b.recordSuccess()

	require.NoError(t, b.allow())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newCircuitBreaker("gate", breakerConfig{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenMaxCalls: 2}, zap.NewNop())

	require.NoError(t, b.allow())
	b.recordFailure()
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, b.allow())
	b.recordFailure()

	assert.ErrorIs(t, b.allow(), errCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newCircuitBreaker("gate", breakerConfig{Threshold: 2, ResetTimeout: time.Hour, HalfOpenMaxCalls: 1}, zap.NewNop())

	require.NoError(t, b.allow())
	b.recordFailure()
	require.NoError(t, b.allow())
	b.recordSuccess()
	require.NoError(t, b.allow())
	b.recordFailure()

	// Two failures total but not consecutive-since-success: breaker stays closed.
	assert.NoError(t, b.allow())
}
