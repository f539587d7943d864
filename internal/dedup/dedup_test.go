package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/types"
)

func newTestResolver(t *testing.T) (*miniredis.Miniredis, *jobstore.Store, *Resolver) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	mgr, err := cache.NewManager(cache.Config{URL: "redis://" + mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	store := jobstore.New(mgr, 24*time.Hour, zap.NewNop())
	cfg := config.DedupConfig{RunningMaxAge: 90 * time.Second, SuccessFreshWindow: 5 * time.Second, JobTTL: 24 * time.Hour}
	return mr, store, New(store, cfg, zap.NewNop())
}

func TestResolve_NoExistingJobIsNewJob(t *testing.T) {
	mr, _, resolver := newTestResolver(t)
	defer mr.Close()

	result, err := resolver.Resolve(context.Background(), "fp-none", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionNewJob, result.Decision)
	assert.Nil(t, result.Existing)
}

func TestResolve_FreshDoneSuccessIsReused(t *testing.T) {
	mr, store, resolver := newTestResolver(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := store.CreateJob(ctx, jobstore.CreateJobParams{RequestID: "r1", Fingerprint: "fp1"})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "r1", types.StatusRunning, nil))
	require.NoError(t, store.SetResult(ctx, "r1", &types.SearchResult{}))

	result, err := resolver.Resolve(ctx, "fp1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionReuse, result.Decision)
	require.NotNil(t, result.Existing)
	assert.Equal(t, "r1", result.Existing.RequestID)
}

func TestResolve_StaleDoneSuccessIsNewJob(t *testing.T) {
	mr, store, resolver := newTestResolver(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := store.CreateJob(ctx, jobstore.CreateJobParams{RequestID: "r1", Fingerprint: "fp1"})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "r1", types.StatusRunning, nil))
	require.NoError(t, store.SetResult(ctx, "r1", &types.SearchResult{}))

	future := time.Now().Add(10 * time.Second)
	result, err := resolver.Resolve(ctx, "fp1", future)
	require.NoError(t, err)
	assert.Equal(t, DecisionNewJob, result.Decision)
	assert.Equal(t, "success_stale", result.Reason)
}

func TestResolve_DoneFailedIsAlwaysNewJob(t *testing.T) {
	mr, store, resolver := newTestResolver(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := store.CreateJob(ctx, jobstore.CreateJobParams{RequestID: "r1", Fingerprint: "fp1"})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "r1", types.StatusRunning, nil))
	require.NoError(t, store.SetError(ctx, "r1", types.JobError{Code: "PROVIDER_TIMEOUT"}))

	result, err := resolver.Resolve(ctx, "fp1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionNewJob, result.Decision)
	assert.Equal(t, "prior_failed", result.Reason)
}

func TestResolve_RunningWithinTTLIsReused(t *testing.T) {
	mr, store, resolver := newTestResolver(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := store.CreateJob(ctx, jobstore.CreateJobParams{RequestID: "r1", Fingerprint: "fp1"})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "r1", types.StatusRunning, nil))

	result, err := resolver.Resolve(ctx, "fp1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionReuse, result.Decision)
}

func TestResolve_StaleRunningIsNewJobAndReclaimsPrior(t *testing.T) {
	mr, store, resolver := newTestResolver(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := store.CreateJob(ctx, jobstore.CreateJobParams{RequestID: "r1", Fingerprint: "fp1"})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "r1", types.StatusRunning, nil))

	future := time.Now().Add(200 * time.Second)
	result, err := resolver.Resolve(ctx, "fp1", future)
	require.NoError(t, err)
	assert.Equal(t, DecisionNewJob, result.Decision)
	assert.Equal(t, "running_stale", result.Reason)

	reclaimed, err := store.GetJob(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDoneFailed, reclaimed.Status)
	require.NotNil(t, reclaimed.Error)
	assert.Equal(t, "STALE_RUNNING", reclaimed.Error.Code)
}
