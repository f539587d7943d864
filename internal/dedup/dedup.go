package dedup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/types"
)

// Decision is the outcome of the §4.9 reuse matrix.
type Decision string

const (
	DecisionNewJob Decision = "NEW_JOB"
	DecisionReuse  Decision = "REUSE"
)

// Result is what Resolve returns: the decision plus the existing record
// when one was found (REUSE attaches to it; NEW_JOB may still carry the
// stale/failed record it superseded, for logging).
type Result struct {
	Decision Decision
	Reason   string
	Existing *types.JobRecord
}

// Resolver applies the decision matrix against the job store.
type Resolver struct {
	store  *jobstore.Store
	cfg    config.DedupConfig
	logger *zap.Logger
}

// New builds a Resolver.
func New(store *jobstore.Store, cfg config.DedupConfig, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, cfg: cfg, logger: logger.With(zap.String("component", "dedup"))}
}

// Resolve looks up fingerprint and applies the §4.9 matrix. On a stale
// RUNNING/PENDING record it reclaims the slot by marking the prior job
// DONE_FAILED(STALE_RUNNING) before returning NEW_JOB — that write is
// best-effort: a failure here is logged, not propagated, since the
// orchestrator will create a fresh record regardless.
func (r *Resolver) Resolve(ctx context.Context, fingerprint string, now time.Time) (Result, error) {
	existing, err := r.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		r.logger.Info("dedup_candidate_found", zap.String("fingerprint", fingerprint), zap.Bool("found", false))
		result := Result{Decision: DecisionNewJob, Reason: "no_existing_job"}
		r.logDecision(fingerprint, result)
		return result, nil
	}

	r.logger.Info("dedup_candidate_found",
		zap.String("fingerprint", fingerprint), zap.Bool("found", true),
		zap.String("requestId", existing.RequestID), zap.String("status", string(existing.Status)))

	age := now.Sub(existing.UpdatedAt)
	result := r.decide(existing, age)
	result.Existing = existing
	r.logDecision(fingerprint, result)

	if result.Decision == DecisionNewJob && isStaleRunning(existing.Status, age, r.cfg.RunningMaxAge) {
		r.reclaimStaleRunning(ctx, existing)
	}
	return result, nil
}

func (r *Resolver) decide(existing *types.JobRecord, age time.Duration) Result {
	status := types.NormalizeStatus(existing.Status)
	switch status {
	case types.StatusDoneSuccess:
		if age <= r.cfg.SuccessFreshWindow {
			return Result{Decision: DecisionReuse, Reason: "success_within_fresh_window"}
		}
		return Result{Decision: DecisionNewJob, Reason: "success_stale"}
	case types.StatusDoneFailed:
		return Result{Decision: DecisionNewJob, Reason: "prior_failed"}
	case types.StatusRunning, types.StatusPending:
		if age <= r.cfg.RunningMaxAge {
			return Result{Decision: DecisionReuse, Reason: "in_flight_within_ttl"}
		}
		return Result{Decision: DecisionNewJob, Reason: "running_stale"}
	default:
		return Result{Decision: DecisionNewJob, Reason: "unknown_status"}
	}
}

func isStaleRunning(status types.Status, age, runningMaxAge time.Duration) bool {
	status = types.NormalizeStatus(status)
	return (status == types.StatusRunning || status == types.StatusPending) && age > runningMaxAge
}

func (r *Resolver) reclaimStaleRunning(ctx context.Context, existing *types.JobRecord) {
	err := r.store.SetError(ctx, existing.RequestID, types.JobError{
		Code:      string(apperr.CodeStaleRunning),
		Message:   fmt.Sprintf("job %s exceeded the in-flight TTL and was reclaimed", existing.RequestID),
		ErrorType: "stale_running",
	})
	if err != nil {
		r.logger.Warn("failed to reclaim stale running job, proceeding with new job anyway",
			zap.String("requestId", existing.RequestID), zap.Error(err))
	}
}

func (r *Resolver) logDecision(fingerprint string, result Result) {
	r.logger.Info("dedup_decision",
		zap.String("fingerprint", fingerprint),
		zap.String("decision", string(result.Decision)),
		zap.String("reason", result.Reason))
}
