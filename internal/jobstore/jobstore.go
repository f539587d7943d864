// Package jobstore is the durable job record store (SPEC_FULL.md §4.8, C5):
// idempotency-keyed records, status/progress/result writes, TTL'd in
// Redis. The backend is the shared Manager from internal/cache, grounded
// on the teacher's own cache-manager-as-a-dependency pattern.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/types"
)

// CreateJobParams is the input to CreateJob (spec §4.8).
type CreateJobParams struct {
	RequestID        string
	Fingerprint      string
	OwnerSessionHash string
	OwnerUserHash    string
}

// Store is the job record store.
type Store struct {
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a Store. ttl is the §6.4 job/fingerprint TTL (>= 24h).
func New(c *cache.Manager, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{cache: c, ttl: ttl, logger: logger.With(zap.String("component", "jobstore"))}
}

func jobKey(requestID string) string        { return "job:" + requestID }
func fingerprintKey(fingerprint string) string { return "jobfp:" + fingerprint }

// CreateJob writes a new PENDING record, failing if requestId already
// exists. It unconditionally (re)points the fingerprint index at this
// request — the decision of whether that's correct (new job vs. stale
// reclaim vs. reuse) belongs to internal/dedup (C13), not this store.
func (s *Store) CreateJob(ctx context.Context, p CreateJobParams) (*types.JobRecord, error) {
	now := time.Now().UTC()
	record := &types.JobRecord{
		RequestID:        p.RequestID,
		Fingerprint:      p.Fingerprint,
		Status:           types.StatusPending,
		Progress:         0,
		CreatedAt:        now,
		UpdatedAt:        now,
		OwnerSessionHash: p.OwnerSessionHash,
		OwnerUserHash:    p.OwnerUserHash,
		ContractsVersion: types.ContractsVersion,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("jobstore: marshal job record: %w", err)
	}

	ok, err := s.cache.SetNX(ctx, jobKey(p.RequestID), string(raw), s.ttl)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "create job", err).WithHTTPStatus(503)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidRequest, fmt.Sprintf("job %s already exists", p.RequestID)).WithHTTPStatus(409)
	}

	if p.Fingerprint != "" {
		if err := s.cache.Set(ctx, fingerprintKey(p.Fingerprint), p.RequestID, s.ttl); err != nil {
			s.logger.Warn("failed to index fingerprint, job still created", zap.String("requestId", p.RequestID), zap.Error(err))
		}
	}
	return record, nil
}

// FindByFingerprint returns the JobRecord for an existing fingerprint, or
// (nil, nil) when none is indexed.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*types.JobRecord, error) {
	requestID, err := s.cache.Get(ctx, fingerprintKey(fingerprint))
	if cache.IsCacheMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "find by fingerprint", err).WithHTTPStatus(503)
	}
	return s.GetJob(ctx, requestID)
}

// GetJob returns the record for requestId, or a CodeNotFound error.
func (s *Store) GetJob(ctx context.Context, requestID string) (*types.JobRecord, error) {
	var record types.JobRecord
	err := s.cache.GetJSON(ctx, jobKey(requestID), &record)
	if cache.IsCacheMiss(err) {
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("job %s not found", requestID)).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "get job", err).WithHTTPStatus(503)
	}
	record.Status = types.NormalizeStatus(record.Status)
	return &record, nil
}

// SetStatus transitions requestId to status, rejecting a status-DAG
// violation or non-monotonic progress. Setting the same status twice is
// idempotent (spec §4.8, §3.3).
func (s *Store) SetStatus(ctx context.Context, requestID string, status types.Status, progress *int) error {
	record, err := s.GetJob(ctx, requestID)
	if err != nil {
		return err
	}

	if !record.Status.CanTransitionTo(status) {
		return apperr.New(apperr.CodeInvalidRequest,
			fmt.Sprintf("cannot transition job %s from %s to %s", requestID, record.Status, status)).WithHTTPStatus(409)
	}
	if progress != nil {
		if *progress < record.Progress {
			return apperr.New(apperr.CodeInvalidRequest,
				fmt.Sprintf("progress must be monotonic: job %s at %d, got %d", requestID, record.Progress, *progress)).WithHTTPStatus(409)
		}
		record.Progress = *progress
	}

	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	return s.save(ctx, record)
}

// SetResult writes the terminal success result. Spec §4.8 marks this
// write best-effort: a failure here must not fail the pipeline, so
// callers should log rather than propagate.
func (s *Store) SetResult(ctx context.Context, requestID string, result *types.SearchResult) error {
	record, err := s.GetJob(ctx, requestID)
	if err != nil {
		return err
	}
	record.Result = result
	record.Status = types.StatusDoneSuccess
	record.UpdatedAt = time.Now().UTC()
	return s.save(ctx, record)
}

// SetError writes the terminal failure payload. Also best-effort per §4.8.
func (s *Store) SetError(ctx context.Context, requestID string, jobErr types.JobError) error {
	record, err := s.GetJob(ctx, requestID)
	if err != nil {
		return err
	}
	record.Error = &jobErr
	record.Status = types.StatusDoneFailed
	record.UpdatedAt = time.Now().UTC()
	return s.save(ctx, record)
}

func (s *Store) save(ctx context.Context, record *types.JobRecord) error {
	if err := s.cache.SetJSON(ctx, jobKey(record.RequestID), record, s.ttl); err != nil {
		return apperr.Wrap(apperr.CodeStoreUnavailable, "save job", err).WithHTTPStatus(503)
	}
	return nil
}
