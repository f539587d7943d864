package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/dedup"
	"github.com/shacharon/searchcore/internal/distance"
	"github.com/shacharon/searchcore/internal/identity"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/metrics"
	"github.com/shacharon/searchcore/internal/pubsub"
	"github.com/shacharon/searchcore/internal/ranking"
	"github.com/shacharon/searchcore/types"
)

// pushChannel is the single channel name every search publishes progress
// and terminal events on (spec §3.9 example: "search").
const pushChannel = "search"

// Orchestrator is the stage pipeline (spec §4.6, C12).
type Orchestrator struct {
	llm    llmInvoker
	places placeSearcher
	jobs   *jobstore.Store
	pubsub *pubsub.Registry
	dedup  *dedup.Resolver

	ranking  config.RankingConfig
	fieldMask string
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Deps bundles everything Orchestrator needs — all of it already built by
// an earlier pipeline stage (C3/C4/C5/C7+C8/C13). Metrics is optional: a
// nil Collector makes every Record* call a no-op (see internal/metrics).
type Deps struct {
	LLM     llmInvoker
	Places  placeSearcher
	Jobs    *jobstore.Store
	Pubsub  *pubsub.Registry
	Dedup   *dedup.Resolver
	Ranking config.RankingConfig
	FieldMask string
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New builds an Orchestrator.
func New(d Deps) *Orchestrator {
	return &Orchestrator{
		llm:       d.LLM,
		places:    d.Places,
		jobs:      d.Jobs,
		pubsub:    d.Pubsub,
		dedup:     d.Dedup,
		ranking:   d.Ranking,
		fieldMask: d.FieldMask,
		logger:    d.Logger.With(zap.String("component", "pipeline")),
		metrics:   d.Metrics,
	}
}

// timeStage runs fn, recording its wall-clock duration against
// pipeline_stage_duration_seconds{stage} (spec §6.5).
func (o *Orchestrator) timeStage(stage string, fn func()) {
	start := time.Now()
	fn()
	o.metrics.RecordPipelineStage(stage, time.Since(start))
}

// SubmitResult is what Submit returns to the HTTP handler (spec §6.1
// POST /api/v1/search).
type SubmitResult struct {
	RequestID string
	Status    types.Status
	Reused    bool
}

// Submit applies the §4.9 dedup decision, then either attaches the caller
// to an existing job (REUSE) or creates a new one and starts the pipeline
// in a detached goroutine (spec §5 "the pipeline executes in a detached
// task distinct from the HTTP responder"). The returned context for the
// detached run is stripped of the HTTP request's cancellation — the
// pipeline must keep going after the client's connection closes.
func (o *Orchestrator) Submit(ctx context.Context, req types.SearchRequest) (SubmitResult, error) {
	fingerprint := dedup.Compute(req)
	decision, err := o.dedup.Resolve(ctx, fingerprint, time.Now().UTC())
	if err != nil {
		return SubmitResult{}, err
	}

	o.metrics.RecordDedupDecision(string(decision.Decision))

	if decision.Decision == dedup.DecisionReuse {
		return SubmitResult{RequestID: decision.Existing.RequestID, Status: decision.Existing.Status, Reused: true}, nil
	}

	requestID := uuid.NewString()
	ownerSessionHash := identity.Hash(req.SessionID)
	ownerUserHash := identity.Hash(req.UserID)

	record, err := o.jobs.CreateJob(ctx, jobstore.CreateJobParams{
		RequestID:        requestID,
		Fingerprint:      fingerprint,
		OwnerSessionHash: ownerSessionHash,
		OwnerUserHash:    ownerUserHash,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	o.pubsub.ActivatePendingSubscriptions(requestID, ownerSessionHash, false)

	runCtx := context.WithoutCancel(ctx)
	go o.run(runCtx, req, requestID)

	return SubmitResult{RequestID: requestID, Status: record.Status, Reused: false}, nil
}

// run executes the ten pipeline stages in sequence (spec §4.6). It never
// panics the process: a recovered panic is logged and turned into a
// DONE_FAILED job, since this runs in a detached goroutine with no caller
// left to observe an unhandled panic.
func (o *Orchestrator) run(ctx context.Context, req types.SearchRequest, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline_panic", zap.String("requestId", requestID), zap.Any("recovered", r))
			o.failJob(ctx, requestID, types.JobError{Code: "SEARCH_FAILED", Message: "Search failed. Please retry.", ErrorType: "panic"})
		}
	}()

	langCtx := resolveLanguageContext(req)

	var gate gateResult
	var gateErr error
	o.timeStage("gate", func() { gate, gateErr = o.runGate(ctx, req.Query) })
	if gateErr != nil || !gate.IsFoodPlaceQuery {
		o.terminateWithAssistant(ctx, requestID, req.Query, 0, false, true)
		return
	}
	o.publishProgress(ctx, requestID, "gate", 25)

	var intent types.IntentDecision
	var intentErr error
	o.timeStage("intent", func() { intent, intentErr = o.runIntent(ctx, req.Query, req.RegionCode) })
	if intentErr != nil {
		intent = types.IntentDecision{Reason: types.IntentDefaultTextSearch}
	}
	if intent.BlocksSearch {
		o.terminateWithAssistant(ctx, requestID, req.Query, 0, true, false)
		return
	}
	o.publishProgress(ctx, requestID, "intent", 40)

	var filters baseFiltersResult
	o.timeStage("baseFilters", func() { filters = o.runBaseFilters(ctx, req.Query) })

	var mapping types.RouteMapping
	o.timeStage("routeMapping", func() { mapping = o.runRouteMapping(ctx, req.Query, req.RegionCode, langCtx.SearchLanguage) })

	var candidates []types.Place
	var providerErr error
	o.timeStage("providerCall", func() { candidates, providerErr = o.runProviderCall(ctx, mapping, o.ranking.CandidatePoolSize) })
	if providerErr != nil {
		o.failJob(ctx, requestID, types.JobError{Code: "PROVIDER_UNAVAILABLE", Message: "Search failed. Please retry.", ErrorType: "provider_error"})
		return
	}
	fetchedCount := len(candidates)
	o.publishProgress(ctx, requestID, "providerCall", 60)

	var enforced []types.Place
	o.timeStage("cuisineEnforcement", func() { enforced = o.runCuisineEnforcement(ctx, candidates, mapping) })
	filtered := applyPostConstraints(enforced, filters)
	o.publishProgress(ctx, requestID, "postConstraints", 75)

	origin := distance.Resolve(distance.ResolveInput{Intent: intent, CityCenter: mapping.CityCenter, UserLocation: req.UserLocation})
	var profileName string
	o.timeStage("rankingProfile", func() { profileName = o.runRankingProfile(ctx, req.Query, o.ranking.LLMEnabled) })
	profile, ok := ranking.Profiles[ranking.ProfileName(profileName)]
	if !ok {
		profile = ranking.Profile{Name: ranking.ProfileGoogle}
	}

	var ranked []types.Place
	rankStart := time.Now()
	ranked = ranking.Rank(filtered, profile, origin.RefLatLng)
	o.metrics.RecordRankingDuration(string(profile.Name), time.Since(rankStart))
	if o.ranking.DisplayResultsSize > 0 && len(ranked) > o.ranking.DisplayResultsSize {
		ranked = ranked[:o.ranking.DisplayResultsSize]
	}
	o.publishProgress(ctx, requestID, "ranking", 90)

	var assistantMsg types.AssistantMessage
	o.timeStage("assistantMessage", func() { assistantMsg = o.runAssistantMessage(ctx, req.Query, len(ranked), false, false) })

	result := &types.SearchResult{
		Places:    ranked,
		Assistant: assistantMsg,
		Meta: types.ResultMeta{
			FetchedCount:     fetchedCount,
			ReturnedCount:    len(ranked),
			RankingProfile:   string(profile.Name),
			DistanceOrigin:   origin.Kind,
			ContractsVersion: types.ContractsVersion,
		},
	}
	o.finalize(ctx, requestID, result)
}

// terminateWithAssistant ends the run with a non-failure terminal event
// carrying a CLARIFY or GATE_FAIL message (spec §4.6 steps 1-2): no
// provider call is made.
func (o *Orchestrator) terminateWithAssistant(ctx context.Context, requestID, query string, resultCount int, blocksSearch, gateFailed bool) {
	msg := o.runAssistantMessage(ctx, query, resultCount, blocksSearch, gateFailed)
	result := &types.SearchResult{
		Assistant: msg,
		Meta:      types.ResultMeta{ContractsVersion: types.ContractsVersion},
	}
	o.finalize(ctx, requestID, result)
}

// finalize writes the terminal result and publishes the terminal event
// (spec §4.6 step 10). The job-store write is best-effort per §4.8: a
// failure is logged, not retried, since the pipeline has nothing further
// to do regardless.
func (o *Orchestrator) finalize(ctx context.Context, requestID string, result *types.SearchResult) {
	if err := o.jobs.SetResult(ctx, requestID, result); err != nil {
		o.logger.Warn("finalize_set_result_failed", zap.String("requestId", requestID), zap.Error(err))
	}
	summary := o.pubsub.Publish(pushChannel, requestID, pubsub.Event{
		Type:     pubsub.EventDone,
		Terminal: true,
		Payload:  result,
	})
	o.recordPublishSummary(summary)
}

// recordPublishSummary maps one pubsub.Summary onto ws_publish_total's
// sent/failed counters (spec §6.5).
func (o *Orchestrator) recordPublishSummary(summary pubsub.Summary) {
	for i := 0; i < summary.Sent; i++ {
		o.metrics.RecordWSPublish("sent")
	}
	for i := 0; i < summary.Failed; i++ {
		o.metrics.RecordWSPublish("failed")
	}
}

// failJob marks the job DONE_FAILED and publishes a terminal error event
// (spec §4.6, §7). Also best-effort on the store write.
func (o *Orchestrator) failJob(ctx context.Context, requestID string, jobErr types.JobError) {
	if err := o.jobs.SetError(ctx, requestID, jobErr); err != nil {
		o.logger.Warn("fail_job_set_error_failed", zap.String("requestId", requestID), zap.Error(err))
	}
	summary := o.pubsub.Publish(pushChannel, requestID, pubsub.Event{
		Type:     pubsub.EventError,
		Terminal: true,
		Payload:  jobErr,
	})
	o.recordPublishSummary(summary)
}

// publishProgress advances the job's monotonic progress and pushes a
// progress event (spec §4.6 cross-cutting, §4.10). Both writes are best
// effort — push isolation (§4.11) means a failure here must never stop
// the stage sequence; pubsub.Registry.Publish already can't error, and the
// job-store write failure is logged and swallowed the same way the
// terminal writes are.
func (o *Orchestrator) publishProgress(ctx context.Context, requestID, stage string, progress int) {
	p := progress
	if err := o.jobs.SetStatus(ctx, requestID, types.StatusRunning, &p); err != nil {
		o.logger.Warn("store_error", zap.String("requestId", requestID), zap.String("stage", stage), zap.Error(err))
	}
	summary := o.pubsub.Publish(pushChannel, requestID, pubsub.Event{
		Type:    pubsub.EventProgress,
		Stage:   stage,
		Payload: map[string]any{"stage": stage, "progress": progress},
	})
	o.recordPublishSummary(summary)
}
