package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/api"
	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/pipeline"
	"github.com/shacharon/searchcore/internal/reqctx"
	"github.com/shacharon/searchcore/types"
)

// Search implements POST /api/v1/search and GET /api/v1/search/:requestId/result
// (spec §6.1, C14).
type Search struct {
	Orchestrator  *pipeline.Orchestrator
	Jobs          *jobstore.Store
	RunningMaxAge time.Duration
	Logger        *zap.Logger
}

func (s *Search) Submit(w http.ResponseWriter, r *http.Request) {
	if s.Orchestrator == nil {
		writeError(w, r, s.Logger, apperr.New(apperr.CodeStoreUnavailable, "search service not ready").WithHTTPStatus(503))
		return
	}

	var body api.SearchSubmitRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if body.Query == "" {
		writeError(w, r, s.Logger, apperr.New(apperr.CodeInvalidRequest, "query must not be empty").WithHTTPStatus(400))
		return
	}

	sessionID, _ := reqctx.SessionHash(r.Context())
	userID, _ := reqctx.UserHash(r.Context())
	traceID, _ := reqctx.TraceID(r.Context())

	req := types.SearchRequest{
		Query:        body.Query,
		UserLocation: body.UserLocation,
		RegionCode:   body.RegionCode,
		UILanguage:   body.UILanguage,
		SessionID:    sessionID,
		UserID:       userID,
		TraceID:      traceID,
		SubmittedAt:  time.Now().UTC(),
	}

	result, err := s.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, api.SearchSubmitResponse{
		RequestID:        result.RequestID,
		Status:           string(result.Status),
		ContractsVersion: types.ContractsVersion,
	})
}

func (s *Search) Result(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")
	if requestID == "" {
		writeError(w, r, s.Logger, apperr.New(apperr.CodeInvalidRequest, "requestId is required").WithHTTPStatus(400))
		return
	}

	record, err := s.Jobs.GetJob(r.Context(), requestID)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}

	if !record.Status.IsTerminal() {
		isStale := s.RunningMaxAge > 0 && time.Since(record.UpdatedAt) > s.RunningMaxAge
		writeJSON(w, http.StatusAccepted, api.SearchResultResponse{
			RequestID: requestID,
			Status:    string(record.Status),
			Progress:  record.Progress,
			Meta: &types.ResultMeta{
				ContractsVersion: types.ContractsVersion,
				IsStale:          isStale,
			},
			ContractsVersion: types.ContractsVersion,
		})
		return
	}

	if record.Status == types.StatusDoneFailed {
		jobErr := record.Error
		if jobErr == nil {
			jobErr = &types.JobError{Code: "SEARCH_FAILED", Message: "Search failed. Please retry.", ErrorType: "unknown"}
		}
		writeJSON(w, http.StatusOK, api.SearchResultResponse{
			RequestID:        requestID,
			Status:           string(types.StatusDoneFailed),
			Code:             jobErr.Code,
			Message:          jobErr.Message,
			ErrorType:        jobErr.ErrorType,
			Terminal:         true,
			ContractsVersion: types.ContractsVersion,
		})
		return
	}

	// record.Status == StatusDoneSuccess from here on.
	if record.Result == nil {
		writeJSON(w, http.StatusOK, api.SearchResultResponse{
			RequestID:        requestID,
			Status:           string(types.StatusDoneSuccess),
			Code:             "RESULT_MISSING",
			Message:          "Search completed but result unavailable. Please retry.",
			Terminal:         true,
			ContractsVersion: types.ContractsVersion,
		})
		return
	}

	assist := record.Result.Assistant
	writeJSON(w, http.StatusOK, api.SearchResultResponse{
		RequestID:        requestID,
		Status:           "done",
		Results:          record.Result.Places,
		Assist:           &assist,
		Meta:             &record.Result.Meta,
		ContractsVersion: types.ContractsVersion,
	})
}

