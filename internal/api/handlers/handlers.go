package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/mailspend/internal/api/middleware"
	"github.com/dvloznov/mailspend/internal/domain"
	"github.com/dvloznov/mailspend/internal/jobs"
	"github.com/dvloznov/mailspend/internal/mailbox"
	"github.com/dvloznov/mailspend/internal/store"
)

// SyncRunner executes one end-to-end mailbox sync.
type SyncRunner interface {
	Run(ctx context.Context, ownerID string, limit int) (domain.SyncSummary, error)
}

// SyncHandler handles sync-related endpoints.
type SyncHandler struct {
	runner      SyncRunner
	publisher   jobs.Publisher
	maxMessages int
	log         zerolog.Logger
}

// NewSyncHandler creates a new sync handler. maxMessages is the default cap
// applied when the request does not specify one.
func NewSyncHandler(runner SyncRunner, publisher jobs.Publisher, maxMessages int, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		runner:      runner,
		publisher:   publisher,
		maxMessages: maxMessages,
		log:         log,
	}
}

// The mailbox owner's email doubles as the owner id everywhere downstream.
type syncRequest struct {
	OwnerEmail  string `json:"owner_email"`
	MaxMessages int    `json:"max_messages,omitempty"`
}

func (h *SyncHandler) decodeSyncRequest(r *http.Request) (syncRequest, error) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return syncRequest{}, errors.New("invalid request body")
	}
	if req.OwnerEmail == "" {
		return syncRequest{}, errors.New("owner_email is required")
	}
	if req.MaxMessages <= 0 {
		req.MaxMessages = h.maxMessages
	}
	return req, nil
}

// RunSync handles POST /api/sync
// It runs the sync synchronously and returns the run summary.
func (h *SyncHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeSyncRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.runner.Run(r.Context(), req.OwnerEmail, req.MaxMessages)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", req.OwnerEmail).Msg("Sync failed")

		status := http.StatusInternalServerError
		message := "Sync failed"
		switch {
		case errors.Is(err, mailbox.ErrAuth):
			status = http.StatusUnauthorized
			message = "Mailbox authorization failed"
		case errors.Is(err, mailbox.ErrRateLimited):
			status = http.StatusTooManyRequests
			message = "Mailbox rate limit exceeded"
		}

		middleware.WriteJSON(w, status, map[string]interface{}{
			"success": false,
			"message": message,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Sync completed",
		"stats":   summary,
	})
}

// EnqueueSync handles POST /api/sync/jobs
// It enqueues the sync for asynchronous processing and returns immediately.
func (h *SyncHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeSyncRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.SyncMailboxJob{
		OwnerID:     req.OwnerEmail,
		MaxMessages: req.MaxMessages,
	}

	if err := h.publisher.PublishSyncMailbox(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("owner_id", req.OwnerEmail).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("owner_id", req.OwnerEmail).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"owner_email": req.OwnerEmail,
		"status":      string(job.Status),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(st *store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: st,
		log:   log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	ownerID := query.Get("owner_id")
	if ownerID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	filter := store.TransactionFilter{
		Category: query.Get("category"),
	}
	if filter.Category != "" && !domain.ValidCategory(domain.Category(filter.Category)) {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown category")
		return
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	transactions, err := h.store.ListTransactions(ctx, ownerID, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	total, err := h.store.CountTransactions(ctx, ownerID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
		"total":        total,
	})
}

// SyncRunsHandler handles sync-run log endpoints.
type SyncRunsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewSyncRunsHandler creates a new sync-runs handler.
func NewSyncRunsHandler(st *store.Store, log zerolog.Logger) *SyncRunsHandler {
	return &SyncRunsHandler{
		store: st,
		log:   log,
	}
}

// ListSyncRuns handles GET /api/sync-runs
func (h *SyncRunsHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	ownerID := query.Get("owner_id")
	if ownerID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	runs, err := h.store.ListSyncRuns(ctx, ownerID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sync runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list sync runs")
		return
	}

	if runs == nil {
		runs = []domain.SyncRun{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sync_runs": runs,
		"count":     len(runs),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		OwnerID: query.Get("owner_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
