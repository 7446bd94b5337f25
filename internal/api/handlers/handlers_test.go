package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/mailspend/internal/domain"
	"github.com/dvloznov/mailspend/internal/jobs"
)

type fakeRunner struct {
	owner   string
	limit   int
	summary domain.SyncSummary
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, ownerID string, limit int) (domain.SyncSummary, error) {
	f.owner = ownerID
	f.limit = limit
	return f.summary, f.err
}

type fakePublisher struct {
	published *jobs.SyncMailboxJob
}

func (f *fakePublisher) PublishSyncMailbox(ctx context.Context, job *jobs.SyncMailboxJob) error {
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	f.published = job
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestRunSync_OwnerEmailContract(t *testing.T) {
	runner := &fakeRunner{summary: domain.SyncSummary{RunID: "run-1", TransactionsSaved: 2}}
	h := NewSyncHandler(runner, &fakePublisher{}, 50, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/sync",
		strings.NewReader(`{"owner_email":"user@example.com"}`))
	rec := httptest.NewRecorder()
	h.RunSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if runner.owner != "user@example.com" {
		t.Errorf("runner owner = %q, want user@example.com", runner.owner)
	}
	if runner.limit != 50 {
		t.Errorf("runner limit = %d, want default 50", runner.limit)
	}

	var resp struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Stats   domain.SyncSummary `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Stats.RunID != "run-1" || resp.Stats.TransactionsSaved != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunSync_MissingOwnerEmail(t *testing.T) {
	h := NewSyncHandler(&fakeRunner{}, &fakePublisher{}, 50, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.RunSync(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "owner_email") {
		t.Errorf("error body %q does not name the missing field", rec.Body.String())
	}
}

func TestEnqueueSync(t *testing.T) {
	pub := &fakePublisher{}
	h := NewSyncHandler(&fakeRunner{}, pub, 50, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/sync/jobs",
		strings.NewReader(`{"owner_email":"user@example.com","max_messages":10}`))
	rec := httptest.NewRecorder()
	h.EnqueueSync(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if pub.published == nil || pub.published.OwnerID != "user@example.com" || pub.published.MaxMessages != 10 {
		t.Errorf("published job = %+v", pub.published)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] != "job-1" || resp["owner_email"] != "user@example.com" {
		t.Errorf("response = %v", resp)
	}
}
