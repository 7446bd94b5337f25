package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/mailspend/internal/domain"
)

// maxErrorDetailLen caps what we persist from an error chain; anything
// longer is noise for a log record.
const maxErrorDetailLen = 2000

// CreateSyncRun inserts a new run record with status=running and returns its
// id. Called exactly once per run, before the fetch starts.
func (s *Store) CreateSyncRun(ctx context.Context, ownerID string, startedAt time.Time) (string, error) {
	runID := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, owner_id, started_at, status)
		VALUES (?, ?, ?, ?)
	`, runID, ownerID, startedAt.UTC().Format(time.RFC3339), string(domain.SyncStatusRunning))
	if err != nil {
		return "", fmt.Errorf("CreateSyncRun: insert: %w", err)
	}

	return runID, nil
}

// FinalizeSyncRun closes a run record exactly once with its terminal status
// and counters. It runs on the success and the failure path alike; a run is
// never left with status=running once Run has returned.
func (s *Store) FinalizeSyncRun(ctx context.Context, run domain.SyncRun) error {
	if run.CompletedAt == nil {
		return fmt.Errorf("FinalizeSyncRun: run %s has no completion timestamp", run.ID)
	}

	details := run.ErrorDetails
	if len(details) > maxErrorDetailLen {
		details = details[:maxErrorDetailLen]
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET completed_at = ?,
		    messages_fetched = ?,
		    messages_processed = ?,
		    transactions_found = ?,
		    transactions_saved = ?,
		    duplicates_skipped = ?,
		    error_count = ?,
		    status = ?,
		    error_details = ?
		WHERE id = ? AND status = ?
	`,
		run.CompletedAt.UTC().Format(time.RFC3339),
		run.MessagesFetched,
		run.MessagesProcessed,
		run.TransactionsFound,
		run.TransactionsSaved,
		run.DuplicatesSkipped,
		run.ErrorCount,
		string(run.Status),
		details,
		run.ID,
		string(domain.SyncStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("FinalizeSyncRun: update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("FinalizeSyncRun: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("FinalizeSyncRun: run %s not found or already finalized", run.ID)
	}
	return nil
}

// ListSyncRuns returns an owner's most recent runs, newest first.
func (s *Store) ListSyncRuns(ctx context.Context, ownerID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, started_at, completed_at,
		       messages_fetched, messages_processed, transactions_found,
		       transactions_saved, duplicates_skipped, error_count,
		       status, error_details
		FROM sync_runs
		WHERE owner_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListSyncRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var startedAt, status string
		var completedAt sql.NullString
		if err := rows.Scan(
			&run.ID, &run.OwnerID, &startedAt, &completedAt,
			&run.MessagesFetched, &run.MessagesProcessed, &run.TransactionsFound,
			&run.TransactionsSaved, &run.DuplicatesSkipped, &run.ErrorCount,
			&status, &run.ErrorDetails,
		); err != nil {
			return nil, fmt.Errorf("ListSyncRuns: scan: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			run.StartedAt = t
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				run.CompletedAt = &t
			}
		}
		run.Status = domain.SyncStatus(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
