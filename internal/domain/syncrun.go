package domain

import "time"

// SyncStatus is the lifecycle state of a sync run record.
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncRun is the persisted log record of one end-to-end sync. It is created
// with status=running before the fetch starts and finalized exactly once at
// run end; a run is never left in a running terminal state, even when the
// run fails.
type SyncRun struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	MessagesFetched   int `json:"messages_fetched"`
	MessagesProcessed int `json:"messages_processed"`
	TransactionsFound int `json:"transactions_found"`
	TransactionsSaved int `json:"transactions_saved"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	ErrorCount        int `json:"error_count"`

	Status       SyncStatus `json:"status"`
	ErrorDetails string     `json:"error_details,omitempty"`
}

// MessageFailure records one message that could not be processed during a
// run. Failures are data, not errors: they surface in the run summary only.
type MessageFailure struct {
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
}

// SyncSummary is the aggregate outcome of one sync run, returned to the
// caller of the sync entry point.
type SyncSummary struct {
	RunID                  string           `json:"run_id"`
	MessagesFetched        int              `json:"messages_fetched"`
	MessagesProcessed      int              `json:"messages_processed"`
	TransactionsFound      int              `json:"transactions_found"`
	TransactionsSaved      int              `json:"transactions_saved"`
	DuplicatesSkipped      int              `json:"duplicates_skipped"`
	NonTransactionMessages int              `json:"non_transaction_messages"`
	Failed                 []MessageFailure `json:"failed,omitempty"`
	ProcessingTimeSeconds  int64            `json:"processing_time_seconds"`
}
