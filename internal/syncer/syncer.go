package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dvloznov/mailspend/internal/domain"
	"github.com/dvloznov/mailspend/internal/extract"
	"github.com/dvloznov/mailspend/internal/normalize"
)

// DefaultBatchSize caps how many extraction calls are in flight at once.
// Groups are strictly sequential: the next group is not submitted until the
// previous one has fully resolved. That sequencing is the sole throttle on
// the extraction service and must be preserved.
const DefaultBatchSize = 5

// DefaultBatchInterval paces group submission.
const DefaultBatchInterval = 2 * time.Second

// MessageFetcher fetches candidate messages for one mailbox.
type MessageFetcher interface {
	Fetch(ctx context.Context, limit int) ([]domain.CandidateMessage, error)
}

// Extractor classifies one message. It reports failures as data in the
// Outcome, never as an error.
type Extractor interface {
	Extract(ctx context.Context, msg domain.CandidateMessage) extract.Outcome
}

// TransactionStore is the slice of the persistence layer the orchestrator
// needs.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, ownerID string, txs []domain.Transaction) (saved, duplicates int, err error)
	CreateSyncRun(ctx context.Context, ownerID string, startedAt time.Time) (string, error)
	FinalizeSyncRun(ctx context.Context, run domain.SyncRun) error
}

// Syncer drives one end-to-end sync: fetch, grouped extraction,
// normalization, dedup-aware persistence, and the run log record.
type Syncer struct {
	fetcher    MessageFetcher
	extractor  Extractor
	normalizer *normalize.Normalizer
	store      TransactionStore

	batchSize int
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithBatchSize overrides the extraction group size.
func WithBatchSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchInterval overrides the pause between extraction groups.
func WithBatchInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// New creates a Syncer.
func New(fetcher MessageFetcher, extractor Extractor, normalizer *normalize.Normalizer, store TransactionStore, log zerolog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		store:      store,
		batchSize:  DefaultBatchSize,
		limiter:    rate.NewLimiter(rate.Every(DefaultBatchInterval), 1),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sync for the owner, processing at most limit messages.
// It returns the run summary on success. On failure the sync-run record is
// finalized as failed before the error is returned; the log write is never
// skipped on the error path.
func (s *Syncer) Run(ctx context.Context, ownerID string, limit int) (domain.SyncSummary, error) {
	startedAt := time.Now()

	runID, err := s.store.CreateSyncRun(ctx, ownerID, startedAt)
	if err != nil {
		return domain.SyncSummary{}, fmt.Errorf("Run: create sync run: %w", err)
	}

	log := s.log.With().Str("run_id", runID).Str("owner_id", ownerID).Logger()
	log.Info().Int("limit", limit).Msg("Sync started")

	msgs, err := s.fetcher.Fetch(ctx, limit)
	if err != nil {
		err = fmt.Errorf("Run: fetch messages: %w", err)
		s.failRun(ctx, runID, ownerID, startedAt, domain.SyncSummary{}, err)
		return domain.SyncSummary{}, err
	}

	summary := domain.SyncSummary{
		RunID:           runID,
		MessagesFetched: len(msgs),
	}

	// Nothing matched the search window: the run is a success with all-zero
	// counters and the extractor is never invoked.
	if len(msgs) == 0 {
		s.finalize(ctx, runID, ownerID, startedAt, &summary, domain.SyncStatusSuccess, "")
		log.Info().Msg("Sync finished: no candidate messages")
		return summary, nil
	}

	var pending []domain.Transaction
	for start := 0; start < len(msgs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("Run: waiting for batch slot: %w", err)
			s.failRun(ctx, runID, ownerID, startedAt, summary, err)
			return domain.SyncSummary{}, err
		}

		outcomes := s.extractGroup(ctx, msgs[start:end])
		for _, outcome := range outcomes {
			summary.MessagesProcessed++
			s.collect(outcome, msgs, ownerID, &summary, &pending)
		}
	}

	saved, duplicates, err := s.store.SaveTransactions(ctx, ownerID, pending)
	if err != nil {
		err = fmt.Errorf("Run: save transactions: %w", err)
		s.failRun(ctx, runID, ownerID, startedAt, summary, err)
		return domain.SyncSummary{}, err
	}
	summary.TransactionsSaved = saved
	summary.DuplicatesSkipped = duplicates

	s.finalize(ctx, runID, ownerID, startedAt, &summary, domain.SyncStatusSuccess, "")

	log.Info().
		Int("fetched", summary.MessagesFetched).
		Int("found", summary.TransactionsFound).
		Int("saved", summary.TransactionsSaved).
		Int("duplicates", summary.DuplicatesSkipped).
		Int("failed", len(summary.Failed)).
		Int64("seconds", summary.ProcessingTimeSeconds).
		Msg("Sync finished")

	return summary, nil
}

// extractGroup submits one group of messages to the extractor concurrently
// and joins them all before returning. Completion order within the group is
// unconstrained.
func (s *Syncer) extractGroup(ctx context.Context, group []domain.CandidateMessage) []extract.Outcome {
	results := make(chan extract.Outcome, len(group))

	var wg sync.WaitGroup
	wg.Add(len(group))
	for _, msg := range group {
		go func(m domain.CandidateMessage) {
			defer wg.Done()
			results <- s.extractor.Extract(ctx, m)
		}(msg)
	}
	wg.Wait()
	close(results)

	outcomes := make([]extract.Outcome, 0, len(group))
	for r := range results {
		outcomes = append(outcomes, r)
	}
	return outcomes
}

// collect folds one extraction outcome into the run summary, normalizing
// and validating any guesses it carries.
func (s *Syncer) collect(outcome extract.Outcome, msgs []domain.CandidateMessage, ownerID string, summary *domain.SyncSummary, pending *[]domain.Transaction) {
	switch outcome.Kind {
	case extract.KindNotTransaction:
		summary.NonTransactionMessages++

	case extract.KindFailed:
		summary.Failed = append(summary.Failed, domain.MessageFailure{
			MessageID: outcome.MessageID,
			Reason:    outcome.Reason,
		})

	case extract.KindTransactions:
		msg := findMessage(msgs, outcome.MessageID)
		for _, guess := range outcome.Guesses {
			tx, err := s.normalizer.Normalize(guess, msg, ownerID)
			if err != nil {
				// Rejected guesses are dropped quietly; the rest of the
				// message's guesses still count.
				s.log.Debug().
					Err(err).
					Str("message_id", outcome.MessageID).
					Msg("Guess rejected during normalization")
				continue
			}
			summary.TransactionsFound++
			*pending = append(*pending, tx)
		}
	}
}

func findMessage(msgs []domain.CandidateMessage, id string) domain.CandidateMessage {
	for _, m := range msgs {
		if m.ID == id {
			return m
		}
	}
	return domain.CandidateMessage{ID: id}
}

// finalize closes the run record with a terminal status and fills the
// summary's timing from the same timestamps, so duration is deterministic.
func (s *Syncer) finalize(ctx context.Context, runID, ownerID string, startedAt time.Time, summary *domain.SyncSummary, status domain.SyncStatus, errDetails string) {
	completedAt := time.Now()
	summary.ProcessingTimeSeconds = int64(completedAt.Sub(startedAt).Seconds())

	run := domain.SyncRun{
		ID:                runID,
		OwnerID:           ownerID,
		StartedAt:         startedAt,
		CompletedAt:       &completedAt,
		MessagesFetched:   summary.MessagesFetched,
		MessagesProcessed: summary.MessagesProcessed,
		TransactionsFound: summary.TransactionsFound,
		TransactionsSaved: summary.TransactionsSaved,
		DuplicatesSkipped: summary.DuplicatesSkipped,
		ErrorCount:        len(summary.Failed),
		Status:            status,
		ErrorDetails:      errDetails,
	}

	if err := s.store.FinalizeSyncRun(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to finalize sync run")
	}
}

// failRun closes the run record as failed. The triggering error is recorded
// in the log row; the caller still returns it.
func (s *Syncer) failRun(ctx context.Context, runID, ownerID string, startedAt time.Time, summary domain.SyncSummary, cause error) {
	s.finalize(ctx, runID, ownerID, startedAt, &summary, domain.SyncStatusFailed, cause.Error())
}
