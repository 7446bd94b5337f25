package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/mailspend/internal/domain"
	"github.com/dvloznov/mailspend/internal/extract"
	"github.com/dvloznov/mailspend/internal/normalize"
)

type fakeFetcher struct {
	msgs []domain.CandidateMessage
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, limit int) ([]domain.CandidateMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.msgs) > limit {
		return f.msgs[:limit], nil
	}
	return f.msgs, nil
}

type fakeExtractor struct {
	mu       sync.Mutex
	calls    int
	outcomes map[string]extract.Outcome
}

func (f *fakeExtractor) Extract(ctx context.Context, msg domain.CandidateMessage) extract.Outcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if out, ok := f.outcomes[msg.ID]; ok {
		return out
	}
	return extract.NotTransaction(msg.ID)
}

// fakeStore dedups on (ownerID, sourceMessageID) like the real store.
type fakeStore struct {
	mu        sync.Mutex
	seen      map[string]bool
	saved     []domain.Transaction
	runs      map[string]domain.SyncRun
	finalized map[string]int
	saveErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seen:      make(map[string]bool),
		runs:      make(map[string]domain.SyncRun),
		finalized: make(map[string]int),
	}
}

func (f *fakeStore) SaveTransactions(ctx context.Context, ownerID string, txs []domain.Transaction) (int, int, error) {
	if f.saveErr != nil {
		return 0, 0, f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var saved, dups int
	for _, tx := range txs {
		key := ownerID + "|" + tx.SourceMessageID
		if f.seen[key] {
			dups++
			continue
		}
		f.seen[key] = true
		f.saved = append(f.saved, tx)
		saved++
	}
	return saved, dups, nil
}

func (f *fakeStore) CreateSyncRun(ctx context.Context, ownerID string, startedAt time.Time) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("run-%d", len(f.runs)+1)
	f.runs[id] = domain.SyncRun{ID: id, OwnerID: ownerID, StartedAt: startedAt, Status: domain.SyncStatusRunning}
	return id, nil
}

func (f *fakeStore) FinalizeSyncRun(ctx context.Context, run domain.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[run.ID]++
	f.runs[run.ID] = run
	return nil
}

func testGuess(amount float64, merchant string) domain.TransactionGuess {
	return domain.TransactionGuess{
		Amount:          amount,
		Currency:        "USD",
		Merchant:        merchant,
		Category:        "shopping",
		Date:            "2025-11-02",
		TransactionType: "debit",
		Confidence:      0.9,
	}
}

func testMessages(n int) []domain.CandidateMessage {
	msgs := make([]domain.CandidateMessage, n)
	for i := range msgs {
		msgs[i] = domain.CandidateMessage{
			ID:      fmt.Sprintf("msg-%d", i+1),
			Sender:  "alerts@chase.com",
			Subject: "Transaction alert",
			Date:    "Sun, 2 Nov 2025 10:00:00 +0000",
		}
	}
	return msgs
}

func newTestSyncer(fetcher *fakeFetcher, extractor *fakeExtractor, store *fakeStore) *Syncer {
	log := zerolog.Nop()
	return New(fetcher, extractor, normalize.New("USD", log), store, log,
		WithBatchSize(2),
		WithBatchInterval(time.Millisecond))
}

func TestRunNoMessages(t *testing.T) {
	fetcher := &fakeFetcher{}
	extractor := &fakeExtractor{}
	store := newFakeStore()
	s := newTestSyncer(fetcher, extractor, store)

	summary, err := s.Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.MessagesFetched != 0 || summary.TransactionsSaved != 0 {
		t.Errorf("expected all-zero summary, got %+v", summary)
	}
	if extractor.calls != 0 {
		t.Errorf("extractor called %d times on empty fetch", extractor.calls)
	}
	run := store.runs[summary.RunID]
	if run.Status != domain.SyncStatusSuccess {
		t.Errorf("run status = %q, want success", run.Status)
	}
	if store.finalized[summary.RunID] != 1 {
		t.Errorf("run finalized %d times, want 1", store.finalized[summary.RunID])
	}
}

func TestRunMixedOutcomes(t *testing.T) {
	msgs := testMessages(5)
	fetcher := &fakeFetcher{msgs: msgs}
	extractor := &fakeExtractor{outcomes: map[string]extract.Outcome{
		"msg-1": extract.Transactions("msg-1", []domain.TransactionGuess{testGuess(33.15, "REMITLY")}),
		"msg-2": extract.NotTransaction("msg-2"),
		"msg-3": extract.Failed("msg-3", "model response was not valid JSON"),
		"msg-4": extract.Transactions("msg-4", []domain.TransactionGuess{
			testGuess(12.50, "Starbucks"),
			testGuess(45.00, "Shell"),
		}),
		// msg-5 defaults to not-a-transaction.
	}}
	store := newFakeStore()
	s := newTestSyncer(fetcher, extractor, store)

	summary, err := s.Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.MessagesFetched != 5 || summary.MessagesProcessed != 5 {
		t.Errorf("fetched/processed = %d/%d, want 5/5", summary.MessagesFetched, summary.MessagesProcessed)
	}
	if summary.TransactionsFound != 3 {
		t.Errorf("TransactionsFound = %d, want 3", summary.TransactionsFound)
	}
	if summary.NonTransactionMessages != 2 {
		t.Errorf("NonTransactionMessages = %d, want 2", summary.NonTransactionMessages)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].MessageID != "msg-3" {
		t.Errorf("Failed = %+v, want single msg-3 entry", summary.Failed)
	}
	if summary.TransactionsSaved+summary.DuplicatesSkipped != summary.TransactionsFound {
		t.Errorf("saved %d + duplicates %d != found %d",
			summary.TransactionsSaved, summary.DuplicatesSkipped, summary.TransactionsFound)
	}
	if extractor.calls != 5 {
		t.Errorf("extractor calls = %d, want 5", extractor.calls)
	}
	if store.runs[summary.RunID].Status != domain.SyncStatusSuccess {
		t.Errorf("run status = %q, want success", store.runs[summary.RunID].Status)
	}
}

func TestRunOneFailureDoesNotAbort(t *testing.T) {
	// A group where one message fails extraction still yields the others'
	// transactions, records the failure, and finishes as success.
	msgs := testMessages(2)
	fetcher := &fakeFetcher{msgs: msgs}
	extractor := &fakeExtractor{outcomes: map[string]extract.Outcome{
		"msg-1": extract.Failed("msg-1", "deadline exceeded after 3 attempts"),
		"msg-2": extract.Transactions("msg-2", []domain.TransactionGuess{testGuess(9.99, "Netflix")}),
	}}
	store := newFakeStore()
	s := newTestSyncer(fetcher, extractor, store)

	summary, err := s.Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TransactionsSaved != 1 {
		t.Errorf("TransactionsSaved = %d, want 1", summary.TransactionsSaved)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("Failed = %+v, want one entry", summary.Failed)
	}
	if store.runs[summary.RunID].Status != domain.SyncStatusSuccess {
		t.Errorf("run status = %q, want success", store.runs[summary.RunID].Status)
	}
	if store.runs[summary.RunID].ErrorCount != 1 {
		t.Errorf("run ErrorCount = %d, want 1", store.runs[summary.RunID].ErrorCount)
	}
}

func TestRunRejectedGuessDroppedQuietly(t *testing.T) {
	msgs := testMessages(1)
	fetcher := &fakeFetcher{msgs: msgs}
	extractor := &fakeExtractor{outcomes: map[string]extract.Outcome{
		"msg-1": extract.Transactions("msg-1", []domain.TransactionGuess{
			testGuess(-5, "Broken"), // rejected: non-positive amount
			testGuess(20, "Target"),
		}),
	}}
	store := newFakeStore()
	s := newTestSyncer(fetcher, extractor, store)

	summary, err := s.Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TransactionsFound != 1 {
		t.Errorf("TransactionsFound = %d, want 1 (rejected guess must not count)", summary.TransactionsFound)
	}
	if len(summary.Failed) != 0 {
		t.Errorf("rejected guess must not appear in Failed, got %+v", summary.Failed)
	}
	if summary.TransactionsSaved != 1 {
		t.Errorf("TransactionsSaved = %d, want 1", summary.TransactionsSaved)
	}
}

func TestRunSecondRunAllDuplicates(t *testing.T) {
	msgs := testMessages(2)
	outcomes := map[string]extract.Outcome{
		"msg-1": extract.Transactions("msg-1", []domain.TransactionGuess{testGuess(10, "Uber")}),
		"msg-2": extract.Transactions("msg-2", []domain.TransactionGuess{testGuess(25, "Costco")}),
	}
	store := newFakeStore()

	first, err := newTestSyncer(&fakeFetcher{msgs: msgs}, &fakeExtractor{outcomes: outcomes}, store).
		Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.TransactionsSaved != 2 || first.DuplicatesSkipped != 0 {
		t.Fatalf("first run saved/dups = %d/%d, want 2/0", first.TransactionsSaved, first.DuplicatesSkipped)
	}

	second, err := newTestSyncer(&fakeFetcher{msgs: msgs}, &fakeExtractor{outcomes: outcomes}, store).
		Run(context.Background(), "owner-1", 50)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.TransactionsSaved != 0 || second.DuplicatesSkipped != 2 {
		t.Errorf("second run saved/dups = %d/%d, want 0/2", second.TransactionsSaved, second.DuplicatesSkipped)
	}
	if len(store.saved) != 2 {
		t.Errorf("store holds %d transactions after two runs, want 2", len(store.saved))
	}
}

func TestRunFetchErrorFinalizesRunAsFailed(t *testing.T) {
	fetchErr := errors.New("mailbox unavailable")
	fetcher := &fakeFetcher{err: fetchErr}
	store := newFakeStore()
	s := newTestSyncer(fetcher, &fakeExtractor{}, store)

	_, err := s.Run(context.Background(), "owner-1", 50)
	if err == nil {
		t.Fatal("expected error from Run")
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("error %v does not wrap fetch error", err)
	}

	if len(store.runs) != 1 {
		t.Fatalf("expected one run record, got %d", len(store.runs))
	}
	for id, run := range store.runs {
		if run.Status != domain.SyncStatusFailed {
			t.Errorf("run status = %q, want failed", run.Status)
		}
		if run.ErrorDetails == "" {
			t.Error("failed run has empty error details")
		}
		if store.finalized[id] != 1 {
			t.Errorf("run finalized %d times, want 1", store.finalized[id])
		}
	}
}

func TestRunSaveErrorFinalizesRunAsFailed(t *testing.T) {
	msgs := testMessages(1)
	fetcher := &fakeFetcher{msgs: msgs}
	extractor := &fakeExtractor{outcomes: map[string]extract.Outcome{
		"msg-1": extract.Transactions("msg-1", []domain.TransactionGuess{testGuess(10, "Uber")}),
	}}
	store := newFakeStore()
	store.saveErr = errors.New("database is locked")
	s := newTestSyncer(fetcher, extractor, store)

	_, err := s.Run(context.Background(), "owner-1", 50)
	if err == nil {
		t.Fatal("expected error from Run")
	}
	for _, run := range store.runs {
		if run.Status != domain.SyncStatusFailed {
			t.Errorf("run status = %q, want failed", run.Status)
		}
	}
}

func TestRunCreateRunErrorReturnsImmediately(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("database is locked")
	s := newTestSyncer(&fakeFetcher{msgs: testMessages(1)}, &fakeExtractor{}, store)

	_, err := s.Run(context.Background(), "owner-1", 50)
	if err == nil {
		t.Fatal("expected error from Run")
	}
	if len(store.finalized) != 0 {
		t.Errorf("no run should be finalized when creation fails, got %v", store.finalized)
	}
}

func TestRunGroupsAreSequential(t *testing.T) {
	// With a batch size of 2 and 5 messages, at most 2 extractions may be in
	// flight at any instant.
	msgs := testMessages(5)
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	extractor := &trackingExtractor{onExtract: func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}}

	store := newFakeStore()
	log := zerolog.Nop()
	s := New(&fakeFetcher{msgs: msgs}, extractor, normalize.New("USD", log), store, log,
		WithBatchSize(2),
		WithBatchInterval(time.Millisecond))

	if _, err := s.Run(context.Background(), "owner-1", 50); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxInFlight > 2 {
		t.Errorf("max in-flight extractions = %d, want <= 2", maxInFlight)
	}
}

type trackingExtractor struct {
	onExtract func()
}

func (t *trackingExtractor) Extract(ctx context.Context, msg domain.CandidateMessage) extract.Outcome {
	t.onExtract()
	return extract.NotTransaction(msg.ID)
}
