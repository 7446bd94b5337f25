package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/dvloznov/mailspend/internal/domain"
)

// searchKeywords is the fixed disjunction of transaction-indicative terms.
// The filter is broad by design; precision is the extractor's job.
var searchKeywords = []string{
	"transaction",
	"receipt",
	"payment",
	"charged",
	"debited",
	"credited",
	"purchase",
	"invoice",
	"spent",
	"\"order confirmation\"",
}

// One initial attempt plus three retries, delayed 1s/2s/4s.
const (
	fetchAttempts  = 4
	baseRetryDelay = time.Second
)

func retryDelay(attempt int) time.Duration {
	return baseRetryDelay << (attempt - 1)
}

// Fetcher queries Gmail for candidate transaction messages and returns their
// cleaned bodies. One Fetcher serves one authenticated mailbox.
type Fetcher struct {
	svc          *gmailv1.Service
	lookbackDays int
	bodyBudget   int
	log          zerolog.Logger
}

// NewFetcher creates a Fetcher over an authenticated Gmail service.
func NewFetcher(svc *gmailv1.Service, lookbackDays, bodyBudget int, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		svc:          svc,
		lookbackDays: lookbackDays,
		bodyBudget:   bodyBudget,
		log:          log,
	}
}

// Query returns the Gmail search expression used to select candidates.
func (f *Fetcher) Query() string {
	return fmt.Sprintf("(%s) newer_than:%dd", strings.Join(searchKeywords, " OR "), f.lookbackDays)
}

// Fetch lists up to limit candidate messages and retrieves each full body.
// A list failure fails the call (classified via the package taxonomy); a
// single message fetch failure is retried with backoff and then skipped, so
// one bad message never sinks the batch.
func (f *Fetcher) Fetch(ctx context.Context, limit int) ([]domain.CandidateMessage, error) {
	list, err := f.svc.Users.Messages.List("me").
		Q(f.Query()).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Fetch: list messages: %w", classify(err))
	}

	msgs := make([]domain.CandidateMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := f.fetchOne(ctx, ref.Id)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				return nil, err
			}
			f.log.Warn().Err(err).Str("message_id", ref.Id).Msg("Skipping message after retries")
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// fetchOne retrieves and decodes a single message, retrying transient and
// rate-limit failures with 1s/2s/4s backoff. Auth failures return
// immediately.
func (f *Fetcher) fetchOne(ctx context.Context, id string) (domain.CandidateMessage, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			select {
			case <-ctx.Done():
				return domain.CandidateMessage{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		msg, err := f.svc.Users.Messages.Get("me", id).
			Format("full").
			Context(ctx).
			Do()
		if err != nil {
			lastErr = classify(err)
			if errors.Is(lastErr, ErrAuth) {
				return domain.CandidateMessage{}, lastErr
			}
			continue
		}

		return f.toCandidate(msg), nil
	}

	return domain.CandidateMessage{}, fmt.Errorf("fetchOne: message %s: %w", id, lastErr)
}

func (f *Fetcher) toCandidate(msg *gmailv1.Message) domain.CandidateMessage {
	var sender, subject, date string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				sender = h.Value
			case "subject":
				subject = h.Value
			case "date":
				date = h.Value
			}
		}
	}

	body := CleanBody(extractBody(msg.Payload), f.bodyBudget)

	return domain.CandidateMessage{
		ID:      msg.Id,
		Sender:  sender,
		Subject: subject,
		Date:    date,
		Body:    body,
	}
}
