package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/mailspend/internal/domain"
)

const (
	// maxDisplayAmount is the sanity ceiling in display currency. Anything
	// above it is far more likely an extraction artifact than a purchase.
	maxDisplayAmount = 1_000_000.0

	// defaultConfidence replaces an absent or out-of-range confidence.
	defaultConfidence = 0.5
)

// dateLayouts are the formats accepted for the extracted transaction date,
// most specific first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"01/02/2006",
}

// RejectError reports a guess that failed validation and must not be
// persisted. Rejections are per-transaction: the run continues.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "normalize: rejected: " + e.Reason
}

// Normalizer post-processes extraction guesses into persisted-shape
// transactions. Unparseable amount, merchant or date makes the whole guess
// untrustworthy and rejects it; an unrecognized category or transaction type
// is only a labeling gap and is coerced to its fallback instead.
type Normalizer struct {
	displayCurrency string
	log             zerolog.Logger
}

// New creates a Normalizer converting into the given display currency.
func New(displayCurrency string, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		displayCurrency: strings.ToUpper(displayCurrency),
		log:             log,
	}
}

// Normalize validates and normalizes one guess against its source message.
// On failure it returns a *RejectError describing why the guess was dropped.
func (n *Normalizer) Normalize(guess domain.TransactionGuess, msg domain.CandidateMessage, ownerID string) (domain.Transaction, error) {
	if guess.Amount <= 0 {
		return domain.Transaction{}, &RejectError{Reason: fmt.Sprintf("non-positive amount %v", guess.Amount)}
	}

	merchant := CleanMerchant(guess.Merchant)
	if merchant == "" {
		return domain.Transaction{}, &RejectError{Reason: "empty merchant"}
	}

	date, err := parseDate(guess.Date)
	if err != nil {
		return domain.Transaction{}, &RejectError{Reason: fmt.Sprintf("unparseable date %q", guess.Date)}
	}

	currency := strings.ToUpper(strings.TrimSpace(guess.Currency))
	if currency == "" || !KnownCurrency(currency) {
		if currency != "" {
			n.log.Debug().
				Str("message_id", msg.ID).
				Str("currency", guess.Currency).
				Msg("Unknown currency, assuming display currency")
		}
		currency = n.displayCurrency
	}

	displayAmount := Convert(guess.Amount, currency, n.displayCurrency)
	if displayAmount > maxDisplayAmount {
		return domain.Transaction{}, &RejectError{
			Reason: fmt.Sprintf("amount %.2f %s exceeds sanity ceiling", displayAmount, n.displayCurrency),
		}
	}

	institution := strings.TrimSpace(guess.Institution)
	if institution == "" {
		institution = InferInstitution(msg.Sender, msg.Subject)
	}

	category := domain.Category(strings.ToLower(strings.TrimSpace(guess.Category)))
	if !domain.ValidCategory(category) {
		n.log.Debug().
			Str("message_id", msg.ID).
			Str("category", guess.Category).
			Msg("Unrecognized category coerced to other")
		category = domain.CategoryOther
	}

	txType := domain.TransactionType(strings.ToLower(strings.TrimSpace(guess.TransactionType)))
	if !domain.ValidTransactionType(txType) {
		n.log.Debug().
			Str("message_id", msg.ID).
			Str("transaction_type", guess.TransactionType).
			Msg("Unrecognized transaction type coerced to debit")
		txType = domain.TypeDebit
	}

	confidence := guess.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	return domain.Transaction{
		OwnerID:          ownerID,
		Merchant:         merchant,
		Category:         category,
		TransactionType:  txType,
		OriginalAmount:   guess.Amount,
		OriginalCurrency: currency,
		DisplayAmount:    displayAmount,
		DisplayCurrency:  n.displayCurrency,
		Date:             date,
		Time:             strings.TrimSpace(guess.Time),
		CardLast4:        strings.TrimSpace(guess.CardLast4),
		AccountLast4:     strings.TrimSpace(guess.AccountLast4),
		Institution:      institution,
		Description:      strings.TrimSpace(guess.Description),
		Location:         strings.TrimSpace(guess.Location),
		Confidence:       confidence,
		SourceMessageID:  msg.ID,
		SourceSubject:    msg.Subject,
		SourceDate:       msg.Date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", s)
}
