package extract

import (
	"github.com/dvloznov/mailspend/internal/domain"
)

// Kind discriminates the possible results of extracting one message.
type Kind int

const (
	// KindNotTransaction means the model classified the message as
	// non-transactional.
	KindNotTransaction Kind = iota
	// KindTransactions means the model produced one or more guesses.
	KindTransactions
	// KindFailed means the model call or its response could not be used.
	// Failures are data: they never abort the run.
	KindFailed
)

// Outcome is the tagged result of extracting one message. Exactly one of
// Guesses / Reason is meaningful, selected by Kind; consumers must switch on
// Kind rather than probing fields.
type Outcome struct {
	Kind      Kind
	MessageID string
	Guesses   []domain.TransactionGuess
	Reason    string
}

// NotTransaction reports a message the model considered non-transactional.
func NotTransaction(messageID string) Outcome {
	return Outcome{Kind: KindNotTransaction, MessageID: messageID}
}

// Transactions reports one or more extracted guesses for a message.
func Transactions(messageID string, guesses []domain.TransactionGuess) Outcome {
	return Outcome{Kind: KindTransactions, MessageID: messageID, Guesses: guesses}
}

// Failed reports an extraction that produced nothing usable.
func Failed(messageID, reason string) Outcome {
	return Outcome{Kind: KindFailed, MessageID: messageID, Reason: reason}
}
