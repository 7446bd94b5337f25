package domain

import (
	"time"
)

// Category is the fixed spending taxonomy the extraction model classifies into.
type Category string

const (
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryTravel        Category = "travel"
	CategoryTransfer      Category = "transfer"
	CategorySubscription  Category = "subscription"
	CategoryIncome        Category = "income"
	CategoryOther         Category = "other"
)

// Categories lists every valid category, in prompt order.
var Categories = []Category{
	CategoryGroceries,
	CategoryDining,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryTravel,
	CategoryTransfer,
	CategorySubscription,
	CategoryIncome,
	CategoryOther,
}

// ValidCategory reports whether c is a member of the fixed taxonomy.
func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// TransactionType describes the direction of money movement.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
	TypeRefund TransactionType = "refund"
)

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TypeDebit, TypeCredit, TypeRefund:
		return true
	}
	return false
}

// TransactionGuess is one structured transaction as returned by the
// extraction model for a single email. Nothing in it is trusted: amounts may
// be garbage, the currency may be wrong or missing, and category /
// transaction_type may fall outside the fixed enumerations. Every guess must
// pass through normalize.Normalize before it becomes a Transaction.
type TransactionGuess struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Merchant        string  `json:"merchant"`
	Category        string  `json:"category"`
	Date            string  `json:"date"`
	Time            string  `json:"time,omitempty"`
	CardLast4       string  `json:"card_last4,omitempty"`
	AccountLast4    string  `json:"account_last4,omitempty"`
	Institution     string  `json:"institution,omitempty"`
	TransactionType string  `json:"transaction_type"`
	Description     string  `json:"description"`
	Location        string  `json:"location,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// Transaction is a validated, normalized transaction ready to be persisted.
// SourceMessageID is the dedup key: the store enforces uniqueness of
// (owner_id, source_message_id) so re-syncing the same mailbox never creates
// a second row. Transactions are never mutated by the pipeline after
// creation.
type Transaction struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Merchant        string          `json:"merchant"`
	Category        Category        `json:"category"`
	TransactionType TransactionType `json:"transaction_type"`

	OriginalAmount   float64 `json:"original_amount"`
	OriginalCurrency string  `json:"original_currency"`
	DisplayAmount    float64 `json:"display_amount"`
	DisplayCurrency  string  `json:"display_currency"`

	Date         time.Time `json:"date"`
	Time         string    `json:"time,omitempty"`
	CardLast4    string    `json:"card_last4,omitempty"`
	AccountLast4 string    `json:"account_last4,omitempty"`
	Institution  string    `json:"institution"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	Confidence   float64   `json:"confidence"`

	SourceMessageID string    `json:"source_message_id"`
	SourceSubject   string    `json:"source_subject"`
	SourceDate      string    `json:"source_date"`
	CreatedAt       time.Time `json:"created_at"`
}
