package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/mailspend/internal/domain"
)

const txDateLayout = "2006-01-02"

// SaveTransactions upserts validated transactions with insert-or-ignore
// semantics on (owner_id, source_message_id). A conflicting row is a no-op
// counted as a duplicate, not an error: saved + duplicates == len(txs) on
// every call.
func (s *Store) SaveTransactions(ctx context.Context, ownerID string, txs []domain.Transaction) (saved, duplicates int, err error) {
	if len(txs) == 0 {
		return 0, 0, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("SaveTransactions: begin: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, merchant, category, transaction_type,
			original_amount, original_currency, display_amount, display_currency,
			tx_date, tx_time, card_last4, account_last4, institution, description, location,
			confidence, source_message_id, source_subject, source_date, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, source_message_id) DO NOTHING
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("SaveTransactions: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, tx := range txs {
		res, err := stmt.ExecContext(ctx,
			uuid.NewString(), ownerID, tx.Merchant, string(tx.Category), string(tx.TransactionType),
			tx.OriginalAmount, tx.OriginalCurrency, tx.DisplayAmount, tx.DisplayCurrency,
			tx.Date.Format(txDateLayout), tx.Time, tx.CardLast4, tx.AccountLast4, tx.Institution, tx.Description, tx.Location,
			tx.Confidence, tx.SourceMessageID, tx.SourceSubject, tx.SourceDate, now.Format(time.RFC3339),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("SaveTransactions: insert %s: %w", tx.SourceMessageID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("SaveTransactions: rows affected: %w", err)
		}
		if affected > 0 {
			saved++
		} else {
			duplicates++
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("SaveTransactions: commit: %w", err)
	}
	return saved, duplicates, nil
}

// TransactionFilter narrows ListTransactions results. OwnerID is required;
// everything else is optional.
type TransactionFilter struct {
	Category string
	Limit    int
	Offset   int
}

// ListTransactions returns an owner's transactions newest-first.
func (s *Store) ListTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]domain.Transaction, error) {
	query := `
		SELECT id, owner_id, merchant, category, transaction_type,
		       original_amount, original_currency, display_amount, display_currency,
		       tx_date, tx_time, card_last4, account_last4, institution, description, location,
		       confidence, source_message_id, source_subject, source_date, created_at
		FROM transactions
		WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, strings.ToLower(filter.Category))
	}

	query += " ORDER BY tx_date DESC, created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var category, txType, txDate, createdAt string
		if err := rows.Scan(
			&tx.ID, &tx.OwnerID, &tx.Merchant, &category, &txType,
			&tx.OriginalAmount, &tx.OriginalCurrency, &tx.DisplayAmount, &tx.DisplayCurrency,
			&txDate, &tx.Time, &tx.CardLast4, &tx.AccountLast4, &tx.Institution, &tx.Description, &tx.Location,
			&tx.Confidence, &tx.SourceMessageID, &tx.SourceSubject, &tx.SourceDate, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		tx.Category = domain.Category(category)
		tx.TransactionType = domain.TransactionType(txType)
		if d, err := time.Parse(txDateLayout, txDate); err == nil {
			tx.Date = d
		}
		if c, err := time.Parse(time.RFC3339, createdAt); err == nil {
			tx.CreatedAt = c
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// CountTransactions returns the number of stored transactions for an owner.
func (s *Store) CountTransactions(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE owner_id = ?", ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountTransactions: %w", err)
	}
	return count, nil
}
