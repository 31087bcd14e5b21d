package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// ReplaceTransactions atomically swaps the session's transaction set.
// Delete-then-insert runs in one SQL transaction so re-extraction is
// idempotent and a concurrent reader never sees a partial set. The
// session's cached recommendations are invalidated in the same commit.
func (s *SQLiteStorage) ReplaceTransactions(ctx context.Context, sessionID int64, transactions []model.Transaction) error {
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to delete prior transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recommendation_cache WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to invalidate recommendation cache: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (
				id, session_id, date, description, merchant, amount, type,
				confidence, mcc_code, category_name, sub_category_name,
				mcc_status, mcc_confidence, is_verified, needs_review
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			if _, err := stmt.ExecContext(ctx,
				txn.ID, sessionID, txn.Date.UTC(), txn.Description, txn.Merchant,
				txn.Amount, string(txn.Type), txn.Confidence, txn.MCCCode,
				txn.CategoryName, txn.SubCategoryName, string(txn.MCCStatus),
				txn.MCCConfidence, txn.IsVerified, txn.NeedsReview,
			); err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// ListTransactionsBySession returns all transactions for a session,
// ordered by date then id for deterministic output.
func (s *SQLiteStorage) ListTransactionsBySession(ctx context.Context, sessionID int64) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, date, description, merchant, amount, type,
			confidence, mcc_code, category_name, sub_category_name,
			mcc_status, mcc_confidence, is_verified, needs_review
		FROM transactions
		WHERE session_id = ?
		ORDER BY date, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var txnType, mccStatus string
		if err := rows.Scan(
			&txn.ID, &txn.SessionID, &txn.Date, &txn.Description, &txn.Merchant,
			&txn.Amount, &txnType, &txn.Confidence, &txn.MCCCode,
			&txn.CategoryName, &txn.SubCategoryName, &mccStatus,
			&txn.MCCConfidence, &txn.IsVerified, &txn.NeedsReview,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Type = model.TransactionType(txnType)
		txn.MCCStatus = model.MCCStatus(mccStatus)
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
