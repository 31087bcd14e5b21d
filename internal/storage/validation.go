package storage

import (
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return common.NewValidationError(paramName, "cannot be empty")
	}
	return nil
}

// validateSession validates a session before persistence.
func validateSession(session *model.Session) error {
	if session == nil {
		return common.NewValidationError("session", "cannot be nil")
	}
	if session.Token == "" {
		return common.NewValidationError("session.token", "cannot be empty")
	}
	if session.Status == "" {
		return common.NewValidationError("session.status", "cannot be empty")
	}
	if session.ExpiresAt.IsZero() {
		return common.NewValidationError("session.expiresAt", "cannot be zero")
	}
	if session.Progress < 0 || session.Progress > 100 {
		return common.NewValidationError("session.progress", "must be in [0,100]")
	}
	return nil
}

// validateTransaction validates a single transaction before persistence.
// Amount and merchant are required; confidence must already be clamped.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return common.NewValidationError("transaction", "cannot be nil")
	}
	if txn.ID == "" {
		return common.NewValidationError("transaction.id", "cannot be empty")
	}
	if txn.Date.IsZero() {
		return common.NewValidationError("transaction.date", "cannot be zero")
	}
	if txn.Merchant == "" {
		return common.NewValidationError("transaction.merchant", "cannot be empty")
	}
	if txn.Amount == 0 && !txn.IsChargeExempt() {
		return common.NewValidationError("transaction.amount", "cannot be zero")
	}
	if txn.Confidence < 0 || txn.Confidence > 1 {
		return common.NewValidationError("transaction.confidence", "must be in [0,1]")
	}
	return nil
}
