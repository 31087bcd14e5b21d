// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"io"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// SessionStore defines the persistence contract for sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id int64) (*model.Session, error)
	GetSessionByToken(ctx context.Context, token string) (*model.Session, error)
	UpdateSession(ctx context.Context, session *model.Session) error
	// DeleteSession removes the session and cascades to its transactions
	// and cached recommendations.
	DeleteSession(ctx context.Context, id int64) error
	ListExpiredSessions(ctx context.Context, asOf time.Time) ([]model.Session, error)
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)
}

// TransactionStore defines the persistence contract for extracted transactions.
type TransactionStore interface {
	// ReplaceTransactions atomically deletes any prior transactions for the
	// session and inserts the new set. A concurrent reader never observes a
	// partially replaced set.
	ReplaceTransactions(ctx context.Context, sessionID int64, transactions []model.Transaction) error
	ListTransactionsBySession(ctx context.Context, sessionID int64) ([]model.Transaction, error)
}

// CatalogFilters narrows the set of cards eligible for scoring.
type CatalogFilters struct {
	MaxAnnualFee         float64 // Negative means no cap
	PreferredNetwork     model.CardNetwork
	IncludeBusinessCards bool
}

// CatalogRepository provides read-only access to the card catalog.
type CatalogRepository interface {
	ListEligibleCards(ctx context.Context, filters CatalogFilters) ([]model.Card, error)
	GetAcceleratedRewards(ctx context.Context, cardID string) ([]model.RewardRule, error)
}

// RecommendationCache stores derived recommendation results keyed by
// session. Entries are invalidated whenever the session's transactions
// change; it is never the authoritative source.
type RecommendationCache interface {
	SaveResult(ctx context.Context, sessionID int64, result *model.RecommendationResult) error
	GetResult(ctx context.Context, sessionID int64) (*model.RecommendationResult, error)
	InvalidateResult(ctx context.Context, sessionID int64) error
}

// ParsedDocument is the output of document parsing.
type ParsedDocument struct {
	Text      string
	PageCount int
	Stats     StructuralStats
}

// StructuralStats carries rough document-shape heuristics.
type StructuralStats struct {
	LineCount     int
	NumericCount  int
	DateCount     int
	CurrencyCount int
	TableDensity  float64 // Fraction of lines that look tabular
}

// DocumentParser turns a raw statement document into text plus stats.
type DocumentParser interface {
	Parse(ctx context.Context, r io.Reader) (*ParsedDocument, error)
}

// ExtractionHints carries optional caller knowledge about the document.
type ExtractionHints struct {
	ExpectedIssuer           string
	ExpectedTransactionCount int
}

// RawTransaction is one candidate line item as reported by the text
// classifier, before validation and sanitization.
type RawTransaction struct {
	Date        string
	Description string
	Merchant    string
	Type        string
	Amount      float64
	Confidence  float64
}

// ExtractionResponse is the classifier's full answer for one document.
type ExtractionResponse struct {
	Candidates []RawTransaction
	Confidence float64
	Warnings   []string
}

// TextClassifier is the external text-understanding capability that turns
// cleaned statement text into candidate transactions.
type TextClassifier interface {
	Extract(ctx context.Context, text string, hints ExtractionHints) (*ExtractionResponse, error)
}

// MCCResolution is the category classifier's answer for one merchant.
type MCCResolution struct {
	MCCCode         string
	CategoryName    string
	SubCategoryName string
	Status          model.MCCStatus
	Confidence      float64
}

// MCCClassifier resolves normalized merchant names to MCC codes and
// spending categories.
type MCCClassifier interface {
	Resolve(ctx context.Context, merchant string) (*MCCResolution, error)
}

// ProgressEvent is one pipeline stage notification.
type ProgressEvent struct {
	Step    string
	Percent int
	Message string
}

// ProgressSink receives pipeline progress events. Delivery is best-effort:
// sink errors are logged and swallowed, never aborting the pipeline.
type ProgressSink interface {
	Notify(event ProgressEvent) error
}

// ProgressSinkFunc adapts a function to the ProgressSink interface.
type ProgressSinkFunc func(event ProgressEvent) error

// Notify calls f(event).
func (f ProgressSinkFunc) Notify(event ProgressEvent) error {
	return f(event)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
