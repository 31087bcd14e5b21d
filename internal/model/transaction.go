package model

import "time"

// TransactionType classifies a statement line item.
type TransactionType string

// Transaction type constants.
const (
	TypePurchase TransactionType = "purchase"
	TypeRefund   TransactionType = "refund"
	TypeFee      TransactionType = "fee"
	TypeInterest TransactionType = "interest"
	TypePayment  TransactionType = "payment"
)

// MCCStatus indicates how a transaction's merchant category code was resolved.
type MCCStatus string

// MCC resolution constants.
const (
	MCCKnown      MCCStatus = "known"
	MCCUnknown    MCCStatus = "unknown"
	MCCDiscovered MCCStatus = "discovered"
)

// Transaction represents a single line item extracted from a statement,
// owned by exactly one session.
type Transaction struct {
	Date            time.Time
	ID              string
	SessionID       int64
	Description     string // Raw statement description
	Merchant        string // Normalized merchant name
	Amount          float64
	Type            TransactionType
	Confidence      float64 // Extraction confidence, clamped to [0,1]
	MCCCode         string
	CategoryName    string
	SubCategoryName string
	MCCStatus       MCCStatus
	MCCConfidence   float64
	IsVerified      bool
	NeedsReview     bool
}

// ClampConfidence forces both confidence fields into [0,1].
func (t *Transaction) ClampConfidence() {
	t.Confidence = clamp01(t.Confidence)
	t.MCCConfidence = clamp01(t.MCCConfidence)
}

// DeriveReviewFlag recomputes NeedsReview from the acceptance bar.
// NeedsReview is always derived, never hand-set.
func (t *Transaction) DeriveReviewFlag(reviewBar float64) {
	t.NeedsReview = t.Confidence < reviewBar
}

// IsChargeExempt reports whether a zero-amount entry may be kept.
func (t *Transaction) IsChargeExempt() bool {
	return t.Type == TypeFee || t.Type == TypeInterest
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
