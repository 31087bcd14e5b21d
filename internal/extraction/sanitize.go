package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// dateLayouts are the formats candidate dates arrive in.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

var (
	storeNumberRegex = regexp.MustCompile(`\s*#?\d{3,}\s*$`)
	spaceRunRegex    = regexp.MustCompile(`\s+`)
)

// sanitizePolicy carries the acceptance thresholds for stage 5.
type sanitizePolicy struct {
	// minConfidence is the acceptance floor; candidates below it are dropped.
	minConfidence float64
	// reviewBar flags kept transactions for review. Deliberately a
	// separate knob from minConfidence.
	reviewBar float64
}

// sanitizeCandidates validates and cleans the classifier's candidate list.
// Dropped candidates are reported as warnings, not errors: partial data is
// tolerated.
func sanitizeCandidates(sessionID int64, candidates []service.RawTransaction, policy sanitizePolicy) ([]model.Transaction, []string) {
	transactions := make([]model.Transaction, 0, len(candidates))
	var warnings []string

	for i, c := range candidates {
		date, ok := parseDate(c.Date)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("candidate %d dropped: unparseable date %q", i, c.Date))
			continue
		}

		merchant := NormalizeMerchant(c.Merchant)
		if merchant == "" {
			merchant = NormalizeMerchant(c.Description)
		}
		if merchant == "" {
			warnings = append(warnings, fmt.Sprintf("candidate %d dropped: no merchant", i))
			continue
		}

		txn := model.Transaction{
			ID:          uuid.New().String(),
			SessionID:   sessionID,
			Date:        date,
			Description: strings.TrimSpace(c.Description),
			Merchant:    merchant,
			Amount:      c.Amount,
			Type:        normalizeType(c.Type),
			Confidence:  c.Confidence,
			MCCStatus:   model.MCCUnknown,
		}
		txn.ClampConfidence()

		if txn.Amount == 0 && !txn.IsChargeExempt() {
			warnings = append(warnings, fmt.Sprintf("candidate %d dropped: zero amount", i))
			continue
		}
		if txn.Confidence < policy.minConfidence {
			warnings = append(warnings, fmt.Sprintf("candidate %d dropped: confidence %.2f below acceptance floor", i, txn.Confidence))
			continue
		}

		txn.DeriveReviewFlag(policy.reviewBar)
		transactions = append(transactions, txn)
	}

	return transactions, warnings
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeMerchant cleans a raw merchant string: whitespace collapsed,
// trailing store numbers stripped, length bounded.
func NormalizeMerchant(raw string) string {
	merchant := spaceRunRegex.ReplaceAllString(strings.TrimSpace(raw), " ")
	merchant = storeNumberRegex.ReplaceAllString(merchant, "")
	merchant = strings.TrimRight(merchant, " -*")
	if len(merchant) > 64 {
		merchant = strings.TrimSpace(merchant[:64])
	}
	return merchant
}

func normalizeType(raw string) model.TransactionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "refund", "credit":
		return model.TypeRefund
	case "fee":
		return model.TypeFee
	case "interest":
		return model.TypeInterest
	case "payment":
		return model.TypePayment
	default:
		return model.TypePurchase
	}
}
