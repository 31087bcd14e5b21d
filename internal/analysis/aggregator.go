// Package analysis reduces classified transactions into ranked spending
// patterns.
package analysis

import (
	"math"
	"sort"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// Aggregator groups transactions by category into spending patterns.
type Aggregator struct{}

// NewAggregator creates a spending aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate reduces transactions into patterns ordered by total spend
// descending, ties broken by transaction count descending then category
// name ascending. Ordering is deterministic: the same input always yields
// the same output. Uncategorized transactions count toward the overall
// total but form no pattern, so percentages sum below 100 when some spend
// is uncategorized.
func (a *Aggregator) Aggregate(transactions []model.Transaction) []model.SpendingPattern {
	months := MonthSpan(transactions)

	var overallTotal float64
	groups := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		if txn.Amount <= 0 {
			continue
		}
		overallTotal += txn.Amount
		if txn.CategoryName == "" {
			continue
		}
		groups[txn.CategoryName] = append(groups[txn.CategoryName], txn)
	}

	patterns := make([]model.SpendingPattern, 0, len(groups))
	for category, txns := range groups {
		var total float64
		mccSet := make(map[string]struct{})
		merchantSet := make(map[string]struct{})
		for _, txn := range txns {
			total += txn.Amount
			if txn.MCCCode != "" {
				mccSet[txn.MCCCode] = struct{}{}
			}
			if txn.Merchant != "" {
				merchantSet[txn.Merchant] = struct{}{}
			}
		}

		pattern := model.SpendingPattern{
			CategoryName:     category,
			TotalSpent:       total,
			TransactionCount: len(txns),
			AverageAmount:    total / float64(len(txns)),
			MonthlyAverage:   total / float64(months),
			MCCCodes:         sortedKeys(mccSet),
			Merchants:        sortedKeys(merchantSet),
		}
		if overallTotal > 0 {
			pattern.Percentage = round2(total / overallTotal * 100)
		}
		patterns = append(patterns, pattern)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].TotalSpent != patterns[j].TotalSpent {
			return patterns[i].TotalSpent > patterns[j].TotalSpent
		}
		if patterns[i].TransactionCount != patterns[j].TransactionCount {
			return patterns[i].TransactionCount > patterns[j].TransactionCount
		}
		return patterns[i].CategoryName < patterns[j].CategoryName
	})
	return patterns
}

// MonthSpan counts the distinct calendar months covered by the
// transaction set. A span of 0 or 1 is treated as 1 for division.
func MonthSpan(transactions []model.Transaction) int {
	months := make(map[string]struct{})
	for _, txn := range transactions {
		if txn.Date.IsZero() {
			continue
		}
		months[txn.Date.Format("2006-01")] = struct{}{}
	}
	if len(months) <= 1 {
		return 1
	}
	return len(months)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
