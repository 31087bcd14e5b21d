package model

import "time"

// RecommendationCriteria captures the spending snapshot and user filters
// that produced a recommendation result, stored for auditability.
type RecommendationCriteria struct {
	CreditScore          CreditScoreBucket
	PreferredNetwork     CardNetwork
	PreferredIssuer      string
	MaxAnnualFee         float64 // Negative means no cap
	IncludeBusinessCards bool
	TotalSpend           float64
	StatementMonths      int
	TopCategories        []string
}

// NoFeeCap reports whether the criteria place no ceiling on annual fees.
func (c *RecommendationCriteria) NoFeeCap() bool {
	return c.MaxAnnualFee < 0
}

// ScoreBreakdown itemizes the weighted sub-scores and adjustment factors
// behind a card's final score.
type ScoreBreakdown struct {
	FirstYearValue    float64
	CategoryAlignment float64
	FeeEfficiency     float64
	BrandPreference   float64
	Accessibility     float64
	Bonuses           []ScoreFactor
	Penalties         []ScoreFactor
}

// ScoreFactor is one named bonus or penalty contribution.
type ScoreFactor struct {
	Name   string
	Points float64
}

// BenefitBreakdown compares current vs. card earnings for one category
// over the statement period.
type BenefitBreakdown struct {
	CategoryName string
	AmountSpent  float64
	CurrentRate  float64
	CardRate     float64
	CurrentValue float64
	CardValue    float64
	Capped       bool
}

// CardRecommendation is one ranked output row.
type CardRecommendation struct {
	CardID           string
	CardName         string
	Issuer           string
	Score            float64
	ConfidenceScore  float64
	Breakdown        ScoreBreakdown
	BenefitBreakdown []BenefitBreakdown
	Pros             []string
	Cons             []string
}

// PotentialSavings is the statement-period gain a recommendation offers
// over the user's current earnings.
func (r *CardRecommendation) PotentialSavings() float64 {
	var total float64
	for _, b := range r.BenefitBreakdown {
		total += b.CardValue - b.CurrentValue
	}
	return total
}

// RecommendationSummary condenses a result for display.
type RecommendationSummary struct {
	TopPick          string
	PotentialSavings float64
	MeanScore        float64
	CategoryCount    int
	ConfidenceLabel  string
}

// RecommendationResult packages a full ranking run.
type RecommendationResult struct {
	GeneratedAt     time.Time
	ExpiresAt       time.Time
	Criteria        RecommendationCriteria
	Recommendations []CardRecommendation
	Summary         RecommendationSummary
	Analysis        []SpendingPattern // Optional full spending breakdown
	LowConfidence   bool
}
