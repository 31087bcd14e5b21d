package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/analysis"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// Options are the user-supplied filters for one recommendation run. The
// zero value filters nothing: no fee cap, any network, any issuer.
type Options struct {
	CreditScore          model.CreditScoreBucket
	PreferredNetwork     model.CardNetwork
	PreferredIssuer      string
	MaxAnnualFee         float64 // <= 0 means no cap; see NoAnnualFeeOnly
	TopN                 int
	NoAnnualFeeOnly      bool
	IncludeBusinessCards bool
	IncludeAnalysis      bool
}

// Normalized maps the option surface onto the catalog filter convention,
// where a negative fee cap disables fee filtering and zero demands
// fee-free cards. The zero value of MaxAnnualFee never filters silently:
// a $0 cap must be requested through NoAnnualFeeOnly.
func (o Options) Normalized() Options {
	switch {
	case o.NoAnnualFeeOnly:
		o.MaxAnnualFee = 0
	case o.MaxAnnualFee <= 0:
		o.MaxAnnualFee = -1
	}
	return o
}

// Policy carries the engine's viability thresholds.
type Policy struct {
	TopN          int
	MinTotalSpend float64
	MinCategories int
	CacheTTL      time.Duration
}

// Engine orchestrates scoring across the full catalog, filters by
// eligibility, ranks, and packages a result.
type Engine struct {
	catalog    service.CatalogRepository
	aggregator *analysis.Aggregator
	scorer     *Scorer
	policy     Policy
}

// NewEngine creates a recommendation engine.
func NewEngine(catalog service.CatalogRepository, scorer *Scorer, policy Policy) *Engine {
	if policy.TopN <= 0 {
		policy.TopN = 3
	}
	if policy.CacheTTL <= 0 {
		policy.CacheTTL = time.Hour
	}
	return &Engine{
		catalog:    catalog,
		aggregator: analysis.NewAggregator(),
		scorer:     scorer,
		policy:     policy,
	}
}

// Generate scores every eligible catalog card against the session's
// transactions. Sparse data lowers confidence but never refuses a
// ranking: explainability is preferred over hard failure.
func (e *Engine) Generate(ctx context.Context, transactions []model.Transaction, opts Options) (*model.RecommendationResult, error) {
	opts = opts.Normalized()
	patterns := e.aggregator.Aggregate(transactions)
	criteria := e.buildCriteria(transactions, patterns, opts)
	quality := dataQuality(transactions)

	cards, err := e.catalog.ListEligibleCards(ctx, service.CatalogFilters{
		MaxAnnualFee:         opts.MaxAnnualFee,
		PreferredNetwork:     opts.PreferredNetwork,
		IncludeBusinessCards: opts.IncludeBusinessCards,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible cards: %w", err)
	}

	recommendations := make([]model.CardRecommendation, 0, len(cards))
	for _, card := range cards {
		rules, err := e.catalog.GetAcceleratedRewards(ctx, card.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rewards for %s: %w", card.ID, err)
		}
		recommendations = append(recommendations, e.scorer.Score(card, rules, patterns, criteria, quality))
	}

	// Rank: score desc, confidence desc, card id asc. Deterministic.
	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		if recommendations[i].ConfidenceScore != recommendations[j].ConfidenceScore {
			return recommendations[i].ConfidenceScore > recommendations[j].ConfidenceScore
		}
		return recommendations[i].CardID < recommendations[j].CardID
	})

	topN := opts.TopN
	if topN <= 0 {
		topN = e.policy.TopN
	}
	if len(recommendations) > topN {
		recommendations = recommendations[:topN]
	}

	lowConfidence := criteria.TotalSpend < e.policy.MinTotalSpend || len(patterns) < e.policy.MinCategories

	now := time.Now().UTC()
	result := &model.RecommendationResult{
		GeneratedAt:     now,
		ExpiresAt:       now.Add(e.policy.CacheTTL),
		Criteria:        criteria,
		Recommendations: recommendations,
		Summary:         e.summarize(recommendations, patterns, lowConfidence),
		LowConfidence:   lowConfidence,
	}
	if opts.IncludeAnalysis {
		result.Analysis = patterns
	}
	return result, nil
}

func (e *Engine) buildCriteria(transactions []model.Transaction, patterns []model.SpendingPattern, opts Options) model.RecommendationCriteria {
	criteria := model.RecommendationCriteria{
		CreditScore:          opts.CreditScore,
		PreferredNetwork:     opts.PreferredNetwork,
		PreferredIssuer:      opts.PreferredIssuer,
		MaxAnnualFee:         opts.MaxAnnualFee,
		IncludeBusinessCards: opts.IncludeBusinessCards,
		StatementMonths:      analysis.MonthSpan(transactions),
	}
	for _, txn := range transactions {
		if txn.Amount > 0 {
			criteria.TotalSpend += txn.Amount
		}
	}
	for i, pattern := range patterns {
		if i >= 3 {
			break
		}
		criteria.TopCategories = append(criteria.TopCategories, pattern.CategoryName)
	}
	return criteria
}

func (e *Engine) summarize(recommendations []model.CardRecommendation, patterns []model.SpendingPattern, lowConfidence bool) model.RecommendationSummary {
	summary := model.RecommendationSummary{
		CategoryCount:   len(patterns),
		ConfidenceLabel: "high",
	}
	if len(recommendations) == 0 {
		summary.ConfidenceLabel = "low"
		return summary
	}

	top := recommendations[0]
	summary.TopPick = top.CardName
	summary.PotentialSavings = round2(top.PotentialSavings())

	var meanScore, meanConfidence float64
	for _, r := range recommendations {
		meanScore += r.Score
		meanConfidence += r.ConfidenceScore
	}
	summary.MeanScore = round2(meanScore / float64(len(recommendations)))
	meanConfidence /= float64(len(recommendations))

	switch {
	case lowConfidence || meanConfidence < 0.4:
		summary.ConfidenceLabel = "low"
	case meanConfidence < 0.7:
		summary.ConfidenceLabel = "moderate"
	}
	return summary
}

// dataQuality measures how trustworthy the transaction set is as scoring
// input.
func dataQuality(transactions []model.Transaction) DataQuality {
	if len(transactions) == 0 {
		return DataQuality{}
	}
	var categorized, verified int
	for _, txn := range transactions {
		if txn.CategoryName != "" {
			categorized++
		}
		if txn.IsVerified || txn.MCCStatus == model.MCCKnown {
			verified++
		}
	}
	return DataQuality{
		CategorizedFraction: float64(categorized) / float64(len(transactions)),
		VerifiedFraction:    float64(verified) / float64(len(transactions)),
	}
}
