// Package recommend turns aggregated spending data into ranked,
// explainable card recommendations.
package recommend

import (
	"fmt"
	"math"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// Weights are the five sub-score weights applied after normalization.
type Weights struct {
	FirstYearValue    float64
	CategoryAlignment float64
	FeeEfficiency     float64
	BrandPreference   float64
	Accessibility     float64
}

// DefaultWeights returns the standard scoring profile.
func DefaultWeights() Weights {
	return Weights{
		FirstYearValue:    0.25,
		CategoryAlignment: 0.30,
		FeeEfficiency:     0.20,
		BrandPreference:   0.10,
		Accessibility:     0.15,
	}
}

// DataQuality carries the signals the confidence score is computed from.
// It quantifies how much to trust a score, never the score itself.
type DataQuality struct {
	CategorizedFraction float64 // Transactions with a resolved category
	VerifiedFraction    float64 // Transactions with a verified MCC
}

// Scorer scores one catalog card against a set of spending patterns.
type Scorer struct {
	weights         Weights
	currentBaseRate float64 // Assumed earn rate on the user's current card
}

// NewScorer creates a scorer with the given weight profile.
func NewScorer(weights Weights, currentBaseRate float64) *Scorer {
	if currentBaseRate <= 0 {
		currentBaseRate = 1.0
	}
	return &Scorer{weights: weights, currentBaseRate: currentBaseRate}
}

// firstYearScale saturates the first-year-value sub-score: a card worth
// this much in its first statement year scores 100.
const firstYearScale = 500.0

// Score produces the full recommendation row for one card. Identical
// inputs always yield an identical result; no randomness or clock reads.
func (s *Scorer) Score(card model.Card, rules []model.RewardRule, patterns []model.SpendingPattern, criteria model.RecommendationCriteria, quality DataQuality) model.CardRecommendation {
	months := criteria.StatementMonths
	if months < 1 {
		months = 1
	}

	benefits := s.benefitBreakdown(card, rules, patterns, months)
	cardEarnings := s.totalCardEarnings(card, benefits, patterns, criteria)
	proratedFee := card.AnnualFee * float64(months) / 12

	breakdown := model.ScoreBreakdown{
		FirstYearValue:    s.firstYearValue(card, cardEarnings, proratedFee),
		CategoryAlignment: s.categoryAlignment(rules, patterns, criteria),
		FeeEfficiency:     s.feeEfficiency(card, cardEarnings, proratedFee),
		BrandPreference:   s.brandPreference(card, criteria),
		Accessibility:     s.accessibility(card, criteria),
	}
	breakdown.Bonuses = s.bonuses(card, criteria)
	breakdown.Penalties = s.penalties(card, breakdown.FeeEfficiency)

	score := breakdown.FirstYearValue*s.weights.FirstYearValue +
		breakdown.CategoryAlignment*s.weights.CategoryAlignment +
		breakdown.FeeEfficiency*s.weights.FeeEfficiency +
		breakdown.BrandPreference*s.weights.BrandPreference +
		breakdown.Accessibility*s.weights.Accessibility
	for _, b := range breakdown.Bonuses {
		score += b.Points
	}
	for _, p := range breakdown.Penalties {
		score -= p.Points
	}
	score = round2(clamp(score, 0, 100))

	return model.CardRecommendation{
		CardID:           card.ID,
		CardName:         card.Name,
		Issuer:           card.Issuer,
		Score:            score,
		ConfidenceScore:  s.confidence(card, quality),
		Breakdown:        breakdown,
		BenefitBreakdown: benefits,
		Pros:             s.pros(card, rules, patterns),
		Cons:             s.cons(card, criteria),
	}
}

// benefitBreakdown compares current vs. card earnings per category over
// the statement period, clamping accelerated earnings at any reward cap.
func (s *Scorer) benefitBreakdown(card model.Card, rules []model.RewardRule, patterns []model.SpendingPattern, months int) []model.BenefitBreakdown {
	benefits := make([]model.BenefitBreakdown, 0, len(patterns))

	for _, pattern := range patterns {
		rate := card.BaseRewardRate
		capped := false
		cardValue := pattern.TotalSpent * rate / 100

		if rule := matchRule(rules, pattern.CategoryName); rule != nil {
			rate = rule.RewardRate
			acceleratedSpend := pattern.TotalSpent
			if cap := rule.MonthlyCap() * float64(months); cap > 0 && acceleratedSpend > cap {
				acceleratedSpend = cap
				capped = true
			}
			// Spend above the cap still earns the base rate
			cardValue = acceleratedSpend*rule.RewardRate/100 +
				(pattern.TotalSpent-acceleratedSpend)*card.BaseRewardRate/100
		}

		benefits = append(benefits, model.BenefitBreakdown{
			CategoryName: pattern.CategoryName,
			AmountSpent:  pattern.TotalSpent,
			CurrentRate:  s.currentBaseRate,
			CardRate:     rate,
			CurrentValue: round2(pattern.TotalSpent * s.currentBaseRate / 100),
			CardValue:    round2(cardValue),
			Capped:       capped,
		})
	}
	return benefits
}

// totalCardEarnings covers categorized spend via the benefit rows plus
// base-rate earnings on the uncategorized remainder.
func (s *Scorer) totalCardEarnings(card model.Card, benefits []model.BenefitBreakdown, patterns []model.SpendingPattern, criteria model.RecommendationCriteria) float64 {
	var categorized, earnings float64
	for _, b := range benefits {
		categorized += b.AmountSpent
		earnings += b.CardValue
	}
	if remainder := criteria.TotalSpend - categorized; remainder > 0 {
		earnings += remainder * card.BaseRewardRate / 100
	}
	return earnings
}

// firstYearValue rates signup bonus plus statement-period earnings net of
// the prorated fee, saturating at firstYearScale.
func (s *Scorer) firstYearValue(card model.Card, cardEarnings, proratedFee float64) float64 {
	value := card.SignupBonus + cardEarnings - proratedFee
	return round2(clamp(value/firstYearScale*100, 0, 100))
}

// categoryAlignment rewards cards whose accelerated categories intersect
// the user's top spending, scaled by the overlap's share of total spend.
func (s *Scorer) categoryAlignment(rules []model.RewardRule, patterns []model.SpendingPattern, criteria model.RecommendationCriteria) float64 {
	if criteria.TotalSpend <= 0 {
		return 0
	}

	var overlap float64
	for _, pattern := range patterns {
		if matchRule(rules, pattern.CategoryName) != nil {
			overlap += pattern.TotalSpent
		}
	}
	return round2(clamp(overlap/criteria.TotalSpend*100, 0, 100))
}

// feeEfficiency compares statement-period earnings against the card's
// prorated fee for the same window. The statement window is the unit of
// comparison throughout; earnings are never annualized. Covering the
// prorated fee twice over scores 100.
func (s *Scorer) feeEfficiency(card model.Card, cardEarnings, proratedFee float64) float64 {
	if card.AnnualFee == 0 {
		return 100
	}
	if proratedFee <= 0 {
		return 100
	}
	ratio := cardEarnings / proratedFee
	return round2(clamp(ratio/2*100, 0, 100))
}

// brandPreference scores stated network/issuer preferences; with no
// preference stated, every card sits at a neutral midpoint.
func (s *Scorer) brandPreference(card model.Card, criteria model.RecommendationCriteria) float64 {
	stated := 0
	matched := 0
	if criteria.PreferredNetwork != "" {
		stated++
		if card.Network == criteria.PreferredNetwork {
			matched++
		}
	}
	if criteria.PreferredIssuer != "" {
		stated++
		if card.Issuer == criteria.PreferredIssuer {
			matched++
		}
	}
	if stated == 0 {
		return 50
	}
	return round2(float64(matched) / float64(stated) * 100)
}

// accessibility rates how attainable the card is for the stated credit
// standing.
func (s *Scorer) accessibility(card model.Card, criteria model.RecommendationCriteria) float64 {
	if criteria.CreditScore == "" {
		return 70
	}
	if criteria.CreditScore.Meets(card.MinCreditScore) {
		return 100
	}
	return 20
}

func (s *Scorer) bonuses(card model.Card, criteria model.RecommendationCriteria) []model.ScoreFactor {
	var bonuses []model.ScoreFactor
	if card.IsLifetimeFree {
		bonuses = append(bonuses, model.ScoreFactor{Name: "lifetime free", Points: 5})
	}
	if criteria.PreferredNetwork != "" && card.Network == criteria.PreferredNetwork {
		bonuses = append(bonuses, model.ScoreFactor{Name: "preferred network", Points: 3})
	}
	if criteria.PreferredIssuer != "" && card.Issuer == criteria.PreferredIssuer {
		bonuses = append(bonuses, model.ScoreFactor{Name: "preferred issuer", Points: 3})
	}
	if card.PopularityScore >= 0.85 {
		bonuses = append(bonuses, model.ScoreFactor{Name: "high popularity", Points: 2})
	}
	if card.SatisfactionScore >= 0.85 {
		bonuses = append(bonuses, model.ScoreFactor{Name: "high satisfaction", Points: 2})
	}
	return bonuses
}

func (s *Scorer) penalties(card model.Card, feeEfficiency float64) []model.ScoreFactor {
	var penalties []model.ScoreFactor
	if !card.IsActive {
		penalties = append(penalties, model.ScoreFactor{Name: "inactive card", Points: 50})
	}
	if card.AnnualFee > 0 && feeEfficiency < 30 {
		penalties = append(penalties, model.ScoreFactor{Name: "high fee, low benefit", Points: 5})
	}
	if card.SatisfactionScore > 0 && card.SatisfactionScore < 0.5 {
		penalties = append(penalties, model.ScoreFactor{Name: "poor satisfaction", Points: 3})
	}
	if card.Network == model.NetworkAmex || card.Network == model.NetworkDiscover {
		penalties = append(penalties, model.ScoreFactor{Name: "limited acceptance", Points: 2})
	}
	return penalties
}

// confidence blends data-quality signals with the card's own metadata
// completeness. Kept strictly separate from the score.
func (s *Scorer) confidence(card model.Card, quality DataQuality) float64 {
	confidence := 0.5*clamp(quality.CategorizedFraction, 0, 1) +
		0.2*clamp(quality.VerifiedFraction, 0, 1) +
		0.3*card.MetadataCompleteness()
	return round2(confidence)
}

func (s *Scorer) pros(card model.Card, rules []model.RewardRule, patterns []model.SpendingPattern) []string {
	var pros []string
	if card.IsLifetimeFree {
		pros = append(pros, "No annual fee, ever")
	}
	if card.SignupBonus > 0 {
		pros = append(pros, fmt.Sprintf("$%.0f signup bonus", card.SignupBonus))
	}
	for _, pattern := range patterns {
		if rule := matchRule(rules, pattern.CategoryName); rule != nil {
			pros = append(pros, fmt.Sprintf("%.0f%% back on %s, one of your top categories", rule.RewardRate, rule.CategoryName))
		}
	}
	if card.BaseRewardRate >= 1.5 {
		pros = append(pros, fmt.Sprintf("%.1f%% back on everything else", card.BaseRewardRate))
	}
	return pros
}

func (s *Scorer) cons(card model.Card, criteria model.RecommendationCriteria) []string {
	var cons []string
	if card.AnnualFee > 0 {
		cons = append(cons, fmt.Sprintf("$%.0f annual fee", card.AnnualFee))
	}
	if criteria.CreditScore != "" && !criteria.CreditScore.Meets(card.MinCreditScore) {
		cons = append(cons, fmt.Sprintf("Requires %s credit", card.MinCreditScore))
	}
	if card.Network == model.NetworkAmex || card.Network == model.NetworkDiscover {
		cons = append(cons, "Acceptance is narrower than Visa or Mastercard")
	}
	return cons
}

func matchRule(rules []model.RewardRule, category string) *model.RewardRule {
	for i := range rules {
		if rules[i].CategoryName == category {
			return &rules[i]
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
