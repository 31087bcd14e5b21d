package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// fakeCatalog serves a fixed card set without a database.
type fakeCatalog struct {
	cards []model.Card
	rules map[string][]model.RewardRule
}

func (f *fakeCatalog) ListEligibleCards(_ context.Context, filters service.CatalogFilters) ([]model.Card, error) {
	var out []model.Card
	for _, card := range f.cards {
		if filters.MaxAnnualFee >= 0 && card.AnnualFee > filters.MaxAnnualFee {
			continue
		}
		if filters.PreferredNetwork != "" && card.Network != filters.PreferredNetwork {
			continue
		}
		if card.IsBusinessCard && !filters.IncludeBusinessCards {
			continue
		}
		out = append(out, card)
	}
	return out, nil
}

func (f *fakeCatalog) GetAcceleratedRewards(_ context.Context, cardID string) ([]model.RewardRule, error) {
	return f.rules[cardID], nil
}

func engineTransactions() []model.Transaction {
	base, _ := time.Parse("2006-01-02", "2024-01-05")
	txns := make([]model.Transaction, 0, 10)
	for i := 0; i < 6; i++ {
		txns = append(txns, model.Transaction{
			Date:         base.AddDate(0, 0, i),
			Merchant:     "Chipotle",
			Amount:       50,
			Type:         model.TypePurchase,
			CategoryName: "Dining",
			MCCStatus:    model.MCCKnown,
		})
	}
	for i := 0; i < 4; i++ {
		txns = append(txns, model.Transaction{
			Date:         base.AddDate(0, 1, i),
			Merchant:     "Safeway",
			Amount:       100,
			Type:         model.TypePurchase,
			CategoryName: "Groceries",
			MCCStatus:    model.MCCKnown,
		})
	}
	return txns
}

func newTestEngine(catalog *fakeCatalog) *Engine {
	return NewEngine(catalog, NewScorer(DefaultWeights(), 1.0), Policy{
		TopN:          3,
		MinTotalSpend: 100,
		MinCategories: 2,
		CacheTTL:      time.Hour,
	})
}

func TestEngine_RankingPrefersAlignedCard(t *testing.T) {
	catalog := &fakeCatalog{
		cards: []model.Card{
			{ID: "plain", Name: "Plain Card", Issuer: "Bank A", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true},
			{ID: "dining", Name: "Dining Card", Issuer: "Bank B", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true},
		},
		rules: map[string][]model.RewardRule{
			"dining": {{CardID: "dining", CategoryName: "Dining", RewardRate: 4}},
		},
	}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{
		CreditScore:  model.ScoreGood,
		MaxAnnualFee: -1,
	})
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "dining", result.Recommendations[0].CardID)
	assert.Equal(t, "Dining Card", result.Summary.TopPick)
	assert.False(t, result.LowConfidence)
}

func TestEngine_ZeroValueOptionsPlaceNoFeeCap(t *testing.T) {
	catalog := &fakeCatalog{
		cards: []model.Card{
			{ID: "free", Name: "Free Card", Issuer: "Bank A", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true},
			{ID: "premium", Name: "Premium Card", Issuer: "Bank B", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, AnnualFee: 250, BaseRewardRate: 1.5, IsActive: true},
		},
	}
	engine := newTestEngine(catalog)

	// A caller leaving MaxAnnualFee at its zero value must still see
	// fee-carrying cards.
	result, err := engine.Generate(context.Background(), engineTransactions(), Options{})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 2)
	assert.True(t, result.Criteria.NoFeeCap())
}

func TestEngine_NoAnnualFeeOnly(t *testing.T) {
	catalog := &fakeCatalog{
		cards: []model.Card{
			{ID: "free", Name: "Free Card", Issuer: "Bank A", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true},
			{ID: "premium", Name: "Premium Card", Issuer: "Bank B", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, AnnualFee: 250, BaseRewardRate: 1.5, IsActive: true},
		},
	}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{NoAnnualFeeOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "free", result.Recommendations[0].CardID)
	assert.InDelta(t, 0, result.Criteria.MaxAnnualFee, 0.001)
}

func TestEngine_TieBreaksByCardID(t *testing.T) {
	// Two identical cards must rank in a stable order
	card := model.Card{Name: "Twin", Issuer: "Bank", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true}
	a, b := card, card
	a.ID = "aaa"
	b.ID = "bbb"

	catalog := &fakeCatalog{cards: []model.Card{b, a}}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{MaxAnnualFee: -1})
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "aaa", result.Recommendations[0].CardID)
	assert.Equal(t, "bbb", result.Recommendations[1].CardID)
}

func TestEngine_TopNTruncation(t *testing.T) {
	catalog := &fakeCatalog{}
	for i := 0; i < 5; i++ {
		catalog.cards = append(catalog.cards, model.Card{
			ID:             string(rune('a' + i)),
			Name:           "Card " + string(rune('A'+i)),
			Network:        model.NetworkVisa,
			MinCreditScore: model.ScoreGood,
			BaseRewardRate: 1.0,
			IsActive:       true,
		})
	}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{MaxAnnualFee: -1})
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, 3)

	result, err = engine.Generate(context.Background(), engineTransactions(), Options{MaxAnnualFee: -1, TopN: 2})
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, 2)
}

func TestEngine_LowConfidenceOnSparseData(t *testing.T) {
	catalog := &fakeCatalog{cards: []model.Card{
		{ID: "card", Name: "Card", Network: model.NetworkVisa, MinCreditScore: model.ScoreGood, BaseRewardRate: 1.0, IsActive: true},
	}}
	engine := newTestEngine(catalog)

	sparse := []model.Transaction{{
		Date:         time.Now(),
		Merchant:     "One Shop",
		Amount:       20,
		Type:         model.TypePurchase,
		CategoryName: "Dining",
	}}

	result, err := engine.Generate(context.Background(), sparse, Options{MaxAnnualFee: -1})
	require.NoError(t, err)

	// Ranked anyway, but flagged
	assert.Len(t, result.Recommendations, 1)
	assert.True(t, result.LowConfidence)
	assert.Equal(t, "low", result.Summary.ConfidenceLabel)
}

func TestEngine_CriteriaSnapshot(t *testing.T) {
	catalog := &fakeCatalog{}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{
		CreditScore:  model.ScoreExcellent,
		MaxAnnualFee: 150,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ScoreExcellent, result.Criteria.CreditScore)
	assert.InDelta(t, 700.0, result.Criteria.TotalSpend, 0.001)
	assert.Equal(t, 2, result.Criteria.StatementMonths)
	assert.Equal(t, []string{"Groceries", "Dining"}, result.Criteria.TopCategories)
	assert.True(t, result.ExpiresAt.After(result.GeneratedAt))
}

func TestEngine_IncludeAnalysis(t *testing.T) {
	catalog := &fakeCatalog{}
	engine := newTestEngine(catalog)

	result, err := engine.Generate(context.Background(), engineTransactions(), Options{MaxAnnualFee: -1, IncludeAnalysis: true})
	require.NoError(t, err)
	assert.Len(t, result.Analysis, 2)

	result, err = engine.Generate(context.Background(), engineTransactions(), Options{MaxAnnualFee: -1})
	require.NoError(t, err)
	assert.Nil(t, result.Analysis)
}
