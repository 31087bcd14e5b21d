package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// ListEligibleCards returns active catalog cards passing the filters,
// ordered by id for deterministic scoring input.
func (s *SQLiteStorage) ListEligibleCards(ctx context.Context, filters service.CatalogFilters) ([]model.Card, error) {
	query := `
		SELECT id, name, issuer, network, min_credit_score, annual_fee,
			base_reward_rate, signup_bonus, popularity_score, satisfaction_score,
			is_lifetime_free, is_business_card, is_active
		FROM cards
		WHERE is_active = 1`
	args := []any{}

	if filters.MaxAnnualFee >= 0 {
		query += ` AND annual_fee <= ?`
		args = append(args, filters.MaxAnnualFee)
	}
	if filters.PreferredNetwork != "" {
		query += ` AND network = ?`
		args = append(args, string(filters.PreferredNetwork))
	}
	if !filters.IncludeBusinessCards {
		query += ` AND is_business_card = 0`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []model.Card
	for rows.Next() {
		var card model.Card
		var network, minScore string
		if err := rows.Scan(
			&card.ID, &card.Name, &card.Issuer, &network, &minScore,
			&card.AnnualFee, &card.BaseRewardRate, &card.SignupBonus,
			&card.PopularityScore, &card.SatisfactionScore,
			&card.IsLifetimeFree, &card.IsBusinessCard, &card.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		card.Network = model.CardNetwork(network)
		card.MinCreditScore = model.CreditScoreBucket(minScore)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return cards, nil
}

// GetAcceleratedRewards returns a card's elevated earn rules.
func (s *SQLiteStorage) GetAcceleratedRewards(ctx context.Context, cardID string) ([]model.RewardRule, error) {
	if err := validateString(cardID, "cardID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, category_name, mcc_codes, reward_rate, cap_amount, cap_period
		FROM reward_rules
		WHERE card_id = ?
		ORDER BY category_name
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.RewardRule
	for rows.Next() {
		var rule model.RewardRule
		var mccJSON, capPeriod string
		if err := rows.Scan(
			&rule.CardID, &rule.CategoryName, &mccJSON,
			&rule.RewardRate, &rule.CapAmount, &capPeriod,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward rule: %w", err)
		}
		if err := json.Unmarshal([]byte(mccJSON), &rule.MCCCodes); err != nil {
			return nil, fmt.Errorf("failed to decode mcc codes for %s: %w", rule.CardID, err)
		}
		rule.CapPeriod = model.CapPeriod(capPeriod)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reward rules: %w", err)
	}
	return rules, nil
}
