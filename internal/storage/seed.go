package storage

import (
	"database/sql"
	"fmt"
)

type seedCard struct {
	id, name, issuer, network, minScore string
	annualFee, baseRate, signupBonus    float64
	popularity, satisfaction            float64
	lifetimeFree, business, active      bool
	rules                               []seedRule
}

type seedRule struct {
	category, mccCodes, capPeriod string
	rate, capAmount               float64
}

// seedCatalog loads the built-in card catalog. Cards here are the scoring
// universe; the catalog is read-only at runtime.
func seedCatalog(tx *sql.Tx) error {
	cards := []seedCard{
		{
			id: "chase-freedom-unlimited", name: "Chase Freedom Unlimited", issuer: "Chase",
			network: "visa", minScore: "good", annualFee: 0, baseRate: 1.5, signupBonus: 200,
			popularity: 0.92, satisfaction: 0.88, lifetimeFree: true, active: true,
			rules: []seedRule{
				{category: "Dining", mccCodes: `["5812","5813","5814"]`, rate: 3, capAmount: 0, capPeriod: "monthly"},
				{category: "Drugstores", mccCodes: `["5912"]`, rate: 3, capAmount: 0, capPeriod: "monthly"},
			},
		},
		{
			id: "amex-gold", name: "American Express Gold", issuer: "American Express",
			network: "amex", minScore: "good", annualFee: 250, baseRate: 1, signupBonus: 600,
			popularity: 0.89, satisfaction: 0.91, active: true,
			rules: []seedRule{
				{category: "Dining", mccCodes: `["5812","5813","5814"]`, rate: 4, capAmount: 0, capPeriod: "monthly"},
				{category: "Groceries", mccCodes: `["5411"]`, rate: 4, capAmount: 2083, capPeriod: "monthly"},
			},
		},
		{
			id: "citi-custom-cash", name: "Citi Custom Cash", issuer: "Citi",
			network: "mastercard", minScore: "fair", annualFee: 0, baseRate: 1, signupBonus: 200,
			popularity: 0.81, satisfaction: 0.84, lifetimeFree: true, active: true,
			rules: []seedRule{
				{category: "Groceries", mccCodes: `["5411"]`, rate: 5, capAmount: 500, capPeriod: "monthly"},
				{category: "Fuel", mccCodes: `["5541","5542"]`, rate: 5, capAmount: 500, capPeriod: "monthly"},
			},
		},
		{
			id: "capone-savor", name: "Capital One Savor", issuer: "Capital One",
			network: "mastercard", minScore: "good", annualFee: 95, baseRate: 1, signupBonus: 300,
			popularity: 0.77, satisfaction: 0.82, active: true,
			rules: []seedRule{
				{category: "Dining", mccCodes: `["5812","5813","5814"]`, rate: 4, capAmount: 0, capPeriod: "monthly"},
				{category: "Entertainment", mccCodes: `["7832","7922","7996"]`, rate: 4, capAmount: 0, capPeriod: "monthly"},
				{category: "Groceries", mccCodes: `["5411"]`, rate: 3, capAmount: 0, capPeriod: "monthly"},
			},
		},
		{
			id: "discover-it", name: "Discover it Cash Back", issuer: "Discover",
			network: "discover", minScore: "fair", annualFee: 0, baseRate: 1, signupBonus: 150,
			popularity: 0.74, satisfaction: 0.86, lifetimeFree: true, active: true,
			rules: []seedRule{
				{category: "Fuel", mccCodes: `["5541","5542"]`, rate: 5, capAmount: 1500, capPeriod: "quarterly"},
				{category: "Online Shopping", mccCodes: `["5964","5969"]`, rate: 5, capAmount: 1500, capPeriod: "quarterly"},
			},
		},
		{
			id: "chase-ink-preferred", name: "Chase Ink Business Preferred", issuer: "Chase",
			network: "visa", minScore: "excellent", annualFee: 95, baseRate: 1, signupBonus: 1000,
			popularity: 0.68, satisfaction: 0.85, business: true, active: true,
			rules: []seedRule{
				{category: "Travel", mccCodes: `["4511","4722","7011"]`, rate: 3, capAmount: 12500, capPeriod: "yearly"},
				{category: "Utilities", mccCodes: `["4814","4899"]`, rate: 3, capAmount: 12500, capPeriod: "yearly"},
			},
		},
		{
			id: "boa-customized-cash", name: "Bank of America Customized Cash", issuer: "Bank of America",
			network: "visa", minScore: "good", annualFee: 0, baseRate: 1, signupBonus: 200,
			popularity: 0.71, satisfaction: 0.78, lifetimeFree: true, active: true,
			rules: []seedRule{
				{category: "Fuel", mccCodes: `["5541","5542"]`, rate: 3, capAmount: 2500, capPeriod: "quarterly"},
				{category: "Online Shopping", mccCodes: `["5964","5969"]`, rate: 3, capAmount: 2500, capPeriod: "quarterly"},
			},
		},
		{
			id: "wells-active-cash", name: "Wells Fargo Active Cash", issuer: "Wells Fargo",
			network: "visa", minScore: "good", annualFee: 0, baseRate: 2, signupBonus: 200,
			popularity: 0.79, satisfaction: 0.8, lifetimeFree: true, active: true,
		},
		{
			id: "amex-platinum", name: "American Express Platinum", issuer: "American Express",
			network: "amex", minScore: "excellent", annualFee: 695, baseRate: 1, signupBonus: 800,
			popularity: 0.85, satisfaction: 0.72, active: true,
			rules: []seedRule{
				{category: "Travel", mccCodes: `["4511","4722"]`, rate: 5, capAmount: 41667, capPeriod: "monthly"},
			},
		},
		{
			id: "legacy-rewards-plus", name: "Legacy Rewards Plus", issuer: "First National",
			network: "visa", minScore: "fair", annualFee: 49, baseRate: 1, signupBonus: 0,
			popularity: 0.2, satisfaction: 0.4, active: false,
			rules: []seedRule{
				{category: "Groceries", mccCodes: `["5411"]`, rate: 2, capAmount: 0, capPeriod: "monthly"},
			},
		},
	}

	cardStmt, err := tx.Prepare(`
		INSERT INTO cards (
			id, name, issuer, network, min_credit_score, annual_fee,
			base_reward_rate, signup_bonus, popularity_score,
			satisfaction_score, is_lifetime_free, is_business_card, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer func() { _ = cardStmt.Close() }()

	ruleStmt, err := tx.Prepare(`
		INSERT INTO reward_rules (
			card_id, category_name, mcc_codes, reward_rate, cap_amount, cap_period
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule insert: %w", err)
	}
	defer func() { _ = ruleStmt.Close() }()

	for _, c := range cards {
		if _, err := cardStmt.Exec(
			c.id, c.name, c.issuer, c.network, c.minScore, c.annualFee,
			c.baseRate, c.signupBonus, c.popularity, c.satisfaction,
			c.lifetimeFree, c.business, c.active,
		); err != nil {
			return fmt.Errorf("failed to seed card %s: %w", c.id, err)
		}
		for _, r := range c.rules {
			if _, err := ruleStmt.Exec(c.id, r.category, r.mccCodes, r.rate, r.capAmount, r.capPeriod); err != nil {
				return fmt.Errorf("failed to seed rule for %s: %w", c.id, err)
			}
		}
	}
	return nil
}
