package model

// SpendingPattern aggregates one category's share of a statement.
// Derived and ephemeral; computed fresh from current transactions.
type SpendingPattern struct {
	CategoryName     string
	TotalSpent       float64
	TransactionCount int
	AverageAmount    float64
	MonthlyAverage   float64
	Percentage       float64 // Share of total spend, rounded to 2 decimals
	MCCCodes         []string
	Merchants        []string
}
