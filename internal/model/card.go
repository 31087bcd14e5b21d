package model

// CardNetwork identifies the payment network a card runs on.
type CardNetwork string

// Card network constants.
const (
	NetworkVisa       CardNetwork = "visa"
	NetworkMastercard CardNetwork = "mastercard"
	NetworkAmex       CardNetwork = "amex"
	NetworkDiscover   CardNetwork = "discover"
	NetworkRupay      CardNetwork = "rupay"
)

// CreditScoreBucket buckets the minimum credit standing a card expects.
type CreditScoreBucket string

// Credit score bucket constants, ordered weakest to strongest.
const (
	ScorePoor      CreditScoreBucket = "poor"
	ScoreFair      CreditScoreBucket = "fair"
	ScoreGood      CreditScoreBucket = "good"
	ScoreExcellent CreditScoreBucket = "excellent"
)

// scoreRank orders buckets for eligibility comparison.
var scoreRank = map[CreditScoreBucket]int{
	ScorePoor:      0,
	ScoreFair:      1,
	ScoreGood:      2,
	ScoreExcellent: 3,
}

// Meets reports whether a user bucket satisfies the card's minimum.
func (b CreditScoreBucket) Meets(minimum CreditScoreBucket) bool {
	if minimum == "" {
		return true
	}
	return scoreRank[b] >= scoreRank[minimum]
}

// Card represents one catalog product.
type Card struct {
	ID                string
	Name              string
	Issuer            string
	Network           CardNetwork
	MinCreditScore    CreditScoreBucket
	AnnualFee         float64
	BaseRewardRate    float64 // Percent earned on uncategorized spend
	SignupBonus       float64 // Dollar value of the first-year signup offer
	PopularityScore   float64 // [0,1]
	SatisfactionScore float64 // [0,1]
	IsLifetimeFree    bool
	IsBusinessCard    bool
	IsActive          bool
}

// MetadataCompleteness measures how much of the card's scoring-relevant
// metadata is populated, for confidence computation.
func (c *Card) MetadataCompleteness() float64 {
	fields := 0
	present := 0
	check := func(ok bool) {
		fields++
		if ok {
			present++
		}
	}
	check(c.Name != "")
	check(c.Issuer != "")
	check(c.Network != "")
	check(c.MinCreditScore != "")
	check(c.BaseRewardRate > 0)
	check(c.PopularityScore > 0)
	check(c.SatisfactionScore > 0)
	return float64(present) / float64(fields)
}

// CapPeriod scopes a reward rule's earning cap.
type CapPeriod string

// Cap period constants.
const (
	CapMonthly   CapPeriod = "monthly"
	CapQuarterly CapPeriod = "quarterly"
	CapYearly    CapPeriod = "yearly"
)

// RewardRule is a card-specific accelerated earn rate for a set of
// merchant categories, optionally capped.
type RewardRule struct {
	CardID       string
	CategoryName string
	MCCCodes     []string
	RewardRate   float64 // Percent
	CapAmount    float64 // Spend ceiling the rate applies to; 0 = uncapped
	CapPeriod    CapPeriod
}

// MonthlyCap converts the rule's cap to a per-month spend ceiling.
// Returns 0 for uncapped rules.
func (r *RewardRule) MonthlyCap() float64 {
	if r.CapAmount <= 0 {
		return 0
	}
	switch r.CapPeriod {
	case CapQuarterly:
		return r.CapAmount / 3
	case CapYearly:
		return r.CapAmount / 12
	default:
		return r.CapAmount
	}
}
