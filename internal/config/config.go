// Package config centralizes policy values and collaborator settings,
// loaded through viper from config file, environment, and flags.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
)

// Config is the full application configuration.
type Config struct {
	Storage    StorageConfig
	Classifier ClassifierConfig
	Pipeline   PipelineConfig
	Session    SessionConfig
	Scoring    ScoringConfig
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DatabasePath string
}

// ClassifierConfig holds settings for the external text classifier.
type ClassifierConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RateLimit   int // Requests per minute
	CacheTTL    time.Duration
	Temperature float64
	MaxTokens   int
}

// PipelineConfig holds extraction pipeline policy.
type PipelineConfig struct {
	// MaxRetries bounds retryable stage failures per session run.
	MaxRetries int
	// ReviewConfidence is the bar below which a transaction is flagged
	// for review. Independent from MinConfidence; the two are distinct
	// policy values and are not reconciled.
	ReviewConfidence float64
	// MinConfidence is the acceptance floor; candidates below it are
	// dropped outright during sanitization.
	MinConfidence float64
	// MinTextLength is the plausibility guard's minimum document size.
	MinTextLength int
	// BatchDelay is the inter-item wait in batch mode, respecting
	// external call-rate limits.
	BatchDelay time.Duration
	// MaxConcurrentJobs bounds simultaneous session pipelines.
	MaxConcurrentJobs int64
}

// SessionConfig holds session lifecycle policy.
type SessionConfig struct {
	TTL time.Duration
}

// ScoringConfig holds recommendation scoring policy.
type ScoringConfig struct {
	Weights         Weights
	TopN            int
	MinTotalSpend   float64
	MinCategories   int
	CacheTTL        time.Duration
	CurrentBaseRate float64 // Assumed earn rate on the user's current card
}

// Weights are the five sub-score weights. They should sum to 1.
type Weights struct {
	FirstYearValue    float64
	CategoryAlignment float64
	FeeEfficiency     float64
	BrandPreference   float64
	Accessibility     float64
}

// SetDefaults registers every policy default with viper.
func SetDefaults() {
	viper.SetDefault("storage.database_path", "suggestor.db")

	viper.SetDefault("classifier.provider", "openai")
	viper.SetDefault("classifier.model", "")
	viper.SetDefault("classifier.timeout", "60s")
	viper.SetDefault("classifier.rate_limit", 30)
	viper.SetDefault("classifier.cache_ttl", "15m")
	viper.SetDefault("classifier.temperature", 0.2)
	viper.SetDefault("classifier.max_tokens", 4096)

	viper.SetDefault("pipeline.max_retries", 2)
	viper.SetDefault("pipeline.review_confidence", 0.8)
	viper.SetDefault("pipeline.min_confidence", 0.3)
	viper.SetDefault("pipeline.min_text_length", 200)
	viper.SetDefault("pipeline.batch_delay", "2s")
	viper.SetDefault("pipeline.max_concurrent_jobs", 4)

	viper.SetDefault("session.ttl", "24h")

	viper.SetDefault("scoring.weights.first_year_value", 0.25)
	viper.SetDefault("scoring.weights.category_alignment", 0.30)
	viper.SetDefault("scoring.weights.fee_efficiency", 0.20)
	viper.SetDefault("scoring.weights.brand_preference", 0.10)
	viper.SetDefault("scoring.weights.accessibility", 0.15)
	viper.SetDefault("scoring.top_n", 3)
	viper.SetDefault("scoring.min_total_spend", 100)
	viper.SetDefault("scoring.min_categories", 2)
	viper.SetDefault("scoring.cache_ttl", "1h")
	viper.SetDefault("scoring.current_base_rate", 1.0)
}

// Load reads the resolved configuration out of viper.
func Load() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: viper.GetString("storage.database_path"),
		},
		Classifier: ClassifierConfig{
			Provider:    viper.GetString("classifier.provider"),
			APIKey:      viper.GetString("classifier.api_key"),
			Model:       viper.GetString("classifier.model"),
			Timeout:     viper.GetDuration("classifier.timeout"),
			RateLimit:   viper.GetInt("classifier.rate_limit"),
			CacheTTL:    viper.GetDuration("classifier.cache_ttl"),
			Temperature: viper.GetFloat64("classifier.temperature"),
			MaxTokens:   viper.GetInt("classifier.max_tokens"),
		},
		Pipeline: PipelineConfig{
			MaxRetries:        viper.GetInt("pipeline.max_retries"),
			ReviewConfidence:  viper.GetFloat64("pipeline.review_confidence"),
			MinConfidence:     viper.GetFloat64("pipeline.min_confidence"),
			MinTextLength:     viper.GetInt("pipeline.min_text_length"),
			BatchDelay:        viper.GetDuration("pipeline.batch_delay"),
			MaxConcurrentJobs: viper.GetInt64("pipeline.max_concurrent_jobs"),
		},
		Session: SessionConfig{
			TTL: viper.GetDuration("session.ttl"),
		},
		Scoring: ScoringConfig{
			Weights: Weights{
				FirstYearValue:    viper.GetFloat64("scoring.weights.first_year_value"),
				CategoryAlignment: viper.GetFloat64("scoring.weights.category_alignment"),
				FeeEfficiency:     viper.GetFloat64("scoring.weights.fee_efficiency"),
				BrandPreference:   viper.GetFloat64("scoring.weights.brand_preference"),
				Accessibility:     viper.GetFloat64("scoring.weights.accessibility"),
			},
			TopN:            viper.GetInt("scoring.top_n"),
			MinTotalSpend:   viper.GetFloat64("scoring.min_total_spend"),
			MinCategories:   viper.GetInt("scoring.min_categories"),
			CacheTTL:        viper.GetDuration("scoring.cache_ttl"),
			CurrentBaseRate: viper.GetFloat64("scoring.current_base_rate"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence > 1 {
		return common.NewValidationError("pipeline.min_confidence", "must be in [0,1]")
	}
	if c.Pipeline.ReviewConfidence < 0 || c.Pipeline.ReviewConfidence > 1 {
		return common.NewValidationError("pipeline.review_confidence", "must be in [0,1]")
	}
	if c.Pipeline.MaxRetries < 0 {
		return common.NewValidationError("pipeline.max_retries", "must be non-negative")
	}
	if c.Session.TTL <= 0 {
		return common.NewValidationError("session.ttl", "must be positive")
	}
	if c.Scoring.TopN <= 0 {
		return common.NewValidationError("scoring.top_n", "must be positive")
	}
	return nil
}
