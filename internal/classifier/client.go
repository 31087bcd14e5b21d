// Package classifier wraps the external text-understanding capability
// that turns cleaned statement text into candidate transactions. It is
// the single external-dependency point of the extraction pipeline.
package classifier

import (
	"context"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// Client defines the interface for model providers.
type Client interface {
	// Complete sends a prompt and returns the raw model output.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Config holds configuration for the classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RateLimit   int // Requests per minute
	CacheTTL    time.Duration
	Temperature float64
	MaxTokens   int
}

// extractionPayload is the JSON shape the model is asked to produce.
type extractionPayload struct {
	Transactions []struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Merchant    string  `json:"merchant"`
		Type        string  `json:"type"`
		Amount      float64 `json:"amount"`
		Confidence  float64 `json:"confidence"`
	} `json:"transactions"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

func (p *extractionPayload) toResponse() *service.ExtractionResponse {
	resp := &service.ExtractionResponse{
		Candidates: make([]service.RawTransaction, 0, len(p.Transactions)),
		Confidence: p.Confidence,
		Warnings:   p.Warnings,
	}
	for _, t := range p.Transactions {
		resp.Candidates = append(resp.Candidates, service.RawTransaction{
			Date:        t.Date,
			Description: t.Description,
			Merchant:    t.Merchant,
			Type:        t.Type,
			Amount:      t.Amount,
			Confidence:  t.Confidence,
		})
	}
	return resp
}
