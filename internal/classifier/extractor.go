package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// Extractor implements service.TextClassifier backed by a model provider,
// with rate limiting, a circuit breaker, and response caching.
type Extractor struct {
	client  Client
	cache   *extractionCache
	logger  *slog.Logger
	limiter *rateLimiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewExtractor creates an extractor for the configured provider.
func NewExtractor(cfg Config, logger *slog.Logger) (*Extractor, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported classifier provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "text-classifier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Classifier breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Input rejections are the caller's problem, not provider health
			return err == nil || errors.Is(err, common.ErrClassifierRejected)
		},
	})

	return &Extractor{
		client:  client,
		cache:   newExtractionCache(cfg.CacheTTL),
		logger:  logger,
		limiter: newRateLimiter(cfg.RateLimit),
		breaker: breaker,
		timeout: timeout,
	}, nil
}

// Close releases the extractor's background goroutines.
func (e *Extractor) Close() {
	e.cache.Close()
}

// Extract asks the model for candidate transactions in the cleaned text.
func (e *Extractor) Extract(ctx context.Context, text string, hints service.ExtractionHints) (*service.ExtractionResponse, error) {
	key := textKey(text)
	if cached, found := e.cache.get(key); found {
		e.logger.Debug("extraction cache hit", "key", key[:12])
		return cached, nil
	}

	content, err := e.complete(ctx, extractionSystemPrompt, buildExtractionPrompt(text, hints))
	if err != nil {
		return nil, err
	}

	payload, err := parseExtraction(content)
	if err != nil {
		return nil, err
	}

	response := payload.toResponse()
	e.cache.set(key, response)

	e.logger.Info("Extraction call completed",
		"candidates", len(response.Candidates),
		"confidence", response.Confidence,
		"warnings", len(response.Warnings))
	return response, nil
}

// ResolveMCC asks the model to classify one merchant. Used by the MCC
// classifier as its discovery fallback.
func (e *Extractor) ResolveMCC(ctx context.Context, merchant string) (code, category, subCategory string, confidence float64, err error) {
	content, err := e.complete(ctx, mccSystemPrompt, buildMCCPrompt(merchant))
	if err != nil {
		return "", "", "", 0, err
	}

	payload, err := parseMCC(content)
	if err != nil {
		return "", "", "", 0, err
	}
	return payload.MCC, payload.Category, payload.SubCategory, payload.Confidence, nil
}

// complete runs one provider call under the rate limiter, breaker, and
// per-call timeout.
func (e *Extractor) complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := e.limiter.wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.breaker.Execute(func() (any, error) {
		return e.client.Complete(callCtx, systemPrompt, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit breaker open", common.ErrClassifierUnavailable)
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %v", common.ErrClassifierTimeout, err)
		}
		return "", err
	}

	content, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected client result", common.ErrClassifierUnavailable)
	}
	return content, nil
}
