package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/app"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/classifier"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/config"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/extraction"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/mcc"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/recommend"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/session"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/storage"
)

// expandPath resolves ~ and environment variables in a filesystem path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// initStorage opens the database and brings the schema current.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	dbPath := expandPath(cfg.Storage.DatabasePath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// runtime bundles everything a command needs, with a single Close.
type runtime struct {
	cfg       *config.Config
	store     *storage.SQLiteStorage
	machine   *session.StateMachine
	app       *app.App
	extractor *classifier.Extractor
}

func (r *runtime) Close() {
	if r.extractor != nil {
		r.extractor.Close()
	}
	if err := r.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// buildRuntime wires the full pipeline. withClassifier controls whether
// the external text classifier is constructed; read-only commands skip it
// so they work without an API key.
func buildRuntime(ctx context.Context, withClassifier bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	machine := session.NewStateMachine(store, cfg.Session.TTL, cfg.Pipeline.MaxRetries)

	rt := &runtime{cfg: cfg, store: store, machine: machine}

	var extractor *classifier.Extractor
	var discoverer mcc.Discoverer
	if withClassifier {
		extractor, err = classifier.NewExtractor(classifier.Config{
			Provider:    cfg.Classifier.Provider,
			APIKey:      cfg.Classifier.APIKey,
			Model:       cfg.Classifier.Model,
			Timeout:     cfg.Classifier.Timeout,
			RateLimit:   cfg.Classifier.RateLimit,
			CacheTTL:    cfg.Classifier.CacheTTL,
			Temperature: cfg.Classifier.Temperature,
			MaxTokens:   cfg.Classifier.MaxTokens,
		}, slog.Default())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		rt.extractor = extractor
		discoverer = extractor
	}

	mccClassifier := mcc.NewClassifier(discoverer, cfg.Pipeline.MinConfidence)

	orchestrator := extraction.NewOrchestrator(machine, extractor, mccClassifier, store, store, extraction.Config{
		MaxRetries:       cfg.Pipeline.MaxRetries,
		ReviewConfidence: cfg.Pipeline.ReviewConfidence,
		MinConfidence:    cfg.Pipeline.MinConfidence,
		MinTextLength:    cfg.Pipeline.MinTextLength,
		BatchDelay:       cfg.Pipeline.BatchDelay,
	})

	scorer := recommend.NewScorer(recommend.Weights{
		FirstYearValue:    cfg.Scoring.Weights.FirstYearValue,
		CategoryAlignment: cfg.Scoring.Weights.CategoryAlignment,
		FeeEfficiency:     cfg.Scoring.Weights.FeeEfficiency,
		BrandPreference:   cfg.Scoring.Weights.BrandPreference,
		Accessibility:     cfg.Scoring.Weights.Accessibility,
	}, cfg.Scoring.CurrentBaseRate)

	engine := recommend.NewEngine(store, scorer, recommend.Policy{
		TopN:          cfg.Scoring.TopN,
		MinTotalSpend: cfg.Scoring.MinTotalSpend,
		MinCategories: cfg.Scoring.MinCategories,
		CacheTTL:      cfg.Scoring.CacheTTL,
	})

	rt.app = app.New(machine, orchestrator, engine, store, store, cfg.Pipeline.MaxConcurrentJobs)
	return rt, nil
}

// formatAge renders how long ago a timestamp was, for listing output.
func formatAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
