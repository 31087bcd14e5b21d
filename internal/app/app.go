// Package app exposes the core surface: session creation, extraction
// jobs, status reads, spending analysis, and recommendations. Any
// transport may front it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/analysis"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/extraction"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/recommend"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/session"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// App wires the pipeline components behind the exposed operations.
// Concurrency across sessions is bounded by a weighted semaphore; excess
// jobs queue on acquisition rather than running unbounded.
type App struct {
	machine      *session.StateMachine
	orchestrator *extraction.Orchestrator
	engine       *recommend.Engine
	aggregator   *analysis.Aggregator
	transactions service.TransactionStore
	cache        service.RecommendationCache
	jobs         *semaphore.Weighted
}

// New creates the application facade.
func New(
	machine *session.StateMachine,
	orchestrator *extraction.Orchestrator,
	engine *recommend.Engine,
	transactions service.TransactionStore,
	cache service.RecommendationCache,
	maxConcurrentJobs int64,
) *App {
	if maxConcurrentJobs <= 0 {
		maxConcurrentJobs = 4
	}
	return &App{
		machine:      machine,
		orchestrator: orchestrator,
		engine:       engine,
		aggregator:   analysis.NewAggregator(),
		transactions: transactions,
		cache:        cache,
		jobs:         semaphore.NewWeighted(maxConcurrentJobs),
	}
}

// CreateSession allocates a new processing session.
func (a *App) CreateSession(ctx context.Context) (*model.Session, error) {
	return a.machine.Create(ctx)
}

// JobHandle tracks one in-flight extraction job.
type JobHandle struct {
	done      chan struct{}
	result    *extraction.Result
	err       error
	SessionID int64
}

// Done returns a channel closed when the job finishes.
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job finishes or the context is canceled.
func (h *JobHandle) Wait(ctx context.Context) (*extraction.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.result, h.err
	}
}

// BeginExtraction queues the session and starts its pipeline run under
// the job limiter. The returned handle reports completion. A session
// already in queued, such as one requeued after a failure, is accepted
// as is.
func (a *App) BeginExtraction(ctx context.Context, sessionID int64, doc io.Reader, parser service.DocumentParser, hints service.ExtractionHints, sink service.ProgressSink) (*JobHandle, error) {
	sess, err := a.machine.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusQueued {
		if err := a.machine.Advance(ctx, sessionID, model.StatusQueued, 0, "extraction requested"); err != nil {
			return nil, err
		}
	}

	handle := &JobHandle{
		done:      make(chan struct{}),
		SessionID: sessionID,
	}

	go func() {
		defer close(handle.done)

		if err := a.jobs.Acquire(ctx, 1); err != nil {
			handle.err = err
			failCtx := context.WithoutCancel(ctx)
			if failErr := a.machine.Fail(failCtx, sessionID, "Processing was canceled before it started."); failErr != nil {
				slog.Error("Failed to fail canceled session", "session_id", sessionID, "error", failErr)
			}
			return
		}
		defer a.jobs.Release(1)

		handle.result, handle.err = a.orchestrator.Run(ctx, extraction.RunContext{
			SessionID: sessionID,
			Document:  doc,
			Parser:    parser,
			Hints:     hints,
			Sink:      sink,
		})
	}()

	return handle, nil
}

// GetSessionStatus returns the session's externally visible state.
// Expired sessions read as not found.
func (a *App) GetSessionStatus(ctx context.Context, token string) (*model.Session, error) {
	return a.machine.ResolveToken(ctx, token)
}

// GetSpendingAnalysis aggregates the session's stored transactions into
// spending patterns.
func (a *App) GetSpendingAnalysis(ctx context.Context, token string) ([]model.SpendingPattern, error) {
	sess, err := a.machine.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	transactions, err := a.transactions.ListTransactionsBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return a.aggregator.Aggregate(transactions), nil
}

// GetRecommendations ranks the catalog against the session's spending.
// Results are served from the per-session cache when the criteria match
// and the cache copy is fresh.
func (a *App) GetRecommendations(ctx context.Context, token string, opts recommend.Options) (*model.RecommendationResult, error) {
	// Cached criteria are stored normalized; compare like with like.
	opts = opts.Normalized()
	sess, err := a.machine.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusCompleted {
		return nil, common.NewUserError(
			fmt.Sprintf("Session is not ready for recommendations (status: %s).", sess.Status),
			common.ErrNotFound)
	}

	if cached, err := a.cache.GetResult(ctx, sess.ID); err == nil {
		if criteriaMatch(cached.Criteria, opts) {
			slog.Debug("Recommendation cache hit", "session_id", sess.ID)
			return cached, nil
		}
	} else if !errors.Is(err, common.ErrNotFound) {
		slog.Warn("Recommendation cache read failed", "session_id", sess.ID, "error", err)
	}

	transactions, err := a.transactions.ListTransactionsBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	result, err := a.engine.Generate(ctx, transactions, opts)
	if err != nil {
		return nil, err
	}

	if err := a.cache.SaveResult(ctx, sess.ID, result); err != nil {
		// Cache writes are best-effort; the computed result still stands
		slog.Warn("Failed to cache recommendations", "session_id", sess.ID, "error", err)
	}
	return result, nil
}

// DeleteSession removes a session and everything owned by it.
func (a *App) DeleteSession(ctx context.Context, token string) error {
	sess, err := a.machine.ResolveToken(ctx, token)
	if err != nil {
		return err
	}
	return a.machine.Delete(ctx, sess.ID)
}

func criteriaMatch(criteria model.RecommendationCriteria, opts recommend.Options) bool {
	return criteria.CreditScore == opts.CreditScore &&
		criteria.PreferredNetwork == opts.PreferredNetwork &&
		criteria.PreferredIssuer == opts.PreferredIssuer &&
		criteria.MaxAnnualFee == opts.MaxAnnualFee &&
		criteria.IncludeBusinessCards == opts.IncludeBusinessCards
}
