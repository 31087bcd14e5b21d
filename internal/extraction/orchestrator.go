// Package extraction drives statement text through parsing, validation,
// the external classification call, sanitization, and persistence.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/document"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/session"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// Pipeline stage names reported through the progress sink.
const (
	StepParse      = "parse"
	StepValidate   = "validate"
	StepClean      = "clean"
	StepClassify   = "classify"
	StepCategorize = "categorize"
	StepPersist    = "persist"
)

// Config holds the orchestrator's policy knobs.
type Config struct {
	MaxRetries       int
	ReviewConfidence float64
	MinConfidence    float64
	MinTextLength    int
	BatchDelay       time.Duration
}

// RunContext carries one extraction job.
type RunContext struct {
	Document  io.Reader
	Parser    service.DocumentParser
	Sink      service.ProgressSink
	Hints     service.ExtractionHints
	SessionID int64
}

// Result summarizes a completed extraction run.
type Result struct {
	TopCategory  string
	Warnings     []string
	Transactions int
	Categorized  int
	UnknownMCC   int
	Discovered   int
	TotalSpend   float64
}

// Orchestrator executes the six-stage extraction pipeline for a session.
type Orchestrator struct {
	machine      *session.StateMachine
	classifier   service.TextClassifier
	mcc          service.MCCClassifier
	sessions     service.SessionStore
	transactions service.TransactionStore
	cfg          Config
}

// NewOrchestrator wires the pipeline's collaborators together.
func NewOrchestrator(
	machine *session.StateMachine,
	classifier service.TextClassifier,
	mccClassifier service.MCCClassifier,
	sessions service.SessionStore,
	transactions service.TransactionStore,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		machine:      machine,
		classifier:   classifier,
		mcc:          mccClassifier,
		sessions:     sessions,
		transactions: transactions,
		cfg:          cfg,
	}
}

// Run drives one session through the pipeline. Any fault is converted
// into a session failure before returning; a session never exits Run in a
// non-terminal state.
func (o *Orchestrator) Run(ctx context.Context, rc RunContext) (*Result, error) {
	result, err := o.run(ctx, rc)
	if err != nil {
		// The failure record must land even when the fault is the
		// caller's own cancellation.
		failCtx := context.WithoutCancel(ctx)
		if failErr := o.machine.Fail(failCtx, rc.SessionID, common.UserMessage(err)); failErr != nil {
			slog.Error("Failed to record session failure",
				"session_id", rc.SessionID,
				"error", failErr,
				"cause", err)
		}
		return nil, err
	}

	if err := o.machine.Complete(ctx, rc.SessionID); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, rc RunContext) (*Result, error) {
	if err := o.machine.Advance(ctx, rc.SessionID, model.StatusExtracting, 5, "extraction started"); err != nil {
		return nil, err
	}

	// Stage 1: parse the raw document.
	o.emit(rc.Sink, service.ProgressEvent{Step: StepParse, Percent: 10, Message: "Reading document"})
	parsed, err := rc.Parser.Parse(ctx, rc.Document)
	if err != nil {
		return nil, err
	}
	slog.Info("Document parsed",
		"session_id", rc.SessionID,
		"pages", parsed.PageCount,
		"lines", parsed.Stats.LineCount,
		"table_density", parsed.Stats.TableDensity)

	// Stage 2: plausibility guard before the expensive classification call.
	o.emit(rc.Sink, service.ProgressEvent{Step: StepValidate, Percent: 20, Message: "Validating content"})
	if err := checkPlausibility(parsed, o.cfg.MinTextLength); err != nil {
		return nil, err
	}

	// Stage 3: normalize text for the classifier.
	o.emit(rc.Sink, service.ProgressEvent{Step: StepClean, Percent: 30, Message: "Cleaning text"})
	cleaned := document.Normalize(parsed.Text)

	// Stage 4: the external classification call, with retries.
	o.emit(rc.Sink, service.ProgressEvent{Step: StepClassify, Percent: 40, Message: "Extracting transactions"})
	response, err := o.classify(ctx, rc, cleaned)
	if err != nil {
		return nil, err
	}
	o.emit(rc.Sink, service.ProgressEvent{Step: StepClassify, Percent: 60,
		Message: fmt.Sprintf("Found %d candidate transactions", len(response.Candidates))})

	// Stage 5: validate and sanitize candidates, then resolve categories.
	if err := o.machine.Advance(ctx, rc.SessionID, model.StatusCategorizing, 65, "sanitizing candidates"); err != nil {
		return nil, err
	}
	o.emit(rc.Sink, service.ProgressEvent{Step: StepCategorize, Percent: 70, Message: "Categorizing merchants"})

	transactions, warnings := sanitizeCandidates(rc.SessionID, response.Candidates, sanitizePolicy{
		minConfidence: o.cfg.MinConfidence,
		reviewBar:     o.cfg.ReviewConfidence,
	})
	warnings = append(response.Warnings, warnings...)
	if len(transactions) == 0 {
		return nil, common.NewUserError(
			"No usable transactions could be extracted from this document.",
			common.ErrUnsuitableDocument)
	}

	if err := o.machine.Advance(ctx, rc.SessionID, model.StatusMCCDiscovery, 75, "resolving merchant categories"); err != nil {
		return nil, err
	}
	stats := o.categorize(ctx, transactions)

	// Stage 6: atomic replace. Storage faults are infrastructure errors
	// and always retryable.
	if err := o.machine.Advance(ctx, rc.SessionID, model.StatusAnalyzing, 85, "persisting transactions"); err != nil {
		return nil, err
	}
	o.emit(rc.Sink, service.ProgressEvent{Step: StepPersist, Percent: 90, Message: "Saving results"})

	err = common.WithRetry(ctx, func() error {
		if err := o.transactions.ReplaceTransactions(ctx, rc.SessionID, transactions); err != nil {
			return common.NewExternalServiceError("transaction store", err)
		}
		return nil
	}, o.retryOpts())
	if err != nil {
		return nil, err
	}

	result := o.summarize(transactions, stats, warnings)
	if err := o.recordAggregates(ctx, rc.SessionID, result); err != nil {
		return nil, err
	}

	o.emit(rc.Sink, service.ProgressEvent{Step: StepPersist, Percent: 100,
		Message: fmt.Sprintf("Saved %d transactions", len(transactions))})
	return result, nil
}

// classify runs the external call under the retry policy, tracking how
// many attempts were consumed so the session records them on failure.
func (o *Orchestrator) classify(ctx context.Context, rc RunContext, cleaned string) (*service.ExtractionResponse, error) {
	var response *service.ExtractionResponse
	attempts := 0

	err := common.WithRetry(ctx, func() error {
		attempts++
		var callErr error
		response, callErr = o.classifier.Extract(ctx, cleaned, rc.Hints)
		return callErr
	}, o.retryOpts())
	if err != nil {
		if recordErr := o.recordRetries(context.WithoutCancel(ctx), rc.SessionID, attempts); recordErr != nil {
			slog.Error("Failed to record retry count",
				"session_id", rc.SessionID,
				"error", recordErr)
		}
		return nil, err
	}
	return response, nil
}

type categorizeStats struct {
	categorized int
	unknown     int
	discovered  int
}

// categorize resolves MCC codes and categories in place. Unresolved
// merchants stay unknown; they are counted but excluded from category
// percentages downstream.
func (o *Orchestrator) categorize(ctx context.Context, transactions []model.Transaction) categorizeStats {
	var stats categorizeStats

	for i := range transactions {
		resolution, err := o.mcc.Resolve(ctx, transactions[i].Merchant)
		if err != nil || resolution.Status == model.MCCUnknown {
			stats.unknown++
			continue
		}
		applyResolution(&transactions[i], resolution)
		if resolution.Status == model.MCCDiscovered {
			stats.discovered++
		}
		stats.categorized++
	}
	return stats
}

func applyResolution(txn *model.Transaction, r *service.MCCResolution) {
	txn.MCCCode = r.MCCCode
	txn.CategoryName = r.CategoryName
	txn.SubCategoryName = r.SubCategoryName
	txn.MCCStatus = r.Status
	txn.MCCConfidence = r.Confidence
	txn.ClampConfidence()
}

func (o *Orchestrator) summarize(transactions []model.Transaction, stats categorizeStats, warnings []string) *Result {
	result := &Result{
		Transactions: len(transactions),
		Categorized:  stats.categorized,
		UnknownMCC:   stats.unknown,
		Discovered:   stats.discovered,
		Warnings:     warnings,
	}

	categoryTotals := make(map[string]float64)
	for _, txn := range transactions {
		if txn.Amount <= 0 {
			continue
		}
		result.TotalSpend += txn.Amount
		if txn.CategoryName != "" {
			categoryTotals[txn.CategoryName] += txn.Amount
		}
	}
	for category, total := range categoryTotals {
		if result.TopCategory == "" || total > categoryTotals[result.TopCategory] {
			result.TopCategory = category
		}
	}
	return result
}

// recordAggregates writes the run's summary fields onto the session.
func (o *Orchestrator) recordAggregates(ctx context.Context, sessionID int64, result *Result) error {
	current, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	current.TotalSpend = result.TotalSpend
	current.TopCategory = result.TopCategory
	current.TotalTransactions = result.Transactions
	current.CategorizedCount = result.Categorized
	current.UnknownMCCCount = result.UnknownMCC
	current.NewMCCDiscovered = result.Discovered
	return o.sessions.UpdateSession(ctx, current)
}

// recordRetries persists the attempt count consumed by a failed stage.
func (o *Orchestrator) recordRetries(ctx context.Context, sessionID int64, attempts int) error {
	current, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	current.RetryCount = attempts
	return o.sessions.UpdateSession(ctx, current)
}

func (o *Orchestrator) retryOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  o.cfg.MaxRetries,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// emit delivers a progress event best-effort. Sink failures are logged
// and swallowed; they never abort the pipeline.
func (o *Orchestrator) emit(sink service.ProgressSink, event service.ProgressEvent) {
	if sink == nil {
		return
	}
	if err := sink.Notify(event); err != nil {
		slog.Warn("Progress sink failed",
			"step", event.Step,
			"percent", event.Percent,
			"error", err)
	}
}

// BatchResult records one item's outcome in a batch run.
type BatchResult struct {
	Err       error
	Result    *Result
	SessionID int64
}

// RunBatch processes contexts sequentially with a cancellable inter-item
// delay, respecting external call-rate limits. One item's failure is
// isolated and recorded, never aborting the remaining batch.
func (o *Orchestrator) RunBatch(ctx context.Context, contexts []RunContext) []BatchResult {
	results := make([]BatchResult, 0, len(contexts))

	for i, rc := range contexts {
		if i > 0 && o.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				o.failSkipped(ctx, rc.SessionID)
				results = append(results, BatchResult{SessionID: rc.SessionID, Err: ctx.Err()})
				continue
			case <-time.After(o.cfg.BatchDelay):
			}
		}

		result, err := o.Run(ctx, rc)
		if err != nil {
			slog.Warn("Batch item failed",
				"session_id", rc.SessionID,
				"error", err)
		}
		results = append(results, BatchResult{SessionID: rc.SessionID, Result: result, Err: err})

		if errors.Is(ctx.Err(), context.Canceled) {
			// Surrounding cancellation: mark the rest without running them
			for _, rest := range contexts[i+1:] {
				o.failSkipped(ctx, rest.SessionID)
				results = append(results, BatchResult{SessionID: rest.SessionID, Err: ctx.Err()})
			}
			break
		}
	}
	return results
}

// failSkipped terminates a batch item the run never reached. Skipped
// sessions may not linger in a non-terminal status.
func (o *Orchestrator) failSkipped(ctx context.Context, sessionID int64) {
	failCtx := context.WithoutCancel(ctx)
	if err := o.machine.Fail(failCtx, sessionID, "Processing was canceled."); err != nil {
		slog.Error("Failed to record skipped batch item",
			"session_id", sessionID,
			"error", err)
	}
}
