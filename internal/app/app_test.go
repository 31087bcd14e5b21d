package app

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/extraction"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/mcc"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/recommend"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/session"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/storage"
)

// stubClassifier answers every extraction with the same candidate set.
type stubClassifier struct {
	calls int
}

func (s *stubClassifier) Extract(_ context.Context, _ string, _ service.ExtractionHints) (*service.ExtractionResponse, error) {
	s.calls++
	return &service.ExtractionResponse{
		Candidates: []service.RawTransaction{
			{Date: "2024-01-05", Description: "STARBUCKS #1234", Merchant: "Starbucks", Type: "purchase", Amount: 5.75, Confidence: 0.95},
			{Date: "2024-01-06", Description: "SAFEWAY #552", Merchant: "Safeway", Type: "purchase", Amount: 84.20, Confidence: 0.9},
		},
		Confidence: 0.9,
	}, nil
}

// stubParser hands back a statement-shaped document regardless of input.
type stubParser struct{}

func (stubParser) Parse(_ context.Context, _ io.Reader) (*service.ParsedDocument, error) {
	return &service.ParsedDocument{
		Text:      strings.Repeat("2024-01-05  STARBUCKS #1234  $5.75\n", 20),
		PageCount: 1,
		Stats: service.StructuralStats{
			LineCount:     20,
			NumericCount:  40,
			DateCount:     20,
			CurrencyCount: 20,
		},
	}, nil
}

func newTestApp(t *testing.T) (*App, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	machine := session.NewStateMachine(store, 24*time.Hour, 2)
	orchestrator := extraction.NewOrchestrator(machine, &stubClassifier{}, mcc.NewClassifier(nil, 0.3), store, store, extraction.Config{
		MaxRetries:       2,
		ReviewConfidence: 0.8,
		MinConfidence:    0.3,
		MinTextLength:    200,
	})
	engine := recommend.NewEngine(store, recommend.NewScorer(recommend.DefaultWeights(), 1.0), recommend.Policy{
		TopN:          3,
		MinTotalSpend: 10,
		MinCategories: 1,
		CacheTTL:      time.Hour,
	})

	return New(machine, orchestrator, engine, store, store, 2), store
}

func processSession(t *testing.T, a *App) *model.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := a.CreateSession(ctx)
	require.NoError(t, err)

	handle, err := a.BeginExtraction(ctx, sess.ID, strings.NewReader("statement"), stubParser{}, service.ExtractionHints{}, nil)
	require.NoError(t, err)

	_, err = handle.Wait(ctx)
	require.NoError(t, err)
	return sess
}

func TestApp_EndToEnd(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	sess := processSession(t, a)

	status, err := a.GetSessionStatus(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status.Status)
	assert.Equal(t, 2, status.TotalTransactions)

	patterns, err := a.GetSpendingAnalysis(ctx, sess.Token)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "Groceries", patterns[0].CategoryName)

	result, err := a.GetRecommendations(ctx, sess.Token, recommend.Options{MaxAnnualFee: -1})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Recommendations)
}

func TestApp_RecommendationsRequireCompletion(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	sess, err := a.CreateSession(ctx)
	require.NoError(t, err)

	_, err = a.GetRecommendations(ctx, sess.Token, recommend.Options{MaxAnnualFee: -1})
	require.Error(t, err)
	assert.Contains(t, common.UserMessage(err), "not ready")
}

func TestApp_RecommendationsCached(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()

	sess := processSession(t, a)

	opts := recommend.Options{MaxAnnualFee: -1}
	first, err := a.GetRecommendations(ctx, sess.Token, opts)
	require.NoError(t, err)

	// Second call with the same criteria is served from the cache
	second, err := a.GetRecommendations(ctx, sess.Token, opts)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt.Unix(), second.GeneratedAt.Unix())

	cached, err := store.GetResult(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Summary.TopPick, cached.Summary.TopPick)

	// Different criteria bypass and overwrite the cached copy
	third, err := a.GetRecommendations(ctx, sess.Token, recommend.Options{NoAnnualFeeOnly: true})
	require.NoError(t, err)
	assert.InDelta(t, 0, third.Criteria.MaxAnnualFee, 0.001)
}

// failingParser rejects every document, leaving the retry budget intact.
type failingParser struct{}

func (failingParser) Parse(_ context.Context, _ io.Reader) (*service.ParsedDocument, error) {
	return nil, common.ErrUnreadableDocument
}

func TestApp_RequeuedSessionRestarts(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	sess, err := a.CreateSession(ctx)
	require.NoError(t, err)

	handle, err := a.BeginExtraction(ctx, sess.ID, strings.NewReader("statement"), failingParser{}, service.ExtractionHints{}, nil)
	require.NoError(t, err)
	_, err = handle.Wait(ctx)
	require.Error(t, err)

	status, err := a.GetSessionStatus(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, status.Status)

	// Requeue puts the session back in queued; a fresh run must accept
	// it there instead of re-advancing into queued.
	require.NoError(t, a.machine.Requeue(ctx, sess.ID))

	handle, err = a.BeginExtraction(ctx, sess.ID, strings.NewReader("statement"), stubParser{}, service.ExtractionHints{}, nil)
	require.NoError(t, err)
	_, err = handle.Wait(ctx)
	require.NoError(t, err)

	status, err = a.GetSessionStatus(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status.Status)
}

func TestApp_UnknownTokenNotFound(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	_, err := a.GetSessionStatus(ctx, "missing-token")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = a.GetSpendingAnalysis(ctx, "missing-token")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApp_DeleteSession(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()

	sess := processSession(t, a)
	require.NoError(t, a.DeleteSession(ctx, sess.Token))

	_, err := a.GetSessionStatus(ctx, sess.Token)
	assert.ErrorIs(t, err, common.ErrNotFound)

	txns, err := store.ListTransactionsBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}
