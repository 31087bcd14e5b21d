package extraction

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/mcc"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/session"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/storage"
)

// fakeClassifier returns canned responses, or errors for the first
// failCount calls (every call when failCount is 0 and err is set).
type fakeClassifier struct {
	response  *service.ExtractionResponse
	err       error
	calls     int
	failCount int
}

func (f *fakeClassifier) Extract(_ context.Context, _ string, _ service.ExtractionHints) (*service.ExtractionResponse, error) {
	f.calls++
	if f.err != nil && (f.failCount == 0 || f.calls <= f.failCount) {
		return nil, f.err
	}
	return f.response, nil
}

func plausibleDoc() *service.ParsedDocument {
	return &service.ParsedDocument{
		Text:      strings.Repeat("2024-01-05  STARBUCKS #1234  $5.75\n", 20),
		PageCount: 1,
		Stats: service.StructuralStats{
			LineCount:     20,
			NumericCount:  40,
			DateCount:     20,
			CurrencyCount: 20,
		},
	}
}

func goodResponse() *service.ExtractionResponse {
	return &service.ExtractionResponse{
		Candidates: []service.RawTransaction{
			{Date: "2024-01-05", Description: "STARBUCKS STORE #1234", Merchant: "Starbucks", Type: "purchase", Amount: 5.75, Confidence: 0.95},
			{Date: "2024-01-06", Description: "SAFEWAY #552", Merchant: "Safeway", Type: "purchase", Amount: 84.20, Confidence: 0.9},
			{Date: "2024-01-07", Description: "MYSTERY SHOP", Merchant: "Mystery Shop", Type: "purchase", Amount: 12.00, Confidence: 0.5},
		},
		Confidence: 0.9,
	}
}

type orchestratorFixture struct {
	store        *storage.SQLiteStorage
	machine      *session.StateMachine
	orchestrator *Orchestrator
	classifier   *fakeClassifier
}

func newFixture(t *testing.T, classifier *fakeClassifier) *orchestratorFixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	machine := session.NewStateMachine(store, 24*time.Hour, 2)
	orchestrator := NewOrchestrator(machine, classifier, mcc.NewClassifier(nil, 0.3), store, store, Config{
		MaxRetries:       2,
		ReviewConfidence: 0.8,
		MinConfidence:    0.3,
		MinTextLength:    200,
	})

	return &orchestratorFixture{
		store:        store,
		machine:      machine,
		orchestrator: orchestrator,
		classifier:   classifier,
	}
}

func (f *orchestratorFixture) queuedSession(t *testing.T) *model.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.machine.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.machine.Advance(ctx, sess.ID, model.StatusQueued, 0, ""))
	return sess
}

func runContext(sessionID int64, sink service.ProgressSink) RunContext {
	return RunContext{
		SessionID: sessionID,
		Document:  strings.NewReader("unused"),
		Parser:    &stubParser{doc: plausibleDoc()},
		Sink:      sink,
	}
}

// stubParser satisfies service.DocumentParser with a canned document.
type stubParser struct {
	doc *service.ParsedDocument
	err error
}

func (s *stubParser) Parse(_ context.Context, _ io.Reader) (*service.ParsedDocument, error) {
	return s.doc, s.err
}

func TestOrchestrator_SuccessfulRun(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx := context.Background()
	sess := f.queuedSession(t)

	var events []service.ProgressEvent
	sink := service.ProgressSinkFunc(func(event service.ProgressEvent) error {
		events = append(events, event)
		return nil
	})

	result, err := f.orchestrator.Run(ctx, runContext(sess.ID, sink))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Transactions)
	assert.Equal(t, 2, result.Categorized) // Starbucks and Safeway hit the keyword table
	assert.Equal(t, 1, result.UnknownMCC)
	assert.InDelta(t, 101.95, result.TotalSpend, 0.001)

	got, err := f.machine.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, 3, got.TotalTransactions)
	assert.Equal(t, 2, got.CategorizedCount)
	assert.Empty(t, got.ErrorMessage)

	txns, err := f.store.ListTransactionsBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// Low-confidence candidates survive but get flagged
	var flagged int
	for _, txn := range txns {
		if txn.NeedsReview {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)

	require.NotEmpty(t, events)
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestOrchestrator_TimeoutExhaustsRetries(t *testing.T) {
	f := newFixture(t, &fakeClassifier{err: common.ErrClassifierTimeout})
	ctx := context.Background()
	sess := f.queuedSession(t)

	_, err := f.orchestrator.Run(ctx, runContext(sess.ID, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 2, f.classifier.calls)

	got, err := f.machine.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, 2, got.RetryCount)
	assert.Contains(t, got.ErrorMessage, "timed out")
}

func TestOrchestrator_UnsuitableDocumentFailsFast(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx := context.Background()
	sess := f.queuedSession(t)

	rc := runContext(sess.ID, nil)
	rc.Parser = &stubParser{doc: &service.ParsedDocument{
		Text:  strings.Repeat("this is a novel about nothing in particular ", 10),
		Stats: service.StructuralStats{LineCount: 1},
	}}

	_, err := f.orchestrator.Run(ctx, rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsuitableDocument)

	// No classification call was spent on the bad document
	assert.Equal(t, 0, f.classifier.calls)

	got, err := f.machine.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "does not look like a financial statement")
}

func TestOrchestrator_SinkFailureNeverAborts(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx := context.Background()
	sess := f.queuedSession(t)

	sink := service.ProgressSinkFunc(func(service.ProgressEvent) error {
		return errors.New("sink is broken")
	})

	result, err := f.orchestrator.Run(ctx, runContext(sess.ID, sink))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Transactions)
}

func TestOrchestrator_NoUsableCandidates(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: &service.ExtractionResponse{
		Candidates: []service.RawTransaction{
			{Date: "not a date", Merchant: "Somewhere", Amount: 10, Confidence: 0.9},
		},
	}})
	ctx := context.Background()
	sess := f.queuedSession(t)

	_, err := f.orchestrator.Run(ctx, runContext(sess.ID, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsuitableDocument)
}

func TestOrchestrator_ReextractionReplaces(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx := context.Background()
	sess := f.queuedSession(t)

	_, err := f.orchestrator.Run(ctx, runContext(sess.ID, nil))
	require.NoError(t, err)

	first, err := f.store.ListTransactionsBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// A fresh session run with different candidates fully replaces
	f.classifier.response = &service.ExtractionResponse{
		Candidates: []service.RawTransaction{
			{Date: "2024-02-01", Description: "CHIPOTLE 221", Merchant: "Chipotle", Type: "purchase", Amount: 14.50, Confidence: 0.9},
		},
	}
	sess2 := f.queuedSession(t)
	_, err = f.orchestrator.Run(ctx, runContext(sess2.ID, nil))
	require.NoError(t, err)

	second, err := f.store.ListTransactionsBySession(ctx, sess2.ID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Chipotle", second[0].Merchant)
}

// cancelingClassifier cancels the surrounding context mid-call before
// erroring, the shape of a caller abandoning a run.
type cancelingClassifier struct {
	cancel context.CancelFunc
}

func (c *cancelingClassifier) Extract(_ context.Context, _ string, _ service.ExtractionHints) (*service.ExtractionResponse, error) {
	c.cancel()
	return nil, common.ErrClassifierTimeout
}

func TestOrchestrator_CancellationStillFailsSession(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(f.machine, &cancelingClassifier{cancel: cancel}, mcc.NewClassifier(nil, 0.3), f.store, f.store, Config{
		MaxRetries:       2,
		ReviewConfidence: 0.8,
		MinConfidence:    0.3,
		MinTextLength:    200,
	})

	sess := f.queuedSession(t)
	_, err := o.Run(ctx, runContext(sess.ID, nil))
	require.Error(t, err)

	// The canceled context must not block the failure record.
	got, err := f.machine.Resolve(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestOrchestrator_RunBatchFailsSkippedSessions(t *testing.T) {
	f := newFixture(t, &fakeClassifier{response: goodResponse()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(f.machine, &cancelingClassifier{cancel: cancel}, mcc.NewClassifier(nil, 0.3), f.store, f.store, Config{
		MaxRetries:       2,
		ReviewConfidence: 0.8,
		MinConfidence:    0.3,
		MinTextLength:    200,
	})

	first := f.queuedSession(t)
	second := f.queuedSession(t)

	results := o.RunBatch(ctx, []RunContext{
		runContext(first.ID, nil),
		runContext(second.ID, nil),
	})
	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, context.Canceled)

	for _, id := range []int64{first.ID, second.ID} {
		got, err := f.machine.Resolve(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, got.Status)
	}
}

func TestOrchestrator_RunBatchIsolatesFailures(t *testing.T) {
	// First two classifier calls fail, exhausting the first item's
	// retry budget; the second item succeeds on fresh calls.
	f := newFixture(t, &fakeClassifier{
		response:  goodResponse(),
		err:       common.ErrClassifierTimeout,
		failCount: 2,
	})
	ctx := context.Background()
	first := f.queuedSession(t)
	second := f.queuedSession(t)

	results := f.orchestrator.RunBatch(ctx, []RunContext{
		runContext(first.ID, nil),
		runContext(second.ID, nil),
	})
	require.Len(t, results, 2)

	assert.Equal(t, first.ID, results[0].SessionID)
	assert.ErrorIs(t, results[0].Err, common.ErrMaxRetries)

	assert.Equal(t, second.ID, results[1].SessionID)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 3, results[1].Result.Transactions)

	got, err := f.machine.Resolve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)

	got, err = f.machine.Resolve(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestSanitizeCandidates(t *testing.T) {
	policy := sanitizePolicy{minConfidence: 0.3, reviewBar: 0.8}

	candidates := []service.RawTransaction{
		{Date: "2024-01-05", Merchant: "Starbucks #1234", Type: "purchase", Amount: 5.75, Confidence: 0.95},
		{Date: "garbage", Merchant: "Nowhere", Type: "purchase", Amount: 10, Confidence: 0.9},
		{Date: "2024-01-06", Merchant: "", Description: "", Type: "purchase", Amount: 10, Confidence: 0.9},
		{Date: "2024-01-07", Merchant: "Ghost Shop", Type: "purchase", Amount: 0, Confidence: 0.9},
		{Date: "2024-01-08", Merchant: "Bank", Type: "fee", Amount: 0, Confidence: 0.9},
		{Date: "2024-01-09", Merchant: "Sketchy", Type: "purchase", Amount: 3, Confidence: 0.1},
	}

	transactions, warnings := sanitizeCandidates(7, candidates, policy)

	require.Len(t, transactions, 2)
	assert.Len(t, warnings, 4)

	// Trailing store numbers are stripped during normalization
	assert.Equal(t, "Starbucks", transactions[0].Merchant)
	assert.False(t, transactions[0].NeedsReview)
	assert.Equal(t, model.TypeFee, transactions[1].Type)

	for _, txn := range transactions {
		assert.Equal(t, int64(7), txn.SessionID)
		assert.NotEmpty(t, txn.ID)
		assert.Equal(t, model.MCCUnknown, txn.MCCStatus)
	}
}

func TestCheckPlausibility(t *testing.T) {
	tests := []struct {
		doc     *service.ParsedDocument
		name    string
		wantErr bool
	}{
		{
			name:    "statement shaped",
			doc:     plausibleDoc(),
			wantErr: false,
		},
		{
			name:    "too short",
			doc:     &service.ParsedDocument{Text: "tiny", Stats: service.StructuralStats{NumericCount: 10, DateCount: 5, CurrencyCount: 3}},
			wantErr: true,
		},
		{
			name: "no dates",
			doc: &service.ParsedDocument{
				Text:  strings.Repeat("a lot of text with numbers 123 456 789 ", 10),
				Stats: service.StructuralStats{NumericCount: 30, CurrencyCount: 5},
			},
			wantErr: true,
		},
		{
			name: "no currency and no table structure",
			doc: &service.ParsedDocument{
				Text:  strings.Repeat("2024-01-02 text 123 456 ", 20),
				Stats: service.StructuralStats{NumericCount: 40, DateCount: 20},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPlausibility(tt.doc, 200)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsuitableDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
