package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/storage"
)

func newTestMachine(t *testing.T) *StateMachine {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return NewStateMachine(store, 24*time.Hour, 2)
}

func TestStateMachine_Create(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, model.StatusUploading, sess.Status)
	assert.Equal(t, 0, sess.Progress)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestStateMachine_AdvanceHappyPath(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	steps := []struct {
		status   model.SessionStatus
		progress int
	}{
		{model.StatusQueued, 0},
		{model.StatusExtracting, 5},
		{model.StatusCategorizing, 65},
		{model.StatusMCCDiscovery, 75},
		{model.StatusAnalyzing, 85},
	}
	for _, step := range steps {
		require.NoError(t, m.Advance(ctx, sess.ID, step.status, step.progress, ""))
	}

	require.NoError(t, m.Complete(ctx, sess.ID))

	got, err := m.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []model.SessionStatus
		to    model.SessionStatus
	}{
		{
			name: "skip ahead from uploading",
			to:   model.StatusExtracting,
		},
		{
			name:  "backwards from categorizing",
			setup: []model.SessionStatus{model.StatusQueued, model.StatusExtracting, model.StatusCategorizing},
			to:    model.StatusExtracting,
		},
		{
			name:  "re-enter queued without requeue",
			setup: []model.SessionStatus{model.StatusQueued, model.StatusExtracting},
			to:    model.StatusQueued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t)
			ctx := context.Background()

			sess, err := m.Create(ctx)
			require.NoError(t, err)
			for _, status := range tt.setup {
				require.NoError(t, m.Advance(ctx, sess.ID, status, 10, ""))
			}

			err = m.Advance(ctx, sess.ID, tt.to, 50, "")
			var invalid *common.InvalidTransitionError
			require.True(t, errors.As(err, &invalid))
		})
	}
}

func TestStateMachine_ProgressNeverDecreases(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Advance(ctx, sess.ID, model.StatusQueued, 40, ""))
	require.NoError(t, m.Advance(ctx, sess.ID, model.StatusExtracting, 5, ""))

	got, err := m.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
}

func TestStateMachine_FailAndRequeue(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Advance(ctx, sess.ID, model.StatusQueued, 0, ""))
	require.NoError(t, m.Advance(ctx, sess.ID, model.StatusExtracting, 20, ""))

	require.NoError(t, m.Fail(ctx, sess.ID, "classifier unavailable"))
	got, err := m.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "classifier unavailable", got.ErrorMessage)

	// First two requeues consume the retry budget
	require.NoError(t, m.Requeue(ctx, sess.ID))
	got, err = m.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, 1, got.RetryCount)

	require.NoError(t, m.Fail(ctx, sess.ID, "still down"))
	require.NoError(t, m.Requeue(ctx, sess.ID))
	require.NoError(t, m.Fail(ctx, sess.ID, "still down"))

	// Budget exhausted
	err = m.Requeue(ctx, sess.ID)
	require.Error(t, err)
}

func TestStateMachine_TerminalGuards(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)
	for _, status := range []model.SessionStatus{
		model.StatusQueued, model.StatusExtracting, model.StatusCategorizing,
		model.StatusMCCDiscovery, model.StatusAnalyzing,
	} {
		require.NoError(t, m.Advance(ctx, sess.ID, status, 10, ""))
	}
	require.NoError(t, m.Complete(ctx, sess.ID))

	var invalid *common.InvalidTransitionError
	assert.True(t, errors.As(m.Fail(ctx, sess.ID, "too late"), &invalid))

	// Requeue only applies to failed sessions
	require.Error(t, m.Requeue(ctx, sess.ID))
}

func TestStateMachine_LazyExpiry(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = m.Resolve(ctx, sess.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The expired session was deleted, not just hidden
	m.now = time.Now
	_, err = m.Resolve(ctx, sess.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStateMachine_ResolveToken(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	got, err := m.ResolveToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = m.ResolveToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStateMachine_SweepExpired(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx)
		require.NoError(t, err)
	}

	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	removed, err := m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStateMachine_Extend(t *testing.T) {
	m := newTestMachine(t)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Extend(ctx, sess.ID, 48))

	got, err := m.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.After(sess.ExpiresAt.Add(47*time.Hour)))
}
