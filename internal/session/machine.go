// Package session owns the lifecycle of one statement-processing session,
// advancing it through states and enforcing valid transitions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// transitions is the allowed forward edge set. failed is reachable from
// every non-terminal state; failed re-enters queued only through Requeue.
var transitions = map[model.SessionStatus][]model.SessionStatus{
	model.StatusUploading:    {model.StatusQueued, model.StatusFailed},
	model.StatusQueued:       {model.StatusExtracting, model.StatusFailed},
	model.StatusExtracting:   {model.StatusCategorizing, model.StatusFailed},
	model.StatusCategorizing: {model.StatusMCCDiscovery, model.StatusFailed},
	model.StatusMCCDiscovery: {model.StatusAnalyzing, model.StatusFailed},
	model.StatusAnalyzing:    {model.StatusCompleted, model.StatusFailed},
	model.StatusCompleted:    {},
	model.StatusFailed:       {},
}

func reachable(from, to model.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateMachine is the only component allowed to mutate session status and
// progress.
type StateMachine struct {
	store      service.SessionStore
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

// NewStateMachine creates a state machine over the given session store.
func NewStateMachine(store service.SessionStore, ttl time.Duration, maxRetries int) *StateMachine {
	return &StateMachine{
		store:      store,
		ttl:        ttl,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Create allocates a new session in the uploading state.
func (m *StateMachine) Create(ctx context.Context) (*model.Session, error) {
	session := &model.Session{
		Token:     uuid.New().String(),
		Status:    model.StatusUploading,
		Progress:  0,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Session created",
		"session_id", session.ID,
		"token", session.Token,
		"expires_at", session.ExpiresAt)
	return session, nil
}

// Advance moves the session to targetStatus, which must be reachable from
// its current status. Progress is clamped to [0,100] and never decreases
// within an attempt.
func (m *StateMachine) Advance(ctx context.Context, sessionID int64, target model.SessionStatus, progress int, note string) error {
	session, err := m.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}

	if !reachable(session.Status, target) {
		transErr := &common.InvalidTransitionError{From: session.Status, To: target}
		// An out-of-table transition is a bug in the caller, never
		// expected in normal operation.
		slog.Error("Invalid session transition requested",
			"session_id", sessionID,
			"from", session.Status,
			"to", target)
		return transErr
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress < session.Progress {
		progress = session.Progress
	}

	old := session.Status
	oldProgress := session.Progress
	session.Status = target
	session.Progress = progress
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}

	slog.Info("Session advanced",
		"session_id", sessionID,
		"from", old,
		"to", target,
		"progress_from", oldProgress,
		"progress_to", progress,
		"note", note)
	return nil
}

// Fail forces the session into the failed state and records the message.
// It does not touch the retry count; re-queueing is a separate explicit
// decision made by the caller.
func (m *StateMachine) Fail(ctx context.Context, sessionID int64, message string) error {
	session, err := m.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status == model.StatusCompleted {
		return &common.InvalidTransitionError{From: session.Status, To: model.StatusFailed}
	}

	old := session.Status
	session.Status = model.StatusFailed
	session.ErrorMessage = message
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist failure: %w", err)
	}

	slog.Warn("Session failed",
		"session_id", sessionID,
		"from", old,
		"progress", session.Progress,
		"message", message)
	return nil
}

// Complete forces the session into the completed state at full progress.
func (m *StateMachine) Complete(ctx context.Context, sessionID int64) error {
	session, err := m.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status == model.StatusFailed {
		return &common.InvalidTransitionError{From: session.Status, To: model.StatusCompleted}
	}

	old := session.Status
	session.Status = model.StatusCompleted
	session.Progress = 100
	session.ErrorMessage = ""
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist completion: %w", err)
	}

	slog.Info("Session completed",
		"session_id", sessionID,
		"from", old)
	return nil
}

// Requeue re-enters a failed session into queued for another attempt,
// consuming one retry. Once the retry budget is spent, failed is terminal.
func (m *StateMachine) Requeue(ctx context.Context, sessionID int64) error {
	session, err := m.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status != model.StatusFailed {
		return &common.InvalidTransitionError{From: session.Status, To: model.StatusQueued}
	}
	if session.RetryCount >= m.maxRetries {
		return common.NewUserError("Retry limit reached for this session.", common.ErrMaxRetries)
	}

	session.Status = model.StatusQueued
	session.RetryCount++
	session.Progress = 0 // New attempt starts fresh
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist requeue: %w", err)
	}

	slog.Info("Session requeued",
		"session_id", sessionID,
		"retry_count", session.RetryCount)
	return nil
}

// Resolve looks up a session by ID, enforcing lazy expiry: a session past
// its expiry is deleted (cascading) and reported as not found rather than
// returned stale.
func (m *StateMachine) Resolve(ctx context.Context, sessionID int64) (*model.Session, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.checkExpiry(ctx, session)
}

// ResolveToken looks up a session by its external token with the same
// lazy-expiry semantics as Resolve.
func (m *StateMachine) ResolveToken(ctx context.Context, token string) (*model.Session, error) {
	session, err := m.store.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.checkExpiry(ctx, session)
}

func (m *StateMachine) checkExpiry(ctx context.Context, session *model.Session) (*model.Session, error) {
	if !session.Expired(m.now()) {
		return session, nil
	}

	if err := m.store.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete expired session: %w", err)
	}
	slog.Info("Expired session removed on read",
		"session_id", session.ID,
		"expired_at", session.ExpiresAt)
	return nil, common.ErrNotFound
}

// Delete removes a session and everything it owns.
func (m *StateMachine) Delete(ctx context.Context, sessionID int64) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("Session deleted", "session_id", sessionID)
	return nil
}

// Extend pushes the session's expiry out by the given number of hours.
func (m *StateMachine) Extend(ctx context.Context, sessionID int64, hours int) error {
	session, err := m.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}

	session.ExpiresAt = session.ExpiresAt.Add(time.Duration(hours) * time.Hour)
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist extension: %w", err)
	}

	slog.Info("Session extended",
		"session_id", sessionID,
		"hours", hours,
		"expires_at", session.ExpiresAt)
	return nil
}

// SweepExpired deletes all sessions past expiry. Lazy expiry on read is
// the correctness mechanism; this sweep is optional hygiene.
func (m *StateMachine) SweepExpired(ctx context.Context) (int, error) {
	expired, err := m.store.ListExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	removed := 0
	for _, session := range expired {
		if err := m.store.DeleteSession(ctx, session.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to delete session %d: %w", session.ID, err)
		}
		removed++
	}

	if removed > 0 {
		slog.Info("Swept expired sessions", "count", removed)
	}
	return removed, nil
}
