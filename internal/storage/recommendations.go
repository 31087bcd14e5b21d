package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// SaveResult caches a recommendation result for a session. The cache copy
// is never authoritative; it is replaced wholesale on each save and
// invalidated whenever the session's transactions change.
func (s *SQLiteStorage) SaveResult(ctx context.Context, sessionID int64, result *model.RecommendationResult) error {
	if result == nil {
		return common.NewValidationError("result", "cannot be nil")
	}

	criteriaJSON, err := json.Marshal(result.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}
	payloadJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendation_cache (session_id, criteria, payload, generated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			criteria = excluded.criteria,
			payload = excluded.payload,
			generated_at = excluded.generated_at,
			expires_at = excluded.expires_at
	`, sessionID, string(criteriaJSON), string(payloadJSON),
		result.GeneratedAt.UTC(), result.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to cache recommendation result: %w", err)
	}
	return nil
}

// GetResult returns the cached result for a session, or ErrNotFound when
// absent or past its own expiry.
func (s *SQLiteStorage) GetResult(ctx context.Context, sessionID int64) (*model.RecommendationResult, error) {
	var payload string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, expires_at FROM recommendation_cache WHERE session_id = ?
	`, sessionID).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recommendation cache: %w", err)
	}

	if time.Now().After(expiresAt) {
		return nil, common.ErrNotFound
	}

	var result model.RecommendationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, nil
}

// InvalidateResult drops the cached result for a session.
func (s *SQLiteStorage) InvalidateResult(ctx context.Context, sessionID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM recommendation_cache WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate recommendation cache: %w", err)
	}
	return nil
}
