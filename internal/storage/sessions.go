package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

const sessionColumns = `id, token, status, progress, retry_count, expires_at,
	total_spend, top_category, total_transactions, categorized_count,
	unknown_mcc_count, new_mcc_discovered, error_message, created_at, updated_at`

// CreateSession inserts a new session and fills in its generated ID.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			token, status, progress, retry_count, expires_at,
			total_spend, top_category, total_transactions, categorized_count,
			unknown_mcc_count, new_mcc_discovered, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.Token, string(session.Status), session.Progress, session.RetryCount,
		session.ExpiresAt.UTC(), session.TotalSpend, session.TopCategory,
		session.TotalTransactions, session.CategorizedCount, session.UnknownMCCCount,
		session.NewMCCDiscovered, session.ErrorMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}
	session.ID = id
	session.CreatedAt = now
	session.UpdatedAt = now
	return nil
}

// GetSession fetches a session by its internal ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetSessionByToken fetches a session by its external token.
func (s *SQLiteStorage) GetSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	if err := validateString(token, "token"); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// UpdateSession persists the session's mutable fields atomically.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session *model.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = ?, progress = ?, retry_count = ?, expires_at = ?,
			total_spend = ?, top_category = ?, total_transactions = ?,
			categorized_count = ?, unknown_mcc_count = ?, new_mcc_discovered = ?,
			error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		string(session.Status), session.Progress, session.RetryCount,
		session.ExpiresAt.UTC(), session.TotalSpend, session.TopCategory,
		session.TotalTransactions, session.CategorizedCount, session.UnknownMCCCount,
		session.NewMCCDiscovered, session.ErrorMessage, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session; transactions and cached recommendations
// cascade via foreign keys.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListExpiredSessions returns sessions past their expiry as of the given time.
func (s *SQLiteStorage) ListExpiredSessions(ctx context.Context, asOf time.Time) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE expires_at < ? ORDER BY expires_at`,
		asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSessions(rows)
}

// ListSessions returns the most recently updated sessions.
func (s *SQLiteStorage) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var session model.Session
	var status string
	err := row.Scan(
		&session.ID, &session.Token, &status, &session.Progress, &session.RetryCount,
		&session.ExpiresAt, &session.TotalSpend, &session.TopCategory,
		&session.TotalTransactions, &session.CategorizedCount, &session.UnknownMCCCount,
		&session.NewMCCDiscovered, &session.ErrorMessage, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	session.Status = model.SessionStatus(status)
	return &session, nil
}

func scanSessions(rows *sql.Rows) ([]model.Session, error) {
	var sessions []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}
