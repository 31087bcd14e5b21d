package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					token TEXT UNIQUE NOT NULL,
					status TEXT NOT NULL,
					progress INTEGER NOT NULL DEFAULT 0,
					retry_count INTEGER NOT NULL DEFAULT 0,
					expires_at DATETIME NOT NULL,
					total_spend REAL NOT NULL DEFAULT 0,
					top_category TEXT NOT NULL DEFAULT '',
					total_transactions INTEGER NOT NULL DEFAULT 0,
					categorized_count INTEGER NOT NULL DEFAULT 0,
					unknown_mcc_count INTEGER NOT NULL DEFAULT 0,
					new_mcc_discovered INTEGER NOT NULL DEFAULT 0,
					error_message TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_sessions_token ON sessions(token)`,
				`CREATE INDEX idx_sessions_expires ON sessions(expires_at)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					merchant TEXT NOT NULL,
					amount REAL NOT NULL,
					type TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					mcc_code TEXT NOT NULL DEFAULT '',
					category_name TEXT NOT NULL DEFAULT '',
					sub_category_name TEXT NOT NULL DEFAULT '',
					mcc_status TEXT NOT NULL DEFAULT 'unknown',
					mcc_confidence REAL NOT NULL DEFAULT 0,
					is_verified INTEGER NOT NULL DEFAULT 0,
					needs_review INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_transactions_session ON transactions(session_id)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_name)`,

				`CREATE TABLE IF NOT EXISTS cards (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					issuer TEXT NOT NULL,
					network TEXT NOT NULL,
					min_credit_score TEXT NOT NULL DEFAULT '',
					annual_fee REAL NOT NULL DEFAULT 0,
					base_reward_rate REAL NOT NULL DEFAULT 0,
					signup_bonus REAL NOT NULL DEFAULT 0,
					popularity_score REAL NOT NULL DEFAULT 0,
					satisfaction_score REAL NOT NULL DEFAULT 0,
					is_lifetime_free INTEGER NOT NULL DEFAULT 0,
					is_business_card INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1
				)`,

				`CREATE TABLE IF NOT EXISTS reward_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
					category_name TEXT NOT NULL,
					mcc_codes TEXT NOT NULL DEFAULT '[]',
					reward_rate REAL NOT NULL,
					cap_amount REAL NOT NULL DEFAULT 0,
					cap_period TEXT NOT NULL DEFAULT 'monthly'
				)`,
				`CREATE INDEX idx_reward_rules_card ON reward_rules(card_id)`,

				`CREATE TABLE IF NOT EXISTS recommendation_cache (
					session_id INTEGER PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
					criteria TEXT NOT NULL,
					payload TEXT NOT NULL,
					generated_at DATETIME NOT NULL,
					expires_at DATETIME NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed card catalog",
		Up:          seedCatalog,
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		slog.Info("Applying migration",
			"version", m.Version,
			"description", m.Description)

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
			}
			_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version))
			return err
		})
		if err != nil {
			return err
		}
	}

	final, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected %d", final, ExpectedSchemaVersion)
	}
	return nil
}

// SchemaVersion reports the database's current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	return s.schemaVersion(ctx)
}

func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
