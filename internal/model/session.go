// Package model defines the core domain models used throughout the application.
package model

import "time"

// SessionStatus tracks where a statement-processing session is in its lifecycle.
type SessionStatus string

// Session status constants.
const (
	StatusUploading    SessionStatus = "uploading"
	StatusQueued       SessionStatus = "queued"
	StatusExtracting   SessionStatus = "extracting"
	StatusCategorizing SessionStatus = "categorizing"
	StatusMCCDiscovery SessionStatus = "mcc_discovery"
	StatusAnalyzing    SessionStatus = "analyzing"
	StatusCompleted    SessionStatus = "completed"
	StatusFailed       SessionStatus = "failed"
)

// IsTerminal reports whether the status ends a processing attempt.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session represents one statement-processing unit.
type Session struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         time.Time
	Token             string
	Status            SessionStatus
	TopCategory       string
	ErrorMessage      string
	ID                int64
	Progress          int
	RetryCount        int
	TotalTransactions int
	CategorizedCount  int
	UnknownMCCCount   int
	NewMCCDiscovered  int
	TotalSpend        float64
}

// Expired reports whether the session is past its expiry time.
// An expired session is logically dead regardless of stored status.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
