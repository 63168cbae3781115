package store

import (
	"context"
	"errors"

	"municipal-sentinel/models"
)

// ErrNotFound is returned by UpdateStatus when no report carries the
// given id. Any other error means the store itself failed and the
// submission is retryable by the caller.
var ErrNotFound = errors.New("report not found")

// Store owns the report collection. The triage pipeline is the sole
// creator of reports; the dashboard mutates status through UpdateStatus.
// Implementations must serialize Create and UpdateStatus so ids stay
// unique and readers never observe a half-written report.
type Store interface {
	// CreateReport assigns a fresh id, stamps status New and the current
	// time, and appends the report. It never fails on well-typed input
	// short of the backing store being unavailable.
	CreateReport(ctx context.Context, draft *models.ReportDraft) (*models.Report, error)
	// UpdateStatus sets the status of the report with the given id.
	// Returns ErrNotFound when the id is absent; no side effect in that case.
	UpdateStatus(ctx context.Context, id, status string) error
	// GetAllReports returns every report in insertion order.
	GetAllReports(ctx context.Context) ([]models.Report, error)
}
