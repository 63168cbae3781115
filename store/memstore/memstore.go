package memstore

import (
	"context"
	"sync"
	"time"

	"municipal-sentinel/models"
	"municipal-sentinel/store"
)

// Store is an in-memory report store used for tests and local runs.
// A single mutex serializes writes and snapshots, so aggregation reads
// never observe a half-written report.
type Store struct {
	mu      sync.Mutex
	reports []models.Report
}

func New() *Store {
	return &Store{}
}

func (s *Store) CreateReport(ctx context.Context, draft *models.ReportDraft) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ids derive from the collection length; nothing is ever deleted,
	// so they are unique for the store's lifetime.
	id := models.FormatReportID(int64(len(s.reports) + 1))
	r := models.NewReport(id, time.Now().UTC(), draft)
	s.reports = append(s.reports, r)

	stored := r
	return &stored, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reports {
		if s.reports[i].ID == id {
			s.reports[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) GetAllReports(ctx context.Context) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]models.Report, len(s.reports))
	copy(snapshot, s.reports)
	return snapshot, nil
}
