package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipal-sentinel/config"
	"municipal-sentinel/models"
	"municipal-sentinel/store"
	"municipal-sentinel/store/memstore"
)

type fakeClassifier struct {
	response string
	err      error
	calls    int
}

func (f *fakeClassifier) ClassifyImage(ctx context.Context, imageData []byte, notes string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeClassifier) SourceName() string { return "Fake" }

type fakePrioritizer struct {
	response string
	err      error
	calls    int
}

func (f *fakePrioritizer) PrioritizeDefect(ctx context.Context, cls *models.Classification, locationContext string) (string, error) {
	f.calls++
	return f.response, f.err
}

type failingStore struct{}

func (failingStore) CreateReport(ctx context.Context, draft *models.ReportDraft) (*models.Report, error) {
	return nil, errors.New("disk full")
}

func (failingStore) UpdateStatus(ctx context.Context, id, status string) error { return nil }

func (failingStore) GetAllReports(ctx context.Context) ([]models.Report, error) { return nil, nil }

func testConfig() *config.Config {
	return &config.Config{OracleTimeout: 5 * time.Second}
}

func submission() *Submission {
	return &Submission{
		Image:           []byte("jpeg bytes"),
		Latitude:        6.45,
		Longitude:       3.39,
		LocationContext: "next to a primary school",
		Reporter:        "citizen-1",
	}
}

func TestSubmitCreatesReport(t *testing.T) {
	classifier := &fakeClassifier{
		response: `{"is_relevant": true, "defect_type": "Pothole", "severity_score": 7, "description": "deep pothole", "estimated_material_needed": "Asphalt"}`,
	}
	prioritizer := &fakePrioritizer{
		response: `{"priority_index": 85, "justification": "school zone", "assigned_department": "Works"}`,
	}
	st := memstore.New()

	svc := New(testConfig(), st, classifier, prioritizer, nil)
	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, "R001", result.Report.ID)
	assert.Equal(t, models.StatusNew, result.Report.Status)
	assert.Equal(t, "Pothole", result.Report.DefectType)
	assert.Equal(t, 85.0, result.Report.PriorityIndex)
	assert.Equal(t, "Works", result.Report.Department)
	assert.Equal(t, models.TierImmediate, result.Tier)
	assert.False(t, result.Degraded)

	reports, err := st.GetAllReports(context.Background())
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestSubmitLowPriorityIsLogged(t *testing.T) {
	classifier := &fakeClassifier{
		response: `{"is_relevant": true, "defect_type": "Heap of Trash", "severity_score": 2}`,
	}
	prioritizer := &fakePrioritizer{
		response: `{"priority_index": 80, "assigned_department": "Sanitation"}`,
	}

	svc := New(testConfig(), memstore.New(), classifier, prioritizer, nil)
	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)

	// Priority exactly at the threshold stays in the logged tier.
	assert.Equal(t, models.TierLogged, result.Tier)
}

func TestSubmitRejectsNonRelevantImage(t *testing.T) {
	classifier := &fakeClassifier{
		response: `{"is_relevant": false, "defect_type": "None"}`,
	}
	prioritizer := &fakePrioritizer{}
	st := memstore.New()

	svc := New(testConfig(), st, classifier, prioritizer, nil)
	_, err := svc.Submit(context.Background(), submission())
	assert.ErrorIs(t, err, ErrNotRelevant)

	// The gate stops the pipeline before prioritization and storage.
	assert.Equal(t, 0, prioritizer.calls)
	reports, _ := st.GetAllReports(context.Background())
	assert.Empty(t, reports)
}

func TestSubmitDegradesOnClassifierError(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("oracle timeout")}
	prioritizer := &fakePrioritizer{
		response: `{"priority_index": 30, "assigned_department": "Works"}`,
	}

	svc := New(testConfig(), memstore.New(), classifier, prioritizer, nil)
	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, models.DefaultDefectType, result.Report.DefectType)
	assert.Equal(t, 0, result.Report.SeverityScore)
	// A degraded classification is still prioritized.
	assert.Equal(t, 1, prioritizer.calls)
	assert.Equal(t, 30.0, result.Report.PriorityIndex)
}

func TestSubmitDegradesOnPrioritizerError(t *testing.T) {
	classifier := &fakeClassifier{
		response: `{"is_relevant": true, "defect_type": "Fallen Pole", "severity_score": 9}`,
	}
	prioritizer := &fakePrioritizer{err: errors.New("oracle unavailable")}

	svc := New(testConfig(), memstore.New(), classifier, prioritizer, nil)
	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, "Fallen Pole", result.Report.DefectType)
	assert.Equal(t, 0.0, result.Report.PriorityIndex)
	assert.Equal(t, models.DefaultDepartment, result.Report.Department)
	assert.Equal(t, models.TierLogged, result.Tier)
}

func TestSubmitPropagatesStoreError(t *testing.T) {
	classifier := &fakeClassifier{
		response: `{"is_relevant": true, "defect_type": "Pothole", "severity_score": 5}`,
	}
	prioritizer := &fakePrioritizer{
		response: `{"priority_index": 50, "assigned_department": "Works"}`,
	}

	svc := New(testConfig(), failingStore{}, classifier, prioritizer, nil)
	_, err := svc.Submit(context.Background(), submission())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotRelevant)
	assert.Contains(t, err.Error(), "failed to save report")
}

var _ store.Store = failingStore{}
