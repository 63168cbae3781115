package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"

	"municipal-sentinel/config"
	"municipal-sentinel/metrics"
	"municipal-sentinel/models"
	"municipal-sentinel/oracle"
	"municipal-sentinel/parser"
	"municipal-sentinel/rabbitmq"
	"municipal-sentinel/store"
)

// ErrNotRelevant is returned when the classifier explicitly determines
// the image is unrelated to infrastructure. No report is created and the
// prioritizer is never invoked.
var ErrNotRelevant = errors.New("image is not related to municipal infrastructure")

// Submission is a raw citizen submission entering the triage pipeline.
type Submission struct {
	Image           []byte
	Latitude        float64
	Longitude       float64
	LocationContext string
	LocationName    string
	UserNotes       string
	Reporter        string
}

// Result is a completed triage: the stored report plus derived signals
// for user-facing messaging.
type Result struct {
	Report *models.Report `json:"report"`
	Tier   string         `json:"tier"`
	// Degraded is set when an oracle failed and the report carries
	// default values instead of a real assessment.
	Degraded bool `json:"degraded,omitempty"`
}

// Service is the triage pipeline: classify, gate on relevance,
// prioritize, store, publish.
type Service struct {
	cfg         *config.Config
	store       store.Store
	classifier  oracle.Classifier
	prioritizer oracle.Prioritizer
	publisher   *rabbitmq.Publisher
}

// New creates the triage pipeline. publisher may be nil to disable
// dispatch publishing.
func New(cfg *config.Config, st store.Store, classifier oracle.Classifier, prioritizer oracle.Prioritizer, publisher *rabbitmq.Publisher) *Service {
	return &Service{
		cfg:         cfg,
		store:       st,
		classifier:  classifier,
		prioritizer: prioritizer,
		publisher:   publisher,
	}
}

// Submit runs a submission through the pipeline. Oracle failures degrade
// to default report fields; a non-relevant image returns ErrNotRelevant;
// store failures propagate so the caller can retry the submission.
func (s *Service) Submit(ctx context.Context, sub *Submission) (*Result, error) {
	degraded := false

	cls, err := s.classify(ctx, sub)
	if err != nil {
		log.Errorf("Classifier %s failed, degrading to defaults: %v", s.classifier.SourceName(), err)
		metrics.OracleErrorsTotal.WithLabelValues("classifier").Inc()
		degraded = true
		cls = &models.Classification{IsRelevant: true}
	}

	if !cls.IsRelevant {
		log.Infof("Submission from %s rejected: not infrastructure-related", sub.Reporter)
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNotRelevant
	}

	pri, err := s.prioritize(ctx, cls, sub.LocationContext)
	if err != nil {
		log.Errorf("Prioritizer failed, degrading to defaults: %v", err)
		metrics.OracleErrorsTotal.WithLabelValues("prioritizer").Inc()
		degraded = true
		pri = &models.Prioritization{}
	}

	report, err := s.store.CreateReport(ctx, &models.ReportDraft{
		Latitude:       sub.Latitude,
		Longitude:      sub.Longitude,
		Classification: cls,
		Prioritization: pri,
		Reporter:       sub.Reporter,
		LocationName:   sub.LocationName,
		UserNotes:      sub.UserNotes,
	})
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	outcome := "created"
	if degraded {
		outcome = "degraded"
	}
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	log.Infof("Report %s created: %s at %f,%f priority %.1f dept %s",
		report.ID, report.DefectType, report.Latitude, report.Longitude,
		report.PriorityIndex, report.Department)

	s.publishReport(report)

	return &Result{
		Report:   report,
		Tier:     models.PriorityTier(report.PriorityIndex),
		Degraded: degraded,
	}, nil
}

func (s *Service) classify(ctx context.Context, sub *Submission) (*models.Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.classifier.ClassifyImage(callCtx, sub.Image, sub.UserNotes)
	metrics.OracleRequestDuration.WithLabelValues("classifier").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return parser.ParseClassification(raw), nil
}

func (s *Service) prioritize(ctx context.Context, cls *models.Classification, locationContext string) (*models.Prioritization, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.prioritizer.PrioritizeDefect(callCtx, cls, locationContext)
	metrics.OracleRequestDuration.WithLabelValues("prioritizer").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return parser.ParsePrioritization(raw), nil
}

// publishReport publishes a created report for downstream dispatch.
func (s *Service) publishReport(report *models.Report) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(report); err != nil {
		log.Errorf("Failed to publish report %s for dispatch: %v", report.ID, err)
		return
	}
	log.Infof("Successfully published report %s for dispatch", report.ID)
}
