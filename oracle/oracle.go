package oracle

import (
	"context"

	"municipal-sentinel/models"
)

// Classifier abstracts the vision oracle that inspects a scene photo.
// Implementations return a single JSON string per the classifier schema
// and must be concurrency-safe if used across goroutines.
type Classifier interface {
	// ClassifyImage takes raw image bytes and optional user notes,
	// and returns the oracle's JSON response.
	ClassifyImage(ctx context.Context, imageData []byte, notes string) (string, error)
	// SourceName returns a short provider label (e.g., "Gemini", "Stub").
	SourceName() string
}

// Prioritizer abstracts the planner oracle that converts a classification
// and a location context into a dispatch priority.
type Prioritizer interface {
	// PrioritizeDefect returns the oracle's JSON response for the given
	// classification and location context tag (e.g., "Highway").
	PrioritizeDefect(ctx context.Context, cls *models.Classification, locationContext string) (string, error)
}
