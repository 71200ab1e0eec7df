package model

import "context"

// Classifier defines the standard interface for an ML classification backend.
type Classifier interface {
	// Classify sends a feature vector to the model and returns its signal.
	// A failure to reach the model or decode its response is reported as
	// ErrModelUnavailable.
	Classify(ctx context.Context, features []float64) (ClassificationSignal, error)
}
