package analyzer

import (
	"context"

	"go-image-assessor/internal/images"
	"go-image-assessor/internal/metrics"
)

// PairAnalyzer runs metrics against an image pair
type PairAnalyzer interface {
	// Run returns one result per metric, in the order given
	Run(ctx context.Context, pair *images.Pair, ms []metrics.Metric, options AnalysisOptions) ([]Result, error)

	// Lifecycle management
	Close() error
}
