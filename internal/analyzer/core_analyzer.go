package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/metrics"

	"github.com/sirupsen/logrus"
)

// coreAnalyzer fans metrics out over a shared worker pool
type coreAnalyzer struct {
	workerPool *WorkerPool
	log        *logrus.Entry
}

// NewPairAnalyzer starts a pool sized by options.MaxWorkers
func NewPairAnalyzer(options AnalysisOptions) PairAnalyzer {
	workerPool := NewWorkerPool(options.MaxWorkers)
	workerPool.Start()

	return &coreAnalyzer{
		workerPool: workerPool,
		log:        logger.WithComponent("analyzer"),
	}
}

func (ca *coreAnalyzer) Run(ctx context.Context, pair *images.Pair, ms []metrics.Metric, options AnalysisOptions) ([]Result, error) {
	if pair == nil || pair.Reference == nil || pair.Measured == nil {
		return nil, apperrors.NewValidationError("image pair is incomplete", nil)
	}
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]Result, len(ms))

	var err error
	if options.UseWorkerPool && len(ms) > 1 {
		err = ca.runPooled(ctx, pair, ms, results)
	} else {
		err = ca.runSequential(ctx, pair, ms, results)
	}
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	ca.log.WithFields(logrus.Fields{
		"metrics":            len(ms),
		"failed":             failed,
		"pooled":             options.UseWorkerPool && len(ms) > 1,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}).Debug("Metrics computed")

	if options.FailFast {
		for _, r := range results {
			if r.Err != nil {
				return results, fmt.Errorf("%s: %w", r.Metric, r.Err)
			}
		}
	}
	return results, nil
}

func (ca *coreAnalyzer) runSequential(ctx context.Context, pair *images.Pair, ms []metrics.Metric, results []Result) error {
	for i, m := range ms {
		if err := ctx.Err(); err != nil {
			return contextError(err)
		}
		results[i] = analyze(m, pair)
	}
	return nil
}

// runPooled waits on its own jobs only; the pool is shared between runs
func (ca *coreAnalyzer) runPooled(ctx context.Context, pair *images.Pair, ms []metrics.Metric, results []Result) error {
	out := make([]Result, len(ms))
	var wg sync.WaitGroup

	for i, m := range ms {
		wg.Add(1)
		job := func() {
			defer wg.Done()
			out[i] = analyze(m, pair)
		}
		if !ca.workerPool.Submit(job) {
			job()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		copy(results, out)
		return nil
	case <-ctx.Done():
		// Metrics are not interruptible; abandoned jobs finish into out
		return contextError(ctx.Err())
	}
}

// analyze runs one metric and converts a panic into an internal error
func analyze(m metrics.Metric, pair *images.Pair) (r Result) {
	r.Metric = m.Name()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.Err = apperrors.NewInternalError(fmt.Sprintf("metric %s panicked: %v", r.Metric, p), nil)
		}
		r.Duration = time.Since(start)
	}()

	r.Value, r.Err = m.Analyze(pair)
	return r
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("analysis timed out", err)
	}
	return apperrors.NewProcessingError("analysis cancelled", err)
}

// Close stops the worker pool
func (ca *coreAnalyzer) Close() error {
	ca.workerPool.Close()
	return nil
}
