package analyzer

import "time"

// AnalysisOptions configures how a set of metrics runs against one pair
type AnalysisOptions struct {
	// Performance options
	UseWorkerPool bool
	MaxWorkers    int // pool size, 0 means runtime.NumCPU

	// FailFast turns the first metric error (in request order) into the run error
	FailFast bool

	// Timeout bounds the whole run; 0 means only the caller's context applies
	Timeout time.Duration
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		UseWorkerPool: true,
		MaxWorkers:    0,
		FailFast:      false,
	}
}

// SequentialOptions runs metrics one after another on the calling goroutine
func SequentialOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.UseWorkerPool = false
	return opts
}

// WithWorkers sets the pool size
func (opts AnalysisOptions) WithWorkers(n int) AnalysisOptions {
	opts.MaxWorkers = n
	return opts
}

// WithFailFast makes any metric error fail the run
func (opts AnalysisOptions) WithFailFast() AnalysisOptions {
	opts.FailFast = true
	return opts
}

// WithTimeout bounds the run
func (opts AnalysisOptions) WithTimeout(d time.Duration) AnalysisOptions {
	opts.Timeout = d
	return opts
}

// WithoutWorkerPool disables parallel execution
func (opts AnalysisOptions) WithoutWorkerPool() AnalysisOptions {
	opts.UseWorkerPool = false
	return opts
}
