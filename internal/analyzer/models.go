package analyzer

import "time"

// Result is the outcome of one metric; Err is set instead of Value on failure
type Result struct {
	Metric   string
	Value    float64
	Err      error
	Duration time.Duration
}

// Values maps metric names to successful values; a repeated name keeps the last
func Values(results []Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	for _, r := range results {
		if r.Err == nil {
			out[r.Metric] = r.Value
		}
	}
	return out
}
