package analyzer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// createTestPair builds a gray reference and a measured copy offset by delta
func createTestPair(t *testing.T, width, height int, delta float64) *images.Pair {
	t.Helper()
	ref := mat.NewDense(height, width, nil)
	meas := mat.NewDense(height, width, nil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64((x*7 + y*13) % 200)
			ref.Set(y, x, v)
			meas.Set(y, x, v+delta)
		}
	}
	r, err := images.NewGray(ref, images.Uint8)
	if err != nil {
		t.Fatal(err)
	}
	m, err := images.NewGray(meas, images.Uint8)
	if err != nil {
		t.Fatal(err)
	}
	return images.NewPair(r, m)
}

// fakeMetric returns a fixed value or error, optionally after a delay or with a panic
type fakeMetric struct {
	name  string
	value float64
	err   error
	delay time.Duration
	panic bool
}

func (f *fakeMetric) Name() string { return f.name }

func (f *fakeMetric) Analyze(*images.Pair) (float64, error) {
	time.Sleep(f.delay)
	if f.panic {
		panic("broken metric")
	}
	return f.value, f.err
}

func TestRun_RealMetrics(t *testing.T) {
	a := NewPairAnalyzer(DefaultOptions().WithWorkers(2))
	defer a.Close()

	pair := createTestPair(t, 16, 16, 10)
	ms := []metrics.Metric{metrics.NewMSE(), metrics.NewPSNR()}

	for _, opts := range []AnalysisOptions{DefaultOptions(), SequentialOptions()} {
		results, err := a.Run(context.Background(), pair, ms, opts)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(results) != 2 || results[0].Metric != "MSE" || results[1].Metric != "PSNR" {
			t.Fatalf("Results out of order: %+v", results)
		}
		if results[0].Value != 100 {
			t.Errorf("Expected MSE 100, got %v", results[0].Value)
		}
		want := 20*math.Log10(pair.Reference.Max()) - 20
		if math.Abs(results[1].Value-want) > 1e-9 {
			t.Errorf("Expected PSNR %v, got %v", want, results[1].Value)
		}
	}
}

func TestRun_PerMetricErrors(t *testing.T) {
	a := NewPairAnalyzer(DefaultOptions())
	defer a.Close()

	shapeErr := apperrors.NewShapeError("too small", nil)
	ms := []metrics.Metric{
		&fakeMetric{name: "A", value: 1},
		&fakeMetric{name: "B", err: shapeErr},
		&fakeMetric{name: "C", panic: true},
		&fakeMetric{name: "D", value: 4},
	}
	pair := createTestPair(t, 4, 4, 0)

	results, err := a.Run(context.Background(), pair, ms, DefaultOptions())
	if err != nil {
		t.Fatalf("Errors must stay per metric without FailFast, got %v", err)
	}
	if results[0].Value != 1 || results[3].Value != 4 {
		t.Errorf("Unexpected values %+v", results)
	}
	if !errors.Is(results[1].Err, shapeErr) {
		t.Errorf("Expected shape error for B, got %v", results[1].Err)
	}
	if !apperrors.IsType(results[2].Err, apperrors.ErrorTypeInternal) {
		t.Errorf("Expected internal error for the panicking metric, got %v", results[2].Err)
	}

	values := Values(results)
	if len(values) != 2 || values["A"] != 1 || values["D"] != 4 {
		t.Errorf("Unexpected values map %v", values)
	}

	_, err = a.Run(context.Background(), pair, ms, DefaultOptions().WithFailFast())
	if !errors.Is(err, shapeErr) {
		t.Errorf("Expected FailFast to return the first error in order, got %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	a := NewPairAnalyzer(DefaultOptions().WithWorkers(2))
	defer a.Close()

	ms := []metrics.Metric{
		&fakeMetric{name: "slow1", delay: 300 * time.Millisecond},
		&fakeMetric{name: "slow2", delay: 300 * time.Millisecond},
	}
	pair := createTestPair(t, 4, 4, 0)

	start := time.Now()
	_, err := a.Run(context.Background(), pair, ms, DefaultOptions().WithTimeout(20*time.Millisecond))
	if !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		t.Errorf("Expected timeout error, got %v", err)
	}
	if time.Since(start) > 250*time.Millisecond {
		t.Error("Run must return when the context expires")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Run(ctx, pair, ms, SequentialOptions()); !apperrors.IsType(err, apperrors.ErrorTypeProcessing) {
		t.Errorf("Expected cancellation error, got %v", err)
	}
}

func TestRun_IncompletePair(t *testing.T) {
	a := NewPairAnalyzer(DefaultOptions())
	defer a.Close()

	pair := createTestPair(t, 4, 4, 0)
	pair.Measured = nil
	if _, err := a.Run(context.Background(), pair, nil, DefaultOptions()); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestRun_AfterClose(t *testing.T) {
	a := NewPairAnalyzer(DefaultOptions())
	a.Close()

	ms := []metrics.Metric{&fakeMetric{name: "A", value: 1}, &fakeMetric{name: "B", value: 2}}
	results, err := a.Run(context.Background(), createTestPair(t, 4, 4, 0), ms, DefaultOptions())
	if err != nil {
		t.Fatalf("Expected inline execution after Close, got %v", err)
	}
	if results[1].Value != 2 {
		t.Errorf("Unexpected results %+v", results)
	}
}
