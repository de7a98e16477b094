package filters

import (
	"math"
	"testing"

	apperrors "go-image-assessor/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestRadius(t *testing.T) {
	tests := []struct {
		sigma, truncate float64
		want            int
	}{
		{1.5, 3.5, 5},
		{1.0, 4.0, 4},
		{0.1, 1.0, 0},
		{17.0 / 5, 4.0, 14},
	}
	for _, tc := range tests {
		if got := Radius(tc.sigma, tc.truncate); got != tc.want {
			t.Errorf("Radius(%v, %v) = %d, want %d", tc.sigma, tc.truncate, got, tc.want)
		}
	}
}

func TestGaussianKernel(t *testing.T) {
	k := GaussianKernel(1.5, 3.5)
	if len(k) != 11 {
		t.Fatalf("Expected 11 taps, got %d", len(k))
	}
	if math.Abs(floats.Sum(k)-1) > 1e-12 {
		t.Errorf("Kernel must be normalised, sum=%v", floats.Sum(k))
	}
	for i := 0; i < len(k)/2; i++ {
		if k[i] != k[len(k)-1-i] {
			t.Errorf("Kernel must be symmetric at %d", i)
		}
	}
	if floats.MaxIdx(k) != 5 {
		t.Errorf("Peak must be centred, got index %d", floats.MaxIdx(k))
	}
}

func TestGaussian_ConstantPreserved(t *testing.T) {
	src := mat.NewDense(6, 7, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 7; j++ {
			src.Set(i, j, 42)
		}
	}
	out := Gaussian(src, 1.5, 3.5)
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(out.At(i, j)-42) > 1e-9 {
				t.Fatalf("Constant image changed at (%d,%d): %v", i, j, out.At(i, j))
			}
		}
	}
}

func TestUniform_ReflectBorders(t *testing.T) {
	// single row [1 2 3 4], size 3, reflect padding gives 1 | 1 2 3 4 | 4
	src := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	out := Uniform(src, 3)
	want := []float64{4.0 / 3, 2, 3, 11.0 / 3}
	for j, w := range want {
		if math.Abs(out.At(0, j)-w) > 1e-12 {
			t.Errorf("Uniform at %d = %v, want %v", j, out.At(0, j), w)
		}
	}

	// even size window covers [i-1, i]
	out = Uniform(src, 2)
	want = []float64{1, 1.5, 2.5, 3.5}
	for j, w := range want {
		if math.Abs(out.At(0, j)-w) > 1e-12 {
			t.Errorf("Uniform(2) at %d = %v, want %v", j, out.At(0, j), w)
		}
	}
}

func TestReflect(t *testing.T) {
	tests := []struct{ k, n, want int }{
		{-1, 4, 0},
		{-2, 4, 1},
		{4, 4, 3},
		{5, 4, 2},
		{-5, 4, 3},
		{9, 4, 1},
		{-3, 1, 0},
	}
	for _, tc := range tests {
		if got := reflect(tc.k, tc.n); got != tc.want {
			t.Errorf("reflect(%d, %d) = %d, want %d", tc.k, tc.n, got, tc.want)
		}
	}
}

func TestCrop(t *testing.T) {
	m := mat.NewDense(5, 5, nil)
	m.Set(2, 2, 9)

	whole, err := Crop(m, 0)
	if err != nil || whole != m {
		t.Errorf("Zero pad must return the whole map, err=%v", err)
	}

	inner, err := Crop(m, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := inner.Dims(); r != 1 || c != 1 || inner.At(0, 0) != 9 {
		t.Errorf("Unexpected crop %dx%d", r, c)
	}
	if Mean(inner) != 9 {
		t.Errorf("Expected mean 9, got %v", Mean(inner))
	}

	if _, err := Crop(m, 3); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected shape error for empty crop, got %v", err)
	}
}
