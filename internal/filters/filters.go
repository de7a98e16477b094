// Package filters implements the separable window filters the metrics are
// built on. Borders use half-sample symmetric reflection (d c b a | a b c d).
package filters

import (
	"fmt"
	"math"

	apperrors "go-image-assessor/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Radius is the half width of a Gaussian kernel truncated at truncate standard deviations
func Radius(sigma, truncate float64) int {
	return int(truncate*sigma + 0.5)
}

// GaussianKernel returns normalised weights for offsets -radius..radius
func GaussianKernel(sigma, truncate float64) []float64 {
	radius := Radius(sigma, truncate)
	weights := make([]float64, 2*radius+1)
	s2 := sigma * sigma
	for i := range weights {
		x := float64(i - radius)
		weights[i] = math.Exp(-0.5 / s2 * x * x)
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return weights
}

// Gaussian filters src along both axes and returns a new matrix
func Gaussian(src mat.Matrix, sigma, truncate float64) *mat.Dense {
	weights := GaussianKernel(sigma, truncate)
	return separable(src, weights, len(weights)/2)
}

// Uniform returns the mean over a size x size window centred on every sample.
// For even sizes the window covers [i-size/2, i+size-size/2-1].
func Uniform(src mat.Matrix, size int) *mat.Dense {
	if size < 1 {
		size = 1
	}
	weights := make([]float64, size)
	for i := range weights {
		weights[i] = 1 / float64(size)
	}
	return separable(src, weights, size/2)
}

// Crop removes pad samples from every border. A zero pad keeps the whole matrix.
func Crop(m *mat.Dense, pad int) (*mat.Dense, error) {
	r, c := m.Dims()
	if pad <= 0 {
		return m, nil
	}
	if r <= 2*pad || c <= 2*pad {
		return nil, apperrors.NewShapeError(
			fmt.Sprintf("%dx%d map is too small for a border of %d", r, c, pad), nil)
	}
	return m.Slice(pad, r-pad, pad, c-pad).(*mat.Dense), nil
}

// Mean averages every element of m
func Mean(m *mat.Dense) float64 {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return stat.Mean(data, nil)
}

func separable(src mat.Matrix, weights []float64, left int) *mat.Dense {
	r, c := src.Dims()
	tmp := mat.NewDense(r, c, nil)
	out := mat.NewDense(r, c, nil)

	// rows first, then columns
	line := make([]float64, c)
	padded := make([]float64, c+len(weights)-1)
	res := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(line, i, src)
		correlate(line, weights, left, padded, res)
		tmp.SetRow(i, res)
	}

	line = make([]float64, r)
	padded = make([]float64, r+len(weights)-1)
	res = make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(line, j, tmp)
		correlate(line, weights, left, padded, res)
		out.SetCol(j, res)
	}
	return out
}

// correlate writes sum_k weights[k]*line[i+k-left] into out, reflecting at the borders
func correlate(line, weights []float64, left int, padded, out []float64) {
	n := len(line)
	for i := range padded {
		padded[i] = line[reflect(i-left, n)]
	}
	k := len(weights)
	for i := 0; i < n; i++ {
		out[i] = floats.Dot(weights, padded[i:i+k])
	}
}

func reflect(k, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	k %= period
	if k < 0 {
		k += period
	}
	if k >= n {
		k = period - k - 1
	}
	return k
}
