package metrics

import (
	"math"

	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gonum.org/v1/gonum/floats"
)

// MSE is the mean of squared differences over every channel and pixel
type MSE struct{}

func NewMSE() *MSE { return &MSE{} }

func (m *MSE) Name() string { return "MSE" }

func (m *MSE) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	ref, meas := pair.AsFloats()

	var sum float64
	var count int
	for c := range ref {
		a := ref[c].RawMatrix().Data
		b := meas[c].RawMatrix().Data
		diff := make([]float64, len(a))
		floats.SubTo(diff, a, b)
		sum += floats.Dot(diff, diff)
		count += len(a)
	}
	return sum / float64(count), nil
}

// PSNR is the peak signal-to-noise ratio in dB. The peak is the largest
// sample of the reference image. Identical images give +Inf.
type PSNR struct {
	mse MSE
}

func NewPSNR() *PSNR { return &PSNR{} }

func (p *PSNR) Name() string { return "PSNR" }

func (p *PSNR) Analyze(pair *images.Pair) (float64, error) {
	dmax := pair.Reference.Max()

	mse, err := p.mse.Analyze(pair)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20*math.Log10(dmax) - 10*math.Log10(mse), nil
}

func init() {
	Register(Descriptor{
		Name:        "MSE",
		Description: "Mean squared error",
		New: func(operation.Args) (Metric, error) {
			return NewMSE(), nil
		},
	})
	Register(Descriptor{
		Name:        "PSNR",
		Description: "Peak signal-to-noise ratio (dB), peak taken from the reference image",
		New: func(operation.Args) (Metric, error) {
			return NewPSNR(), nil
		},
	})
}
