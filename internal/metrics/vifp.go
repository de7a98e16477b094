package metrics

import (
	"fmt"
	"math"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/filters"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	vifpScales   = 4
	vifpEps      = 1e-10
	vifpTruncate = 4.0
)

type VIFPOptions struct {
	ChannelCount int
	// Sigma is the variance of the visual noise
	Sigma float64
}

func DefaultVIFPOptions() VIFPOptions {
	return VIFPOptions{Sigma: 2.0}
}

func (o VIFPOptions) Validate() error {
	if err := validateChannelCount(o.ChannelCount); err != nil {
		return err
	}
	if o.Sigma <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("sigma must be positive, got %v", o.Sigma), nil)
	}
	return nil
}

// VIFP is pixel-domain visual information fidelity over four scales
type VIFP struct {
	opts VIFPOptions
}

func NewVIFP(opts VIFPOptions) (*VIFP, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &VIFP{opts: opts}, nil
}

func (v *VIFP) Name() string { return "VIFP" }

func (v *VIFP) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	n, err := channelsToAnalyze(v.opts.ChannelCount, pair)
	if err != nil {
		return 0, err
	}
	ref, meas := pair.AsFloats()

	results := make([]float64, n)
	for c := 0; c < n; c++ {
		r := v.singleChannel(ref[c], meas[c])
		// a channel carrying no information contributes zero
		if math.IsNaN(r) {
			r = 0
		}
		results[c] = r
	}
	return stat.Mean(results, nil), nil
}

func (v *VIFP) singleChannel(x, y *mat.Dense) float64 {
	var num, den float64
	rows, cols := x.Dims()

	for scale := 1; scale <= vifpScales; scale++ {
		size := (1 << (5 - scale)) + 1
		sd := float64(size) / 5

		if scale > 1 {
			x = filters.Gaussian(x, sd, vifpTruncate)
			y = filters.Gaussian(y, sd, vifpTruncate)
		}

		mu1 := filters.Gaussian(x, sd, vifpTruncate)
		mu2 := filters.Gaussian(y, sd, vifpTruncate)
		e11 := filters.Gaussian(product(x, x), sd, vifpTruncate)
		e22 := filters.Gaussian(product(y, y), sd, vifpTruncate)
		e12 := filters.Gaussian(product(x, y), sd, vifpTruncate)

		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				m1, m2 := mu1.At(i, j), mu2.At(i, j)
				s1 := math.Max(e11.At(i, j)-m1*m1, 0)
				s2 := math.Max(e22.At(i, j)-m2*m2, 0)
				s12 := e12.At(i, j) - m1*m2

				g := s12 / (s1 + vifpEps)
				sv := s2 - g*s12

				if s1 < vifpEps {
					g = 0
					sv = s2
					s1 = 0
				}
				if s2 < vifpEps {
					g = 0
					sv = 0
				}
				if g < 0 {
					sv = s2
					g = 0
				}
				if sv <= vifpEps {
					sv = vifpEps
				}

				num += math.Log10(1 + g*g*s1/(sv+v.opts.Sigma))
				den += math.Log10(1 + s1/v.opts.Sigma)
			}
		}
	}
	return num / den
}

func init() {
	Register(Descriptor{
		Name:        "VIFP",
		Description: "Pixel-based visual information fidelity",
		Params: []operation.Param{
			channelCountParam,
			{Name: "sigma", Type: operation.TypeFloat, Default: DefaultVIFPOptions().Sigma, Constraint: "> 0", Description: "visual noise variance"},
		},
		New: func(args operation.Args) (Metric, error) {
			opts := DefaultVIFPOptions()
			var err error
			if opts.ChannelCount, err = args.Int("channels_num", 0); err != nil {
				return nil, err
			}
			if opts.Sigma, err = args.Float("sigma", opts.Sigma); err != nil {
				return nil, err
			}
			return NewVIFP(opts)
		},
	})
}
