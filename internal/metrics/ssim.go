package metrics

import (
	"fmt"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/filters"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SSIMOptions configures the structural similarity index
type SSIMOptions struct {
	// ChannelCount limits the channels analyzed; 0 uses the image's own count
	ChannelCount int
	// Sigma is the standard deviation of the Gaussian weighting window
	Sigma float64
	// Truncate cuts the window at this many standard deviations
	Truncate float64
	K1       float64
	K2       float64
}

// DefaultSSIMOptions returns the values from Wang et al.
func DefaultSSIMOptions() SSIMOptions {
	return SSIMOptions{
		Sigma:    1.5,
		Truncate: 3.5,
		K1:       0.01,
		K2:       0.03,
	}
}

func (o SSIMOptions) Validate() error {
	if err := validateChannelCount(o.ChannelCount); err != nil {
		return err
	}
	if o.Sigma <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("sigma must be positive, got %v", o.Sigma), nil)
	}
	if o.Truncate <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("truncate must be positive, got %v", o.Truncate), nil)
	}
	if o.K1 < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("K1 must be non-negative, got %v", o.K1), nil)
	}
	if o.K2 < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("K2 must be non-negative, got %v", o.K2), nil)
	}
	return nil
}

// SSIM is the mean structural similarity over a Gaussian-weighted window
type SSIM struct {
	opts SSIMOptions
}

func NewSSIM(opts SSIMOptions) (*SSIM, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &SSIM{opts: opts}, nil
}

func (s *SSIM) Name() string { return "SSIM" }

func (s *SSIM) Options() SSIMOptions { return s.opts }

func (s *SSIM) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	n, err := channelsToAnalyze(s.opts.ChannelCount, pair)
	if err != nil {
		return 0, err
	}
	ref, meas := pair.AsFloats()

	results := make([]float64, n)
	for c := 0; c < n; c++ {
		v, err := s.singleChannel(ref[c], meas[c])
		if err != nil {
			return 0, fmt.Errorf("channel %d: %w", c, err)
		}
		results[c] = v
	}
	return stat.Mean(results, nil), nil
}

func (s *SSIM) singleChannel(x, y *mat.Dense) (float64, error) {
	drange := mat.Max(x) - mat.Min(x)

	sigma, truncate := s.opts.Sigma, s.opts.Truncate
	ux := filters.Gaussian(x, sigma, truncate)
	uy := filters.Gaussian(y, sigma, truncate)
	uxx := filters.Gaussian(product(x, x), sigma, truncate)
	uyy := filters.Gaussian(product(y, y), sigma, truncate)
	uxy := filters.Gaussian(product(x, y), sigma, truncate)

	c1 := (s.opts.K1 * drange) * (s.opts.K1 * drange)
	c2 := (s.opts.K2 * drange) * (s.opts.K2 * drange)

	r, c := x.Dims()
	smap := mat.NewDense(r, c, nil)
	smap.Apply(func(i, j int, _ float64) float64 {
		mx, my := ux.At(i, j), uy.At(i, j)
		vx := uxx.At(i, j) - mx*mx
		vy := uyy.At(i, j) - my*my
		vxy := uxy.At(i, j) - mx*my

		a1 := 2*mx*my + c1
		a2 := 2*vxy + c2
		b1 := mx*mx + my*my + c1
		b2 := vx + vy + c2
		return (a1 * a2) / (b1 * b2)
	}, smap)

	cropped, err := filters.Crop(smap, filters.Radius(sigma, truncate))
	if err != nil {
		return 0, err
	}
	return filters.Mean(cropped), nil
}

// product returns the elementwise product a*b
func product(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

func init() {
	def := DefaultSSIMOptions()
	Register(Descriptor{
		Name:        "SSIM",
		Description: "Structural similarity index, averaged over channels",
		Params: []operation.Param{
			channelCountParam,
			{Name: "sigma", Type: operation.TypeFloat, Default: def.Sigma, Constraint: "> 0", Description: "Gaussian window standard deviation"},
			{Name: "truncate", Type: operation.TypeFloat, Default: def.Truncate, Constraint: "> 0", Description: "window radius in standard deviations"},
			{Name: "K1", Type: operation.TypeFloat, Default: def.K1, Constraint: ">= 0", Description: "luminance stability constant"},
			{Name: "K2", Type: operation.TypeFloat, Default: def.K2, Constraint: ">= 0", Description: "contrast stability constant"},
		},
		New: func(args operation.Args) (Metric, error) {
			opts := DefaultSSIMOptions()
			var err error
			if opts.ChannelCount, err = args.Int("channels_num", 0); err != nil {
				return nil, err
			}
			if opts.Sigma, err = args.Float("sigma", opts.Sigma); err != nil {
				return nil, err
			}
			if opts.Truncate, err = args.Float("truncate", opts.Truncate); err != nil {
				return nil, err
			}
			if opts.K1, err = args.Float("K1", opts.K1); err != nil {
				return nil, err
			}
			if opts.K2, err = args.Float("K2", opts.K2); err != nil {
				return nil, err
			}
			return NewSSIM(opts)
		},
	})
}
