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

type UIQIOptions struct {
	ChannelCount int
	// BlockSize is the side of the sliding window
	BlockSize int
}

func DefaultUIQIOptions() UIQIOptions {
	return UIQIOptions{BlockSize: 8}
}

func (o UIQIOptions) Validate() error {
	if err := validateChannelCount(o.ChannelCount); err != nil {
		return err
	}
	if o.BlockSize < 1 {
		return apperrors.NewConfigurationError(fmt.Sprintf("block size must be >= 1, got %d", o.BlockSize), nil)
	}
	return nil
}

// UIQI is the universal image quality index of Wang and Bovik
type UIQI struct {
	opts UIQIOptions
}

func NewUIQI(opts UIQIOptions) (*UIQI, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &UIQI{opts: opts}, nil
}

func (u *UIQI) Name() string { return "UIQI" }

func (u *UIQI) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	n, err := channelsToAnalyze(u.opts.ChannelCount, pair)
	if err != nil {
		return 0, err
	}
	ref, meas := pair.AsFloats()

	results := make([]float64, n)
	for c := 0; c < n; c++ {
		v, err := u.singleChannel(ref[c], meas[c])
		if err != nil {
			return 0, fmt.Errorf("channel %d: %w", c, err)
		}
		results[c] = v
	}
	return stat.Mean(results, nil), nil
}

func (u *UIQI) singleChannel(x, y *mat.Dense) (float64, error) {
	size := u.opts.BlockSize
	n := float64(size * size)

	// window means of x, y, x², y², xy
	m1 := filters.Uniform(x, size)
	m2 := filters.Uniform(y, size)
	m11 := filters.Uniform(product(x, x), size)
	m22 := filters.Uniform(product(y, y), size)
	m12 := filters.Uniform(product(x, y), size)

	r, c := x.Dims()
	q := mat.NewDense(r, c, nil)
	q.Apply(func(i, j int, _ float64) float64 {
		mul := m1.At(i, j) * m2.At(i, j)
		sq := m1.At(i, j)*m1.At(i, j) + m2.At(i, j)*m2.At(i, j)
		numerator := 4 * (n*m12.At(i, j) - mul) * mul
		denominator1 := n*(m11.At(i, j)+m22.At(i, j)) - sq
		denominator := denominator1 * sq

		v := 1.0
		if denominator1 == 0 && sq != 0 {
			v = 2 * mul / sq
		}
		// takes precedence over the branch above
		if denominator != 0 {
			v = numerator / denominator
		}
		return v
	}, q)

	cropped, err := filters.Crop(q, size/2)
	if err != nil {
		return 0, err
	}
	return filters.Mean(cropped), nil
}

func init() {
	Register(Descriptor{
		Name:        "UIQI",
		Description: "Universal image quality index over a sliding square window",
		Params: []operation.Param{
			channelCountParam,
			{Name: "block_size", Type: operation.TypeInt, Default: DefaultUIQIOptions().BlockSize, Constraint: ">= 1", Description: "sliding window side"},
		},
		New: func(args operation.Args) (Metric, error) {
			opts := DefaultUIQIOptions()
			var err error
			if opts.ChannelCount, err = args.Int("channels_num", 0); err != nil {
				return nil, err
			}
			if opts.BlockSize, err = args.Int("block_size", opts.BlockSize); err != nil {
				return nil, err
			}
			return NewUIQI(opts)
		},
	})
}
