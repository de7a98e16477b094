package metrics

import (
	"fmt"
	"math"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"
)

type SAMOptions struct {
	// ToDegrees reports the mean angle in degrees instead of radians
	ToDegrees bool
}

func DefaultSAMOptions() SAMOptions {
	return SAMOptions{ToDegrees: true}
}

// SAM is the mean spectral angle between the channel vectors of each pixel
type SAM struct {
	opts SAMOptions
}

func NewSAM(opts SAMOptions) *SAM {
	return &SAM{opts: opts}
}

func (s *SAM) Name() string { return "SAM" }

func (s *SAM) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	if n := pair.Reference.ChannelCount(); n < 2 {
		return 0, apperrors.NewShapeError(
			fmt.Sprintf("spectral angle needs at least 2 channels, image has %d", n), nil)
	}
	ref, meas := pair.AsFloats()
	rows, cols := ref[0].Dims()

	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var dot, n1, n2 float64
			for c := range ref {
				a, b := ref[c].At(i, j), meas[c].At(i, j)
				dot += a * b
				n1 += a * a
				n2 += b * b
			}
			cos := dot / (math.Sqrt(n1) * math.Sqrt(n2))
			angle := math.Acos(math.Max(-1, math.Min(1, cos)))
			// zero vectors
			if math.IsNaN(angle) {
				continue
			}
			if s.opts.ToDegrees {
				angle *= 180 / math.Pi
			}
			sum += angle
		}
	}
	return sum / float64(rows*cols), nil
}

func init() {
	Register(Descriptor{
		Name:        "SAM",
		Description: "Spectral angle mapper, mean angle between per-pixel channel vectors",
		Params: []operation.Param{
			{Name: "to_degrees", Type: operation.TypeBool, Default: true, Description: "report degrees instead of radians"},
		},
		New: func(args operation.Args) (Metric, error) {
			opts := DefaultSAMOptions()
			var err error
			if opts.ToDegrees, err = args.Bool("to_degrees", opts.ToDegrees); err != nil {
				return nil, err
			}
			return NewSAM(opts), nil
		},
	})
}
