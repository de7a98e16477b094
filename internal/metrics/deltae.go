package metrics

import (
	"fmt"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"github.com/lucasb-eyer/go-colorful"
)

// DeltaE is the mean CIEDE2000 distance between corresponding pixels.
// The first three channels are read as R, G, B and scaled by the reference dtype range.
// Distances are on go-colorful's scale where L spans [0, 1].
type DeltaE struct{}

func NewDeltaE() *DeltaE { return &DeltaE{} }

func (d *DeltaE) Name() string { return "DeltaE" }

func (d *DeltaE) Analyze(pair *images.Pair) (float64, error) {
	if err := pair.RequireMatchingShape(); err != nil {
		return 0, err
	}
	if n := pair.Reference.ChannelCount(); n < 3 {
		return 0, apperrors.NewShapeError(
			fmt.Sprintf("colour difference needs 3 channels, image has %d", n), nil)
	}
	ref, meas := pair.AsFloats()
	scaleRef := 1 / pair.Reference.DType().MaxValue()
	scaleMeas := 1 / pair.Measured.DType().MaxValue()
	rows, cols := ref[0].Dims()

	var total float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c1 := colorful.Color{
				R: ref[0].At(i, j) * scaleRef,
				G: ref[1].At(i, j) * scaleRef,
				B: ref[2].At(i, j) * scaleRef,
			}
			c2 := colorful.Color{
				R: meas[0].At(i, j) * scaleMeas,
				G: meas[1].At(i, j) * scaleMeas,
				B: meas[2].At(i, j) * scaleMeas,
			}
			total += c1.DistanceCIEDE2000(c2)
		}
	}
	return total / float64(rows*cols), nil
}

func init() {
	Register(Descriptor{
		Name:        "DeltaE",
		Description: "Mean CIEDE2000 colour difference over RGB pixels",
		New: func(operation.Args) (Metric, error) {
			return NewDeltaE(), nil
		},
	})
}
