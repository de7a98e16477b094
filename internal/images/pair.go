package images

import (
	"errors"
	"fmt"

	apperrors "go-image-assessor/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// ErrIndexOutOfRange is returned for positional access other than 0 or 1
var ErrIndexOutOfRange = errors.New("images: pair index out of range")

// Pair couples a reference image with the image whose quality is measured.
// It holds references only; neither image is copied.
type Pair struct {
	Reference *Image
	Measured  *Image
}

func NewPair(reference, measured *Image) *Pair {
	return &Pair{Reference: reference, Measured: measured}
}

// At returns the reference for 0 and the measured image for 1
func (p *Pair) At(i int) (*Image, error) {
	switch i {
	case 0:
		return p.Reference, nil
	case 1:
		return p.Measured, nil
	default:
		return nil, ErrIndexOutOfRange
	}
}

func (p *Pair) Set(i int, img *Image) error {
	switch i {
	case 0:
		p.Reference = img
	case 1:
		p.Measured = img
	default:
		return ErrIndexOutOfRange
	}
	return nil
}

func (p *Pair) MatchingShape() bool {
	a, b := p.Reference.Shape(), p.Measured.Shape()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *Pair) MatchingDType() bool {
	return p.Reference.DType() == p.Measured.DType()
}

// RequireMatchingShape fails with a shape error when per-pixel comparison is impossible
func (p *Pair) RequireMatchingShape() error {
	if !p.MatchingShape() {
		return apperrors.NewShapeError(
			fmt.Sprintf("reference shape %v does not match measured shape %v",
				p.Reference.Shape(), p.Measured.Shape()), nil)
	}
	return nil
}

// AsFloats returns float copies of the reference and measured planes
func (p *Pair) AsFloats() ([]*mat.Dense, []*mat.Dense) {
	return p.Reference.AsFloat(), p.Measured.AsFloat()
}

// Crop returns a new pair with both images restricted to roi
func (p *Pair) Crop(roi ROI) (*Pair, error) {
	ref, err := p.Reference.Crop(roi)
	if err != nil {
		return nil, fmt.Errorf("crop reference: %w", err)
	}
	measured, err := p.Measured.Crop(roi)
	if err != nil {
		return nil, fmt.Errorf("crop measured: %w", err)
	}
	return NewPair(ref, measured), nil
}
