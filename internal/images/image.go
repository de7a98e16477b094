package images

import (
	"fmt"

	apperrors "go-image-assessor/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// DType is the storage type of the decoded pixel buffer
type DType string

const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// MaxValue returns the largest representable value for integer types and 1 for floats
func (d DType) MaxValue() float64 {
	switch d {
	case Uint8:
		return 255
	case Uint16:
		return 65535
	default:
		return 1
	}
}

// IsInteger reports whether the buffer stores integer samples
func (d DType) IsInteger() bool {
	return d == Uint8 || d == Uint16
}

// Image holds decoded pixel data as one plane per channel.
// A grayscale image is 2-D (height x width); everything else is
// height x width x channels.
type Image struct {
	Path string
	Name string

	planes []*mat.Dense
	dtype  DType
	gray   bool
}

// New builds a 3-D image from per-channel planes
func New(planes []*mat.Dense, dtype DType) (*Image, error) {
	if err := validatePlanes(planes); err != nil {
		return nil, err
	}
	return &Image{planes: planes, dtype: dtype}, nil
}

// NewGray builds a 2-D grayscale image
func NewGray(plane *mat.Dense, dtype DType) (*Image, error) {
	planes := []*mat.Dense{plane}
	if err := validatePlanes(planes); err != nil {
		return nil, err
	}
	return &Image{planes: planes, dtype: dtype, gray: true}, nil
}

func validatePlanes(planes []*mat.Dense) error {
	if len(planes) == 0 {
		return apperrors.NewShapeError("image has no channels", nil)
	}
	var rows, cols int
	for i, p := range planes {
		if p == nil || p.IsEmpty() {
			return apperrors.NewShapeError(fmt.Sprintf("channel %d is empty", i), nil)
		}
		r, c := p.Dims()
		if i == 0 {
			rows, cols = r, c
			continue
		}
		if r != rows || c != cols {
			return apperrors.NewShapeError(
				fmt.Sprintf("channel %d is %dx%d, expected %dx%d", i, r, c, rows, cols), nil)
		}
	}
	return nil
}

// Shape returns [h, w] for grayscale images and [h, w, c] otherwise
func (im *Image) Shape() []int {
	h, w := im.planes[0].Dims()
	if im.gray {
		return []int{h, w}
	}
	return []int{h, w, len(im.planes)}
}

// Dims returns height and width
func (im *Image) Dims() (int, int) {
	return im.planes[0].Dims()
}

// ChannelCount is 1 for 2-D images, else the size of the last axis
func (im *Image) ChannelCount() int {
	if im.gray {
		return 1
	}
	return len(im.planes)
}

func (im *Image) DType() DType { return im.dtype }

// IsGray reports whether the image is stored as a 2-D array
func (im *Image) IsGray() bool { return im.gray }

// Channel returns the stored plane; callers must not modify it
func (im *Image) Channel(i int) (mat.Matrix, error) {
	if i < 0 || i >= len(im.planes) {
		return nil, apperrors.NewShapeError(
			fmt.Sprintf("channel %d out of range for %d-channel image", i, len(im.planes)), nil)
	}
	return im.planes[i], nil
}

// AsFloat returns a float64 copy of every channel. The stored buffer is never touched.
func (im *Image) AsFloat() []*mat.Dense {
	out := make([]*mat.Dense, len(im.planes))
	for i, p := range im.planes {
		out[i] = mat.DenseCopyOf(p)
	}
	return out
}

// Max returns the largest sample over all channels. Planes may be views
// into larger matrices, so only in-view elements are read.
func (im *Image) Max() float64 {
	m := mat.Max(im.planes[0])
	for _, p := range im.planes[1:] {
		if v := mat.Max(p); v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest sample over all channels
func (im *Image) Min() float64 {
	m := mat.Min(im.planes[0])
	for _, p := range im.planes[1:] {
		if v := mat.Min(p); v < m {
			m = v
		}
	}
	return m
}

// Replace swaps the pixel buffer. The new planes must keep the current shape.
func (im *Image) Replace(planes []*mat.Dense, dtype DType) error {
	if err := validatePlanes(planes); err != nil {
		return err
	}
	if len(planes) != len(im.planes) {
		return apperrors.NewShapeError(
			fmt.Sprintf("replacement has %d channels, image has %d", len(planes), len(im.planes)), nil)
	}
	h, w := im.Dims()
	if r, c := planes[0].Dims(); r != h || c != w {
		return apperrors.NewShapeError(
			fmt.Sprintf("replacement is %dx%d, image is %dx%d", r, c, h, w), nil)
	}
	im.planes = planes
	im.dtype = dtype
	return nil
}

// Clone returns a deep copy
func (im *Image) Clone() *Image {
	return &Image{
		Path:   im.Path,
		Name:   im.Name,
		planes: im.AsFloat(),
		dtype:  im.dtype,
		gray:   im.gray,
	}
}

// Crop returns a copy restricted to the region of interest
func (im *Image) Crop(roi ROI) (*Image, error) {
	h, w := im.Dims()
	if err := roi.Validate(w, h); err != nil {
		return nil, err
	}
	planes := make([]*mat.Dense, len(im.planes))
	for i, p := range im.planes {
		view := p.Slice(roi.Y0, roi.Y1, roi.X0, roi.X1)
		planes[i] = mat.DenseCopyOf(view)
	}
	return &Image{
		Path:   im.Path,
		Name:   im.Name,
		planes: planes,
		dtype:  im.dtype,
		gray:   im.gray,
	}, nil
}

// String is used in log fields
func (im *Image) String() string {
	return fmt.Sprintf("%s%v[%s]", im.Name, im.Shape(), im.dtype)
}
