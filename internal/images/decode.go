package images

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	apperrors "go-image-assessor/internal/errors"

	// Register decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gonum.org/v1/gonum/mat"
)

// Mode controls the layout of decoded images
type Mode string

const (
	// ModeColor always yields a 3-channel 8-bit image; grayscale sources are expanded
	ModeColor Mode = "color"
	// ModeUnchanged keeps grayscale as 2-D, keeps alpha and 16-bit depth
	ModeUnchanged Mode = "unchanged"
)

// ParseMode maps a config value to a Mode; empty means ModeColor
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeColor:
		return ModeColor, nil
	case ModeUnchanged:
		return ModeUnchanged, nil
	}
	return "", apperrors.NewConfigurationError(fmt.Sprintf("unknown load mode %q", s), nil)
}

// Load reads and decodes the image file at path
func Load(path string, mode Mode) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("cannot open image path %q", path), err)
		}
		return nil, apperrors.NewDecodeError(fmt.Sprintf("cannot open image path %q", path), err)
	}
	defer f.Close()

	img, err := Decode(f, mode)
	if err != nil {
		return nil, err
	}
	img.Path = path
	img.Name = filepath.Base(path)
	return img, nil
}

// Decode decodes any registered format from r
func Decode(r io.Reader, mode Mode) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode image", err)
	}
	img, err := FromImage(src, mode)
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("failed to convert %s image", format), err)
	}
	return img, nil
}

// FromImage converts a Go image into planes laid out according to mode
func FromImage(src image.Image, mode Mode) (*Image, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, apperrors.NewShapeError("image has no pixels", nil)
	}

	switch g := src.(type) {
	case *image.Gray:
		plane := mat.NewDense(h, w, nil)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane.Set(y, x, float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
		return grayOrExpanded(plane, Uint8, mode)
	case *image.Gray16:
		plane := mat.NewDense(h, w, nil)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				plane.Set(y, x, float64(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
		if mode == ModeColor {
			plane.Apply(func(_, _ int, v float64) float64 { return float64(uint16(v) >> 8) }, plane)
			return grayOrExpanded(plane, Uint8, mode)
		}
		return grayOrExpanded(plane, Uint16, mode)
	}

	channels := 3
	if mode == ModeUnchanged && hasAlpha(src) {
		channels = 4
	}
	dtype := Uint8
	if mode == ModeUnchanged && is16Bit(src) {
		dtype = Uint16
	}

	planes := make([]*mat.Dense, channels)
	for i := range planes {
		planes[i] = mat.NewDense(h, w, nil)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			samples := [4]uint16{c.R, c.G, c.B, c.A}
			for i := 0; i < channels; i++ {
				v := samples[i]
				if dtype == Uint8 {
					v >>= 8
				}
				planes[i].Set(y, x, float64(v))
			}
		}
	}
	return New(planes, dtype)
}

func grayOrExpanded(plane *mat.Dense, dtype DType, mode Mode) (*Image, error) {
	if mode == ModeUnchanged {
		return NewGray(plane, dtype)
	}
	return New([]*mat.Dense{plane, mat.DenseCopyOf(plane), mat.DenseCopyOf(plane)}, dtype)
}

func hasAlpha(src image.Image) bool {
	if o, ok := src.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

func is16Bit(src image.Image) bool {
	switch src.(type) {
	case *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}

// ToImage converts an integer image back to a Go image.
// Float buffers and channel counts other than 1, 3 and 4 are rejected.
func (im *Image) ToImage() (image.Image, error) {
	if !im.dtype.IsInteger() {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("cannot convert %s image, integer samples required", im.dtype), nil)
	}
	h, w := im.Dims()
	rect := image.Rect(0, 0, w, h)
	n := len(im.planes)

	switch {
	case n == 1 && im.dtype == Uint8:
		out := image.NewGray(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray(x, y, color.Gray{Y: clamp8(im.planes[0].At(y, x))})
			}
		}
		return out, nil
	case n == 1:
		out := image.NewGray16(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray16(x, y, color.Gray16{Y: clamp16(im.planes[0].At(y, x))})
			}
		}
		return out, nil
	case (n == 3 || n == 4) && im.dtype == Uint8:
		out := image.NewNRGBA(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBA{
					R: clamp8(im.planes[0].At(y, x)),
					G: clamp8(im.planes[1].At(y, x)),
					B: clamp8(im.planes[2].At(y, x)),
					A: 255,
				}
				if n == 4 {
					c.A = clamp8(im.planes[3].At(y, x))
				}
				out.SetNRGBA(x, y, c)
			}
		}
		return out, nil
	case n == 3 || n == 4:
		out := image.NewNRGBA64(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBA64{
					R: clamp16(im.planes[0].At(y, x)),
					G: clamp16(im.planes[1].At(y, x)),
					B: clamp16(im.planes[2].At(y, x)),
					A: 65535,
				}
				if n == 4 {
					c.A = clamp16(im.planes[3].At(y, x))
				}
				out.SetNRGBA64(x, y, c)
			}
		}
		return out, nil
	}
	return nil, apperrors.NewShapeError(fmt.Sprintf("cannot convert %d-channel image", n), nil)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}

func clamp16(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 65535:
		return 65535
	}
	return uint16(v + 0.5)
}
