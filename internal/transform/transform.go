// Package transform applies OpenCV-backed pre-processing to images before
// they are measured.
package transform

import (
	"fmt"
	"sort"
	"sync"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Transformation changes the pixels of an 8-bit image. With inplace set the
// image buffer is replaced and the same image returned; otherwise a new
// image is returned and the input is left alone.
type Transformation interface {
	Name() string
	Transform(img *images.Image, inplace bool) (*images.Image, error)
}

type Descriptor struct {
	Name        string
	Description string
	Params      []operation.Param
	New         func(args operation.Args) (Transformation, error)
}

func (d Descriptor) Info() operation.Info {
	return operation.Info{
		Name:        d.Name,
		Kind:        operation.KindTransformation,
		Description: d.Description,
		Params:      d.Params,
	}
}

func (d Descriptor) Build(args operation.Args) (Transformation, error) {
	if err := args.CheckKnown(d.Name, d.Params); err != nil {
		return nil, err
	}
	return d.New(args)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Descriptor)
)

func Register(d Descriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[d.Name]; dup {
		panic("transform: Register called twice for " + d.Name)
	}
	registry[d.Name] = d
}

func Lookup(name string) (Descriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Descriptors returns all registered transformations sorted by name
func Descriptors() []Descriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Apply runs transformations in order on a copy of img
func Apply(img *images.Image, chain []Transformation) (*images.Image, error) {
	out := img.Clone()
	for _, t := range chain {
		if _, err := t.Transform(out, true); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return out, nil
}

// finish either swaps the buffer of img or wraps planes in a copy
func finish(img *images.Image, planes []*mat.Dense, inplace bool) (*images.Image, error) {
	target := img
	if !inplace {
		target = img.Clone()
	}
	if err := target.Replace(planes, images.Uint8); err != nil {
		return nil, err
	}
	return target, nil
}

func matType(channels int) (gocv.MatType, error) {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1, nil
	case 3:
		return gocv.MatTypeCV8UC3, nil
	case 4:
		return gocv.MatTypeCV8UC4, nil
	}
	return 0, apperrors.NewConfigurationError(
		fmt.Sprintf("transformations support 1, 3 or 4 channels, got %d", channels), nil)
}

// toMat copies an 8-bit image into a new Mat; the caller closes it
func toMat(img *images.Image) (gocv.Mat, error) {
	if img.DType() != images.Uint8 {
		return gocv.Mat{}, apperrors.NewConfigurationError(
			fmt.Sprintf("transformations need 8-bit images, got %s", img.DType()), nil)
	}
	planes := img.AsFloat()
	mt, err := matType(len(planes))
	if err != nil {
		return gocv.Mat{}, err
	}
	rows, cols := img.Dims()
	m := gocv.NewMatWithSize(rows, cols, mt)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if len(planes) == 1 {
				m.SetUCharAt(y, x, uint8(planes[0].At(y, x)))
				continue
			}
			for c, p := range planes {
				m.SetUCharAt3(y, x, c, uint8(p.At(y, x)))
			}
		}
	}
	return m, nil
}

// fromMat reads an 8-bit Mat back into planes
func fromMat(m gocv.Mat) []*mat.Dense {
	rows, cols, channels := m.Rows(), m.Cols(), m.Channels()
	planes := make([]*mat.Dense, channels)
	for c := range planes {
		planes[c] = mat.NewDense(rows, cols, nil)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if channels == 1 {
				planes[0].Set(y, x, float64(m.GetUCharAt(y, x)))
				continue
			}
			for c := 0; c < channels; c++ {
				planes[c].Set(y, x, float64(m.GetUCharAt3(y, x, c)))
			}
		}
	}
	return planes
}
