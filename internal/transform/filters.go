package transform

import (
	"fmt"
	"image"
	"math"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

type BlurOptions struct {
	// Gaussian selects cv::GaussianBlur, otherwise a normalised box filter
	Gaussian bool
	// KernelSize is (width, height); Gaussian kernels may use 0 to derive size from Sigma
	KernelSize [2]int
	Sigma      float64
}

func DefaultBlurOptions() BlurOptions {
	return BlurOptions{Gaussian: true, KernelSize: [2]int{5, 5}, Sigma: 1.0}
}

func (o BlurOptions) Validate() error {
	w, h := o.KernelSize[0], o.KernelSize[1]
	if !o.Gaussian {
		if w < 1 || h < 1 {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("box kernel size must be positive, got (%d, %d)", w, h), nil)
		}
		return nil
	}
	for _, k := range o.KernelSize {
		if k < 0 || (k > 0 && k%2 == 0) {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("gaussian kernel size must be odd or zero, got (%d, %d)", w, h), nil)
		}
	}
	if o.Sigma < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("sigma must be non-negative, got %v", o.Sigma), nil)
	}
	if (w == 0 || h == 0) && o.Sigma == 0 {
		return apperrors.NewConfigurationError("sigma must be positive when the kernel size is derived", nil)
	}
	return nil
}

type Blur struct {
	opts BlurOptions
}

func NewBlur(opts BlurOptions) (*Blur, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Blur{opts: opts}, nil
}

func (b *Blur) Name() string { return "Blur" }

func (b *Blur) Transform(img *images.Image, inplace bool) (*images.Image, error) {
	planes, err := b.blur(img)
	if err != nil {
		return nil, err
	}
	return finish(img, planes, inplace)
}

func (b *Blur) blur(img *images.Image) ([]*mat.Dense, error) {
	src, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	ksize := image.Point{X: b.opts.KernelSize[0], Y: b.opts.KernelSize[1]}
	if b.opts.Gaussian {
		gocv.GaussianBlur(src, &dst, ksize, b.opts.Sigma, b.opts.Sigma, gocv.BorderDefault)
	} else {
		gocv.Blur(src, &dst, ksize)
	}
	if dst.Empty() {
		return nil, apperrors.NewProcessingError("blur produced an empty image", nil)
	}
	return fromMat(dst), nil
}

type SharpenOptions struct {
	// Amount scales the difference between the image and its blur
	Amount float64
	// Threshold keeps pixels whose difference from the blur is below it
	Threshold float64
	Blur      BlurOptions
}

func DefaultSharpenOptions() SharpenOptions {
	return SharpenOptions{Amount: 1.0, Blur: DefaultBlurOptions()}
}

func (o SharpenOptions) Validate() error {
	if o.Threshold < 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("threshold must be non-negative, got %v", o.Threshold), nil)
	}
	o.Blur.Gaussian = true
	return o.Blur.Validate()
}

// Sharpen is an unsharp mask: im*(1+amount) - blurred*amount
type Sharpen struct {
	opts SharpenOptions
	blur *Blur
}

func NewSharpen(opts SharpenOptions) (*Sharpen, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Blur.Gaussian = true
	return &Sharpen{opts: opts, blur: &Blur{opts: opts.Blur}}, nil
}

func (s *Sharpen) Name() string { return "Sharpen" }

func (s *Sharpen) Transform(img *images.Image, inplace bool) (*images.Image, error) {
	blurred, err := s.blur.blur(img)
	if err != nil {
		return nil, err
	}
	orig := img.AsFloat()
	a := s.opts.Amount

	planes := make([]*mat.Dense, len(orig))
	for c, p := range orig {
		b := blurred[c]
		rows, cols := p.Dims()
		out := mat.NewDense(rows, cols, nil)
		out.Apply(func(i, j int, _ float64) float64 {
			v, bv := p.At(i, j), b.At(i, j)
			if s.opts.Threshold > 0 && math.Abs(v-bv) < s.opts.Threshold {
				return v
			}
			sharp := v*(1+a) - bv*a
			return math.RoundToEven(math.Min(255, math.Max(0, sharp)))
		}, out)
		planes[c] = out
	}
	return finish(img, planes, inplace)
}

type LinearOptions struct {
	// Contrast is the gain; 1 keeps the image
	Contrast float64
	// Brightness is the bias; 0 keeps the image
	Brightness float64
}

func DefaultLinearOptions() LinearOptions {
	return LinearOptions{Contrast: 1, Brightness: 0}
}

// Linear computes saturate(|contrast*x + brightness|) like cv::convertScaleAbs
type Linear struct {
	opts LinearOptions
}

func NewLinear(opts LinearOptions) *Linear {
	return &Linear{opts: opts}
}

func (l *Linear) Name() string { return "Linear" }

func (l *Linear) Transform(img *images.Image, inplace bool) (*images.Image, error) {
	src, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.ConvertScaleAbs(src, &dst, l.opts.Contrast, l.opts.Brightness)
	if dst.Empty() {
		return nil, apperrors.NewProcessingError("linear transformation produced an empty image", nil)
	}
	return finish(img, fromMat(dst), inplace)
}

var (
	kernelSizeParam = operation.Param{Name: "kernel_size", Type: operation.TypeIntPair, Default: []int{5, 5}, Constraint: "odd or 0 for Gaussian, positive for box", Description: "kernel (width, height)"}
	sigmaParam      = operation.Param{Name: "sigma", Type: operation.TypeFloat, Default: 1.0, Constraint: ">= 0", Description: "Gaussian standard deviation"}
)

func bindBlur(args operation.Args, opts *BlurOptions) error {
	var err error
	if opts.KernelSize, err = args.IntPair("kernel_size", opts.KernelSize); err != nil {
		return err
	}
	opts.Sigma, err = args.Float("sigma", opts.Sigma)
	return err
}

func init() {
	Register(Descriptor{
		Name:        "Blur",
		Description: "Gaussian or box blur",
		Params: []operation.Param{
			{Name: "gaussian", Type: operation.TypeBool, Default: true, Description: "use a Gaussian kernel instead of a box"},
			kernelSizeParam,
			sigmaParam,
		},
		New: func(args operation.Args) (Transformation, error) {
			opts := DefaultBlurOptions()
			var err error
			if opts.Gaussian, err = args.Bool("gaussian", opts.Gaussian); err != nil {
				return nil, err
			}
			if err := bindBlur(args, &opts); err != nil {
				return nil, err
			}
			return NewBlur(opts)
		},
	})
	Register(Descriptor{
		Name:        "Sharpen",
		Description: "Unsharp mask",
		Params: []operation.Param{
			{Name: "amount", Type: operation.TypeFloat, Default: 1.0, Description: "sharpening strength"},
			{Name: "threshold", Type: operation.TypeFloat, Default: 0.0, Constraint: ">= 0", Description: "low-contrast mask threshold"},
			kernelSizeParam,
			sigmaParam,
		},
		New: func(args operation.Args) (Transformation, error) {
			opts := DefaultSharpenOptions()
			var err error
			if opts.Amount, err = args.Float("amount", opts.Amount); err != nil {
				return nil, err
			}
			if opts.Threshold, err = args.Float("threshold", opts.Threshold); err != nil {
				return nil, err
			}
			if err := bindBlur(args, &opts.Blur); err != nil {
				return nil, err
			}
			return NewSharpen(opts)
		},
	})
	Register(Descriptor{
		Name:        "Linear",
		Description: "Contrast and brightness adjustment, saturate(|contrast*x + brightness|)",
		Params: []operation.Param{
			{Name: "contrast", Type: operation.TypeFloat, Default: 1.0, Description: "gain"},
			{Name: "brightness", Type: operation.TypeFloat, Default: 0.0, Description: "bias"},
		},
		New: func(args operation.Args) (Transformation, error) {
			opts := DefaultLinearOptions()
			var err error
			if opts.Contrast, err = args.Float("contrast", opts.Contrast); err != nil {
				return nil, err
			}
			if opts.Brightness, err = args.Float("brightness", opts.Brightness); err != nil {
				return nil, err
			}
			return NewLinear(opts), nil
		},
	})
}
