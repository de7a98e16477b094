package metrics

import (
	"math"
	"testing"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"

	"gonum.org/v1/gonum/mat"
)

// pattern builds a deterministic non-degenerate 8-bit image
func pattern(t *testing.T, h, w, channels int, shift float64) *images.Image {
	t.Helper()
	planes := make([]*mat.Dense, channels)
	for c := range planes {
		p := mat.NewDense(h, w, nil)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := 128 + 90*math.Sin(float64(x)*0.35+shift)*math.Cos(float64(y)*0.21) + float64(c*7)
				p.Set(y, x, math.Round(v))
			}
		}
		planes[c] = p
	}
	var img *images.Image
	var err error
	if channels == 1 {
		img, err = images.NewGray(planes[0], images.Uint8)
	} else {
		img, err = images.New(planes, images.Uint8)
	}
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	return img
}

func flat(t *testing.T, h, w int, value float64) *images.Image {
	t.Helper()
	p := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(y, x, value)
		}
	}
	img, err := images.NewGray(p, images.Uint8)
	if err != nil {
		t.Fatalf("flat: %v", err)
	}
	return img
}

func allMetrics(t *testing.T) map[string]Metric {
	t.Helper()
	out := make(map[string]Metric)
	for _, d := range Descriptors() {
		m, err := d.Build(operation.Args{})
		if err != nil {
			t.Fatalf("build %s: %v", d.Name, err)
		}
		out[d.Name] = m
	}
	return out
}

func TestIdenticalImages(t *testing.T) {
	img := pattern(t, 32, 32, 3, 0)
	pair := images.NewPair(img, img)
	m := allMetrics(t)

	tests := []struct {
		name string
		want float64
		tol  float64
	}{
		{"MSE", 0, 0},
		{"SSIM", 1, 1e-9},
		{"UIQI", 1, 1e-9},
		{"VIFP", 1, 1e-3},
		{"SAM", 0, 1e-4},
		{"DeltaE", 0, 1e-9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m[tc.name].Analyze(pair)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > tc.tol {
				t.Errorf("%s(I, I) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}

	t.Run("PSNR", func(t *testing.T) {
		got, err := m["PSNR"].Analyze(pair)
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsInf(got, 1) {
			t.Errorf("PSNR(I, I) = %v, want +Inf", got)
		}
	})
}

func TestMSE_Symmetric(t *testing.T) {
	a := pattern(t, 16, 16, 3, 0)
	b := pattern(t, 16, 16, 3, 0.7)

	ab, err := NewMSE().Analyze(images.NewPair(a, b))
	if err != nil {
		t.Fatal(err)
	}
	ba, err := NewMSE().Analyze(images.NewPair(b, a))
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba || ab == 0 {
		t.Errorf("Expected symmetric non-zero MSE, got %v and %v", ab, ba)
	}
}

func TestFlatImages(t *testing.T) {
	pair := images.NewPair(flat(t, 8, 8, 100), flat(t, 8, 8, 110))

	mse, err := NewMSE().Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	if mse != 100 {
		t.Errorf("MSE = %v, want 100", mse)
	}

	psnr, err := NewPSNR().Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	want := 20*math.Log10(100) - 10*math.Log10(100)
	if math.Abs(psnr-want) > 1e-12 {
		t.Errorf("PSNR = %v, want %v", psnr, want)
	}
}

func TestPSNR_PeakFromReference(t *testing.T) {
	ref := flat(t, 4, 4, 200)
	meas := flat(t, 4, 4, 100)

	forward, _ := NewPSNR().Analyze(images.NewPair(ref, meas))
	backward, _ := NewPSNR().Analyze(images.NewPair(meas, ref))
	if forward == backward {
		t.Errorf("PSNR must depend on the reference peak, got %v both ways", forward)
	}
	if want := 20*math.Log10(200) - 10*math.Log10(10000); math.Abs(forward-want) > 1e-12 {
		t.Errorf("PSNR = %v, want %v", forward, want)
	}
}

func TestGrayscaleSupported(t *testing.T) {
	ref := pattern(t, 24, 24, 1, 0)
	meas := pattern(t, 24, 24, 1, 0.4)
	pair := images.NewPair(ref, meas)

	for name, m := range allMetrics(t) {
		if name == "SAM" || name == "DeltaE" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			v, err := m.Analyze(pair)
			if err != nil {
				t.Fatalf("%s failed on grayscale: %v", name, err)
			}
			if math.IsNaN(v) {
				t.Errorf("%s returned NaN", name)
			}
		})
	}
}

func TestChannelRequirements(t *testing.T) {
	gray := pattern(t, 16, 16, 1, 0)
	pair := images.NewPair(gray, gray)

	if _, err := NewSAM(DefaultSAMOptions()).Analyze(pair); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("SAM on one channel: expected shape error, got %v", err)
	}
	if _, err := NewDeltaE().Analyze(pair); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("DeltaE on one channel: expected shape error, got %v", err)
	}
}

func TestShapeMismatch(t *testing.T) {
	pair := images.NewPair(pattern(t, 16, 16, 3, 0), pattern(t, 16, 17, 3, 0))

	for name, m := range allMetrics(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Analyze(pair); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
				t.Errorf("Expected shape error, got %v", err)
			}
		})
	}
}

func TestSSIM_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SSIMOptions)
	}{
		{"negative sigma", func(o *SSIMOptions) { o.Sigma = -1 }},
		{"zero sigma", func(o *SSIMOptions) { o.Sigma = 0 }},
		{"negative truncate", func(o *SSIMOptions) { o.Truncate = -3.5 }},
		{"negative K1", func(o *SSIMOptions) { o.K1 = -0.1 }},
		{"negative K2", func(o *SSIMOptions) { o.K2 = -0.1 }},
		{"negative channel count", func(o *SSIMOptions) { o.ChannelCount = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultSSIMOptions()
			tc.mutate(&opts)
			if _, err := NewSSIM(opts); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
				t.Errorf("Expected configuration error, got %v", err)
			}
		})
	}

	opts := DefaultSSIMOptions()
	opts.K1 = 0
	if _, err := NewSSIM(opts); err != nil {
		t.Errorf("K1 = 0 must be accepted, got %v", err)
	}
}

func TestSSIM_ImageSmallerThanMargin(t *testing.T) {
	// default pad is int(3.5*1.5+0.5) = 5, so a 10x10 map crops to nothing
	img := pattern(t, 10, 10, 1, 0)
	ssim, _ := NewSSIM(DefaultSSIMOptions())

	if _, err := ssim.Analyze(images.NewPair(img, img)); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected shape error, got %v", err)
	}

	bigger := pattern(t, 11, 11, 1, 0)
	if _, err := ssim.Analyze(images.NewPair(bigger, bigger)); err != nil {
		t.Errorf("11x11 leaves one pixel, got %v", err)
	}
}

func TestSSIM_Degradation(t *testing.T) {
	ref := pattern(t, 32, 32, 3, 0)
	slight := pattern(t, 32, 32, 3, 0.1)
	heavy := pattern(t, 32, 32, 3, 1.5)
	ssim, _ := NewSSIM(DefaultSSIMOptions())

	a, err := ssim.Analyze(images.NewPair(ref, slight))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ssim.Analyze(images.NewPair(ref, heavy))
	if err != nil {
		t.Fatal(err)
	}
	if !(a < 1 && b < a) {
		t.Errorf("Expected 1 > SSIM(slight)=%v > SSIM(heavy)=%v", a, b)
	}
}

func TestChannelCountOverride(t *testing.T) {
	ref := pattern(t, 16, 16, 3, 0)
	meas := pattern(t, 16, 16, 3, 0.3)
	pair := images.NewPair(ref, meas)

	one, _ := NewUIQI(UIQIOptions{ChannelCount: 1, BlockSize: 8})
	if _, err := one.Analyze(pair); err != nil {
		t.Errorf("Override of one channel must work, got %v", err)
	}

	four, _ := NewUIQI(UIQIOptions{ChannelCount: 4, BlockSize: 8})
	if _, err := four.Analyze(pair); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected shape error for 4 channels on RGB, got %v", err)
	}
}

func TestUIQI_Branches(t *testing.T) {
	// zero images: both denominators vanish and the map stays at 1
	zeros := images.NewPair(flat(t, 4, 4, 0), flat(t, 4, 4, 0))
	u, _ := NewUIQI(UIQIOptions{BlockSize: 2})
	got, err := u.Analyze(zeros)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("UIQI of zero images = %v, want 1", got)
	}

	// block size 1: denominator1 is always 0, so the ratio 2xy/(x²+y²) applies
	u1, _ := NewUIQI(UIQIOptions{BlockSize: 1})
	got, err = u1.Analyze(images.NewPair(flat(t, 4, 4, 3), flat(t, 4, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-24.0/25.0) > 1e-12 {
		t.Errorf("UIQI = %v, want 0.96", got)
	}

	if _, err := NewUIQI(UIQIOptions{BlockSize: 0}); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}

	small := images.NewPair(flat(t, 8, 8, 1), flat(t, 8, 8, 1))
	u8, _ := NewUIQI(DefaultUIQIOptions())
	if _, err := u8.Analyze(small); !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected shape error when the crop is empty, got %v", err)
	}
}

func TestVIFP_NoInformation(t *testing.T) {
	img := flat(t, 16, 16, 50)
	v, _ := NewVIFP(DefaultVIFPOptions())

	got, err := v.Analyze(images.NewPair(img, img))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("VIFP of flat images = %v, want 0", got)
	}

	if _, err := NewVIFP(VIFPOptions{Sigma: 0}); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestSAM_Units(t *testing.T) {
	ref := pattern(t, 8, 8, 3, 0)
	meas := pattern(t, 8, 8, 3, 0.9)
	pair := images.NewPair(ref, meas)

	deg, err := NewSAM(SAMOptions{ToDegrees: true}).Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	rad, err := NewSAM(SAMOptions{ToDegrees: false}).Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(deg-rad*180/math.Pi) > 1e-9 {
		t.Errorf("Degrees %v do not match radians %v", deg, rad)
	}

	// zero vectors count as a zero angle
	planes := []*mat.Dense{mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil)}
	zero, _ := images.New(planes, images.Uint8)
	got, err := NewSAM(DefaultSAMOptions()).Analyze(images.NewPair(zero, zero))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("SAM of zero images = %v, want 0", got)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	ref := pattern(t, 24, 24, 3, 0)
	meas := pattern(t, 24, 24, 3, 0.5)

	refF, _ := images.New(ref.AsFloat(), images.Float64)
	measF, _ := images.New(meas.AsFloat(), images.Float64)

	intPair := images.NewPair(ref, meas)
	floatPair := images.NewPair(refF, measF)

	for name, m := range allMetrics(t) {
		if name == "DeltaE" {
			// scales by dtype range, so float and integer inputs differ by design
			continue
		}
		t.Run(name, func(t *testing.T) {
			a, err := m.Analyze(intPair)
			if err != nil {
				t.Fatal(err)
			}
			b, err := m.Analyze(floatPair)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(a-b) > 1e-6*math.Max(1, math.Abs(a)) {
				t.Errorf("%s changed after float conversion: %v vs %v", name, a, b)
			}
		})
	}
}

func TestDoesNotMutatePair(t *testing.T) {
	ref := pattern(t, 16, 16, 3, 0)
	meas := pattern(t, 16, 16, 3, 0.2)
	before := meas.AsFloat()
	pair := images.NewPair(ref, meas)

	for _, m := range allMetrics(t) {
		if _, err := m.Analyze(pair); err != nil {
			t.Fatalf("%s: %v", m.Name(), err)
		}
	}
	after := meas.AsFloat()
	for c := range before {
		if !mat.Equal(before[c], after[c]) {
			t.Errorf("Channel %d of the measured image changed", c)
		}
	}
	if pair.Reference != ref || pair.Measured != meas {
		t.Error("Pair members must not be replaced")
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"MSE", "PSNR", "SSIM", "UIQI", "VIFP", "SAM", "DeltaE"} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("%s is not registered", name)
		}
	}

	d, _ := Lookup("SSIM")
	m, err := d.Build(operation.Args{"sigma": 2, "K1": 0.02})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	opts := m.(*SSIM).Options()
	if opts.Sigma != 2 || opts.K1 != 0.02 || opts.K2 != 0.03 {
		t.Errorf("Unexpected options %+v", opts)
	}

	if _, err := d.Build(operation.Args{"gamma": 1.0}); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error for unknown argument, got %v", err)
	}
	if _, err := d.Build(operation.Args{"sigma": -1}); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error for negative sigma, got %v", err)
	}
	if _, err := d.Build(operation.Args{"sigma": "wide"}); !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error for string sigma, got %v", err)
	}

	sam, _ := Lookup("SAM")
	m, err = sam.Build(operation.Args{"to_degrees": false})
	if err != nil {
		t.Fatal(err)
	}
	if m.(*SAM).opts.ToDegrees {
		t.Error("to_degrees=False must be bound")
	}

	if info := d.Info(); info.Kind != operation.KindMetric || len(info.Params) != 5 {
		t.Errorf("Unexpected info %+v", info)
	}
}

// goldenPair is a 24x24 gray image with sharp wrap-around edges and a copy
// carrying a deterministic offset in [-10, 10]
func goldenPair(t *testing.T) (*images.Image, *images.Image, *images.Image) {
	t.Helper()
	const h, w = 24, 24
	ref := mat.NewDense(h, w, nil)
	meas := mat.NewDense(h, w, nil)
	inv := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64((x*x*3 + y*7 + x*y) % 256)
			ref.Set(y, x, v)
			meas.Set(y, x, math.Min(255, math.Max(0, v+float64((x*5+y*3)%21-10))))
			inv.Set(y, x, 255-v)
		}
	}
	out := make([]*images.Image, 3)
	for i, p := range []*mat.Dense{ref, meas, inv} {
		img, err := images.NewGray(p, images.Uint8)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = img
	}
	return out[0], out[1], out[2]
}

// Expected values come from the reflect-mode ndimage filter definitions
// evaluated in float64 on the same pixels.
func TestGoldenValues(t *testing.T) {
	ref, meas, inv := goldenPair(t)
	all := allMetrics(t)

	tests := []struct {
		name     string
		metric   string
		measured *images.Image
		want     float64
	}{
		{"MSE", "MSE", meas, 35.6076388888889},
		{"PSNR", "PSNR", meas, 32.6153718392276},
		{"SSIM", "SSIM", meas, 0.996673267518288},
		{"UIQI", "UIQI", meas, 0.999158857705017},
		{"VIFP", "VIFP", meas, 0.775859235775255},
		{"SSIM inverse", "SSIM", inv, -0.981984417042774},
		{"UIQI inverse", "UIQI", inv, 0.500064084074523},
		// every local gain is negative, so all information is discarded
		{"VIFP inverse", "VIFP", inv, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := all[tc.metric].Analyze(images.NewPair(ref, tc.measured))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("%s = %.15g, want %.15g", tc.metric, got, tc.want)
			}
		})
	}
}
