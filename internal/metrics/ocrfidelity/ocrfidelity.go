// Package ocrfidelity registers the OCRF metric: how much of the text
// Tesseract reads from the reference survives in the measured image.
package ocrfidelity

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"unicode/utf8"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/metrics"
	"go-image-assessor/internal/operation"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
	"github.com/otiai10/gosseract/v2"
)

// Recognizer extracts text from an image
type Recognizer interface {
	Recognize(img *images.Image, language string) (string, error)
}

// TesseractRecognizer runs gosseract with a client per call; clients are not goroutine safe
type TesseractRecognizer struct{}

func (TesseractRecognizer) Recognize(img *images.Image, language string) (string, error) {
	goImg, err := img.ToImage()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, goImg); err != nil {
		return "", apperrors.NewProcessingError("failed to encode image for OCR", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", apperrors.NewConfigurationError(fmt.Sprintf("unsupported OCR language %q", language), err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", apperrors.NewProcessingError("failed to load image into OCR engine", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", apperrors.NewProcessingError("OCR failed", err)
	}
	return text, nil
}

type Options struct {
	Language string
	// Words scores with word error rate instead of character error rate
	Words      bool
	IgnoreCase bool
}

func DefaultOptions() Options {
	return Options{Language: "eng"}
}

// Metric scores 1 - error rate of the measured text against the reference text
type Metric struct {
	opts       Options
	recognizer Recognizer
}

func New(opts Options, recognizer Recognizer) (*Metric, error) {
	if strings.TrimSpace(opts.Language) == "" {
		return nil, apperrors.NewConfigurationError("language must not be empty", nil)
	}
	if recognizer == nil {
		recognizer = TesseractRecognizer{}
	}
	return &Metric{opts: opts, recognizer: recognizer}, nil
}

func (m *Metric) Name() string { return "OCRF" }

func (m *Metric) Analyze(pair *images.Pair) (float64, error) {
	refText, err := m.recognizer.Recognize(pair.Reference, m.opts.Language)
	if err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	measText, err := m.recognizer.Recognize(pair.Measured, m.opts.Language)
	if err != nil {
		return 0, fmt.Errorf("measured: %w", err)
	}

	refText, measText = normalize(refText, m.opts.IgnoreCase), normalize(measText, m.opts.IgnoreCase)
	if m.opts.Words {
		return WordScore(refText, measText), nil
	}
	return CharacterScore(refText, measText), nil
}

// CharacterScore is 1 - CER, clamped to [0, 1]
func CharacterScore(reference, candidate string) float64 {
	n := utf8.RuneCountInString(reference)
	if n == 0 {
		return emptyReferenceScore(candidate)
	}
	cer := float64(levenshtein.Distance(reference, candidate)) / float64(n)
	return clampScore(1 - cer)
}

// WordScore is 1 - WER, clamped to [0, 1]
func WordScore(reference, candidate string) float64 {
	refWords := strings.Fields(reference)
	if len(refWords) == 0 {
		return emptyReferenceScore(candidate)
	}
	rate, _ := wer.WER(refWords, strings.Fields(candidate))
	return clampScore(1 - rate)
}

func emptyReferenceScore(candidate string) float64 {
	if strings.TrimSpace(candidate) == "" {
		return 1
	}
	return 0
}

// normalize collapses whitespace runs so layout differences do not count as errors
func normalize(s string, ignoreCase bool) string {
	s = strings.Join(strings.Fields(s), " ")
	if ignoreCase {
		s = strings.ToLower(s)
	}
	return s
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func init() {
	metrics.Register(metrics.Descriptor{
		Name:        "OCRF",
		Description: "OCR fidelity, 1 - character (or word) error rate of Tesseract text",
		Params: []operation.Param{
			{Name: "language", Type: operation.TypeString, Default: "eng", Description: "Tesseract language"},
			{Name: "words", Type: operation.TypeBool, Default: false, Description: "use word error rate"},
			{Name: "ignore_case", Type: operation.TypeBool, Default: false, Description: "compare lower-cased text"},
		},
		New: func(args operation.Args) (metrics.Metric, error) {
			opts := DefaultOptions()
			var err error
			if opts.Language, err = args.String("language", opts.Language); err != nil {
				return nil, err
			}
			if opts.Words, err = args.Bool("words", opts.Words); err != nil {
				return nil, err
			}
			if opts.IgnoreCase, err = args.Bool("ignore_case", opts.IgnoreCase); err != nil {
				return nil, err
			}
			return New(opts, nil)
		},
	})
}
