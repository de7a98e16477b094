package ocrfidelity

import (
	"errors"
	"math"
	"testing"

	"go-image-assessor/internal/images"
	"go-image-assessor/internal/metrics"
	"go-image-assessor/internal/operation"

	"gonum.org/v1/gonum/mat"
)

// stubRecognizer returns canned text keyed by image name
type stubRecognizer map[string]string

func (s stubRecognizer) Recognize(img *images.Image, _ string) (string, error) {
	text, ok := s[img.Name]
	if !ok {
		return "", errors.New("no text for " + img.Name)
	}
	return text, nil
}

func named(t *testing.T, name string) *images.Image {
	t.Helper()
	img, err := images.NewGray(mat.NewDense(2, 2, nil), images.Uint8)
	if err != nil {
		t.Fatal(err)
	}
	img.Name = name
	return img
}

func TestCharacterScore(t *testing.T) {
	tests := []struct {
		name      string
		ref, cand string
		want      float64
	}{
		{"identical", "hello world", "hello world", 1},
		{"one substitution", "hello", "hallo", 0.8},
		{"empty both", "", "", 1},
		{"empty reference", "", "noise", 0},
		{"clamped", "ab", "xyzuvw", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CharacterScore(tc.ref, tc.cand); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("CharacterScore(%q, %q) = %v, want %v", tc.ref, tc.cand, got, tc.want)
			}
		})
	}
}

func TestWordScore(t *testing.T) {
	if got := WordScore("the quick brown fox", "the quick brown fox"); got != 1 {
		t.Errorf("Expected 1 for identical text, got %v", got)
	}
	if got := WordScore("the quick brown fox", "the quick brown dog"); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Expected 0.75 for one substituted word, got %v", got)
	}
	if got := WordScore("", ""); got != 1 {
		t.Errorf("Expected 1 for empty texts, got %v", got)
	}
}

func TestMetric_Analyze(t *testing.T) {
	rec := stubRecognizer{"ref": "Invoice  TOTAL\n42", "meas": "invoice total 42"}
	pair := images.NewPair(named(t, "ref"), named(t, "meas"))

	strict, _ := New(DefaultOptions(), rec)
	v, err := strict.Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	if v >= 1 {
		t.Errorf("Case differences must count, got %v", v)
	}

	relaxed, _ := New(Options{Language: "eng", IgnoreCase: true}, rec)
	v, err = relaxed.Analyze(pair)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("Expected 1 ignoring case and whitespace, got %v", v)
	}

	missing := images.NewPair(named(t, "ref"), named(t, "other"))
	if _, err := strict.Analyze(missing); err == nil {
		t.Error("Expected recognizer error to propagate")
	}
}

func TestRegistered(t *testing.T) {
	d, ok := metrics.Lookup("OCRF")
	if !ok {
		t.Fatal("OCRF is not registered")
	}
	m, err := d.Build(operation.Args{"language": "deu", "words": true})
	if err != nil {
		t.Fatal(err)
	}
	if opts := m.(*Metric).opts; opts.Language != "deu" || !opts.Words {
		t.Errorf("Unexpected options %+v", opts)
	}
	if _, err := d.Build(operation.Args{"language": ""}); err == nil {
		t.Error("Expected error for empty language")
	}
}
