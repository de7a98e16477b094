package main

import (
	"math"
	"strings"
	"testing"
	"time"

	"go-image-assessor/internal/operation"
	"go-image-assessor/pkg/models"
)

func TestParseThresholds(t *testing.T) {
	got, err := parseThresholds([]string{"SSIM=0.9", "PSNR=30"}, []string{"MSE=25", "SSIM=1"})
	if err != nil {
		t.Fatalf("parseThresholds failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 thresholds, got %d", len(got))
	}
	ssim := got["SSIM"]
	if ssim.Min == nil || *ssim.Min != 0.9 || ssim.Max == nil || *ssim.Max != 1 {
		t.Errorf("Unexpected SSIM bounds %+v", ssim)
	}
	if mse := got["MSE"]; mse.Min != nil || mse.Max == nil || *mse.Max != 25 {
		t.Errorf("Unexpected MSE bounds %+v", mse)
	}

	if got, err := parseThresholds(nil, nil); err != nil || got != nil {
		t.Errorf("Expected no thresholds, got %v, %v", got, err)
	}
}

func TestParseThresholds_Invalid(t *testing.T) {
	tests := []struct {
		name string
		min  []string
	}{
		{"missing equals", []string{"SSIM"}},
		{"missing name", []string{"=0.5"}},
		{"not a number", []string{"SSIM=high"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseThresholds(tc.min, nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *cliConfig {
		return &cliConfig{Reference: "a.png", Measured: "b.png", Metrics: []string{"MSE"}, Mode: "color", Timeout: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(*cliConfig)
		wantErr bool
	}{
		{"valid", func(*cliConfig) {}, false},
		{"list needs nothing", func(c *cliConfig) { *c = cliConfig{List: true} }, false},
		{"no reference", func(c *cliConfig) { c.Reference = "" }, true},
		{"no measured", func(c *cliConfig) { c.Measured = "" }, true},
		{"no metrics", func(c *cliConfig) { c.Metrics = nil }, true},
		{"bad mode", func(c *cliConfig) { c.Mode = "gray" }, true},
		{"negative workers", func(c *cliConfig) { c.Workers = -1 }, true},
		{"zero timeout", func(c *cliConfig) { c.Timeout = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := validateConfig(cfg); (err != nil) != tc.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRenderResponse(t *testing.T) {
	inf := models.Score(math.Inf(1))
	resp := &models.AssessmentResponse{
		Reference: models.ImageMetadata{Source: "ref.png", Width: 4, Height: 4, Channels: 3, DType: "uint8"},
		Measured:  models.ImageMetadata{Source: "meas.png", Width: 4, Height: 4, Channels: 3, DType: "uint8"},
		Results: []models.MetricResult{
			{Metric: "PSNR", Value: &inf},
			{Metric: "SAM", Error: "SAM needs multiple channels", ErrorType: "shape"},
		},
		Issues: []models.QualityIssue{{Severity: "critical", Message: "SAM is unavailable"}},
	}

	out := renderResponse(resp)
	for _, want := range []string{"PSNR", "+Inf", "SAM needs multiple channels", "SAM is unavailable", "FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if exitCode(resp) != exitFailed {
		t.Error("Failed assessment must exit with the failure code")
	}
	resp.Passed = true
	if exitCode(resp) != 0 {
		t.Error("Passed assessment must exit with 0")
	}
}

func TestRenderOperations(t *testing.T) {
	out := renderOperations([]operation.Info{
		{Name: "SSIM", Kind: operation.KindMetric, Params: []operation.Param{{Name: "sigma", Type: operation.TypeFloat, Default: 1.5}}},
		{Name: "Blur", Kind: operation.KindTransformation},
	})
	for _, want := range []string{"SSIM", "sigma:float=1.5", "Blur", "TRANSFORMATION"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in listing:\n%s", want, out)
		}
	}
}
