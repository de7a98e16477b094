package validation

import (
	"testing"

	apperrors "go-image-assessor/internal/errors"
)

func TestNewSourceValidator(t *testing.T) {
	validator := NewSourceValidator()
	if validator == nil {
		t.Fatal("Expected non-nil source validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Fatalf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateSource(t *testing.T) {
	validator := NewSourceValidatorWithOptions([]string{"http", "https", "azblob", "file"}, nil)

	tests := []struct {
		name    string
		source  string
		wantMsg string // empty means valid
	}{
		{"http", "http://example.com/ref.png", ""},
		{"https subdomain", "https://cdn.example.com/path/to/measured.webp", ""},
		{"ip host", "http://192.168.1.1/image.tiff", ""},
		{"blob", "azblob://refs/2024/a.png", ""},
		{"bare path", "testdata/ref.png", ""},
		{"file url", "file:///tmp/ref.png", ""},
		{"empty", "", "source cannot be empty"},
		{"blank", " \t\n", "source cannot be empty"},
		{"bad format", "://missing-scheme", "invalid source format"},
		{"no host", "http://", "source must have a valid host"},
		{"no host with path", "http:///path", "source must have a valid host"},
		{"ftp", "ftp://example.com/image.jpg", "source scheme not allowed"},
		{"data", "data:image/png;base64,iVBORw0KGgo=", "source scheme not allowed"},
		{"blob without blob", "azblob://refs", "blob source must name a container and a blob"},
		{"empty file url", "file://", "file source must name a path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateSource(tc.source)
			if tc.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %q to pass validation, got error: %v", tc.source, err)
				}
				return
			}
			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("Expected AppError, got: %T (%v)", err, err)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %s", appErr.Type)
			}
			if appErr.Message != tc.wantMsg {
				t.Errorf("Expected %q, got %q", tc.wantMsg, appErr.Message)
			}
		})
	}
}

func TestValidateSource_DefaultRejectsLocalFiles(t *testing.T) {
	validator := NewSourceValidator()
	for _, source := range []string{"/etc/passwd", "file:///etc/passwd", "azblob://c/b.png"} {
		if err := validator.ValidateSource(source); err == nil {
			t.Errorf("Expected %q to be rejected by the default validator", source)
		}
	}
}

func TestValidateSource_RestrictedHosts(t *testing.T) {
	validator := NewSourceValidatorWithOptions([]string{"http", "https"}, []string{"example.com", "trusted.com"})

	for _, source := range []string{"http://example.com/image.jpg", "https://Trusted.com:8443/image.png"} {
		if err := validator.ValidateSource(source); err != nil {
			t.Errorf("Expected allowed host %q to pass validation, got error: %v", source, err)
		}
	}

	for _, source := range []string{"http://malicious.com/image.jpg", "https://untrusted.com/image.png"} {
		err := validator.ValidateSource(source)
		appErr, ok := err.(*apperrors.AppError)
		if !ok || appErr.Message != "source host not allowed" {
			t.Errorf("Expected 'source host not allowed' for %q, got: %v", source, err)
		}
	}
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"HTTPS://example.com/a.png": "https",
		"azblob://c/b":              "azblob",
		"relative/path.png":         "file",
		"file:///abs.png":           "file",
		"://broken":                 "file",
	}
	for source, want := range tests {
		if got := Scheme(source); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", source, got, want)
		}
	}
}
