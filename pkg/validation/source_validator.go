package validation

import (
	"net/url"
	"strings"

	apperrors "go-image-assessor/internal/errors"
)

// SourceValidator checks image source strings before anything is fetched
type SourceValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewSourceValidator allows http and https sources on any host
func NewSourceValidator() *SourceValidator {
	return &SourceValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewSourceValidatorWithOptions creates a validator with custom schemes and
// hosts. A bare path is treated as scheme "file".
func NewSourceValidatorWithOptions(schemes []string, hosts []string) *SourceValidator {
	return &SourceValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// Scheme returns the lower-cased scheme of source, "file" for bare paths
func Scheme(source string) string {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil || u.Scheme == "" {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// ValidateSource validates a reference or measured image source
func (v *SourceValidator) ValidateSource(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return apperrors.NewValidationError("source cannot be empty", nil)
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return apperrors.NewValidationError("invalid source format", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		scheme = "file"
	}
	if !v.isSchemeAllowed(scheme) {
		return apperrors.NewValidationError("source scheme not allowed", nil).WithDetails(scheme)
	}

	switch scheme {
	case "http", "https":
		if parsed.Host == "" {
			return apperrors.NewValidationError("source must have a valid host", nil)
		}
		if !v.isHostAllowed(parsed.Hostname()) {
			return apperrors.NewValidationError("source host not allowed", nil).WithDetails(parsed.Hostname())
		}
	case "azblob":
		if parsed.Host == "" || strings.Trim(parsed.Path, "/") == "" {
			return apperrors.NewValidationError("blob source must name a container and a blob", nil)
		}
	case "file":
		if strings.TrimPrefix(source, "file://") == "" {
			return apperrors.NewValidationError("file source must name a path", nil)
		}
	}

	return nil
}

func (v *SourceValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *SourceValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
