package validation

import (
	"fmt"
	"math"
	"sort"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/pkg/models"
)

// ThresholdValidator turns metric values into pass/fail issues
type ThresholdValidator struct {
	thresholds map[string]models.Threshold
}

// NewThresholdValidator rejects bounds that cannot be satisfied
func NewThresholdValidator(thresholds map[string]models.Threshold) (*ThresholdValidator, error) {
	for name, th := range thresholds {
		if th.Min == nil && th.Max == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("threshold for %s sets neither min nor max", name), nil)
		}
		if th.Min != nil && math.IsNaN(*th.Min) || th.Max != nil && math.IsNaN(*th.Max) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("threshold for %s is NaN", name), nil)
		}
		if th.Min != nil && th.Max != nil && *th.Min > *th.Max {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("threshold for %s has min %g above max %g", name, *th.Min, *th.Max), nil)
		}
	}
	return &ThresholdValidator{thresholds: thresholds}, nil
}

// Validate checks every thresholded metric against values. A thresholded
// metric without a value (it failed or was not requested) is an error, and
// NaN never satisfies a bound.
func (v *ThresholdValidator) Validate(values map[string]float64) []models.QualityIssue {
	names := make([]string, 0, len(v.thresholds))
	for name := range v.thresholds {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []models.QualityIssue
	for _, name := range names {
		th := v.thresholds[name]
		value, ok := values[name]
		if !ok {
			issues = append(issues, models.QualityIssue{
				Type:        "metric_unavailable",
				Metric:      name,
				Message:     fmt.Sprintf("%s has a threshold but no value", name),
				Severity:    "error",
				ActualValue: models.Score(math.NaN()),
			})
			continue
		}

		if th.Min != nil && !(value >= *th.Min) {
			issues = append(issues, models.QualityIssue{
				Type:        "below_minimum",
				Metric:      name,
				Message:     fmt.Sprintf("%s is below the minimum of %g", name, *th.Min),
				Severity:    "error",
				ActualValue: models.Score(value),
				Threshold:   *th.Min,
			})
		}
		if th.Max != nil && !(value <= *th.Max) {
			issues = append(issues, models.QualityIssue{
				Type:        "above_maximum",
				Metric:      name,
				Message:     fmt.Sprintf("%s is above the maximum of %g", name, *th.Max),
				Severity:    "error",
				ActualValue: models.Score(value),
				Threshold:   *th.Max,
			})
		}
	}
	return issues
}

// ConvertIssuesToMessages converts quality issues to plain messages
func ConvertIssuesToMessages(issues []models.QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any error severity issues
func HasCriticalIssues(issues []models.QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
