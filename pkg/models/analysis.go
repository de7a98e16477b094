package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Score is a metric value whose JSON form keeps +Inf, -Inf and NaN as strings
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		*s = Score(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// MetricResult is the outcome of one metric; Error is set instead of Value on failure
type MetricResult struct {
	Metric      string  `json:"metric"`
	Value       *Score  `json:"value,omitempty"`
	Error       string  `json:"error,omitempty"`
	ErrorType   string  `json:"error_type,omitempty"`
	DurationSec float64 `json:"duration_sec"`
}

// Threshold bounds an accepted metric value; nil sides are open
type Threshold struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// QualityIssue reports a metric outside its threshold
type QualityIssue struct {
	Type        string  `json:"type"`
	Metric      string  `json:"metric"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning"
	ActualValue Score   `json:"actual_value"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageMetadata describes a decoded input image
type ImageMetadata struct {
	Source   string `json:"source"`
	Name     string `json:"name,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	DType    string `json:"dtype"`
}
