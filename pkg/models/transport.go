package models

// AssessmentRequest compares a measured image against a reference
type AssessmentRequest struct {
	Reference string `json:"reference" binding:"required"`
	Measured  string `json:"measured" binding:"required"`
	// Metrics and Transformations are operation names; Kwargs use
	// "<Name>-<key>=<value>" or "<Name>-<flag>"
	Metrics         []string             `json:"metrics" binding:"required,min=1"`
	Kwargs          []string             `json:"kwargs,omitempty"`
	Transformations []string             `json:"transformations,omitempty"`
	ROI             string               `json:"roi,omitempty"`
	Thresholds      map[string]Threshold `json:"thresholds,omitempty"`
}

// AssessmentResponse carries one result per requested metric, in request order
type AssessmentResponse struct {
	Reference         ImageMetadata  `json:"reference"`
	Measured          ImageMetadata  `json:"measured"`
	Transformations   []string       `json:"transformations,omitempty"`
	ROI               string         `json:"roi,omitempty"`
	Results           []MetricResult `json:"results"`
	Passed            bool           `json:"passed"`
	Issues            []QualityIssue `json:"issues,omitempty"`
	Timestamp         string         `json:"timestamp"`
	ProcessingTimeSec float64        `json:"processing_time_sec"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
