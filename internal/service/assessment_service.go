package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-image-assessor/internal/analyzer"
	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/factory"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/metrics"
	"go-image-assessor/internal/observer"
	"go-image-assessor/internal/operation"
	"go-image-assessor/internal/repository"
	"go-image-assessor/internal/transform"
	"go-image-assessor/pkg/models"
	"go-image-assessor/pkg/validation"

	"github.com/sirupsen/logrus"
)

// AssessmentService compares a measured image against a reference
type AssessmentService interface {
	// Assess runs the requested transformations and metrics on one pair
	Assess(ctx context.Context, request models.AssessmentRequest) (*models.AssessmentResponse, error)

	// Operations lists every registered metric and transformation
	Operations() []operation.Info

	// ValidateSource checks a source string without fetching it
	ValidateSource(source string) error
}

type assessmentService struct {
	imageRepo repository.ImageRepository
	factory   factory.OperationFactory
	analyzer  analyzer.PairAnalyzer
	events    observer.Subject
	options   analyzer.AnalysisOptions
	log       *logrus.Entry
}

// NewAssessmentService wires the service; events may be nil
func NewAssessmentService(
	imageRepository repository.ImageRepository,
	operationFactory factory.OperationFactory,
	pairAnalyzer analyzer.PairAnalyzer,
	events observer.Subject,
	options analyzer.AnalysisOptions,
) AssessmentService {
	return &assessmentService{
		imageRepo: imageRepository,
		factory:   operationFactory,
		analyzer:  pairAnalyzer,
		events:    events,
		options:   options,
		log:       logger.WithComponent("service"),
	}
}

// plan is everything derived from a request before any image is fetched
type plan struct {
	metrics         []metrics.Metric
	transformations []transform.Transformation
	roi             *images.ROI
	thresholds      *validation.ThresholdValidator
}

func (s *assessmentService) Assess(ctx context.Context, request models.AssessmentRequest) (*models.AssessmentResponse, error) {
	start := time.Now()

	p, err := s.prepare(request)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(p.metrics))
	for i, m := range p.metrics {
		names[i] = m.Name()
	}
	s.notify(ctx, observer.AssessmentEvent{
		EventType: observer.AssessmentStarted,
		Source:    request.Measured,
		Metrics:   names,
	})

	response, err := s.assess(ctx, request, p)
	if err != nil {
		s.notify(ctx, observer.AssessmentEvent{
			EventType:      observer.AssessmentFailed,
			Source:         request.Measured,
			Metrics:        names,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	response.Timestamp = start.UTC().Format(time.RFC3339)
	response.ProcessingTimeSec = time.Since(start).Seconds()

	if len(response.Issues) > 0 {
		s.notify(ctx, observer.AssessmentEvent{
			EventType: observer.ThresholdsFailed,
			Source:    request.Measured,
			Metrics:   names,
			Metadata:  map[string]interface{}{"issues": len(response.Issues)},
		})
	}
	s.notify(ctx, observer.AssessmentEvent{
		EventType:      observer.AssessmentCompleted,
		Source:         request.Measured,
		Metrics:        names,
		ProcessingTime: time.Since(start),
		Success:        response.Passed,
	})
	return response, nil
}

// prepare validates the request and builds its operations
func (s *assessmentService) prepare(request models.AssessmentRequest) (*plan, error) {
	if err := s.ValidateSource(request.Reference); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if err := s.ValidateSource(request.Measured); err != nil {
		return nil, fmt.Errorf("measured: %w", err)
	}

	built, err := s.factory.Build(request.Metrics, request.Kwargs)
	if err != nil {
		return nil, err
	}
	if len(built.Transformations) > 0 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s is a transformation, not a metric", built.Transformations[0].Name()), nil)
	}
	if len(built.Metrics) == 0 {
		return nil, apperrors.NewValidationError("no known metric requested", nil).
			WithDetails(strings.Join(request.Metrics, ", "))
	}

	chain, err := s.factory.Build(request.Transformations, request.Kwargs)
	if err != nil {
		return nil, err
	}
	if len(chain.Metrics) > 0 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s is a metric, not a transformation", chain.Metrics[0].Name()), nil)
	}

	p := &plan{metrics: built.Metrics, transformations: chain.Transformations}

	if strings.TrimSpace(request.ROI) != "" {
		roi, err := images.ParseROI(request.ROI)
		if err != nil {
			return nil, err
		}
		p.roi = &roi
	}

	if p.thresholds, err = validation.NewThresholdValidator(request.Thresholds); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *assessmentService) assess(ctx context.Context, request models.AssessmentRequest, p *plan) (*models.AssessmentResponse, error) {
	reference, measured, err := s.fetchPair(ctx, request.Reference, request.Measured)
	if err != nil {
		return nil, err
	}

	response := &models.AssessmentResponse{
		Reference: metadataOf(request.Reference, reference),
		Measured:  metadataOf(request.Measured, measured),
	}

	// The fetched image is never modified; transformations work on a clone
	if len(p.transformations) > 0 {
		if measured, err = transform.Apply(measured, p.transformations); err != nil {
			return nil, fmt.Errorf("transform measured image: %w", err)
		}
		for _, t := range p.transformations {
			response.Transformations = append(response.Transformations, t.Name())
		}
	}

	pair := images.NewPair(reference, measured)
	if p.roi != nil {
		if pair, err = pair.Crop(*p.roi); err != nil {
			return nil, err
		}
		response.ROI = p.roi.String()
	}

	if !pair.MatchingDType() {
		s.log.WithFields(logrus.Fields{
			"reference_dtype": pair.Reference.DType(),
			"measured_dtype":  pair.Measured.DType(),
		}).Warn("Comparing images of different dtypes")
	}

	results, err := s.analyzer.Run(ctx, pair, p.metrics, s.options)
	if err != nil {
		return nil, err
	}

	response.Passed = true
	for _, r := range results {
		mr := models.MetricResult{Metric: r.Metric, DurationSec: r.Duration.Seconds()}
		if r.Err != nil {
			response.Passed = false
			mr.Error = r.Err.Error()
			var appErr *apperrors.AppError
			if errors.As(r.Err, &appErr) {
				mr.ErrorType = string(appErr.Type)
			}
		} else {
			v := models.Score(r.Value)
			mr.Value = &v
		}
		response.Results = append(response.Results, mr)
	}

	response.Issues = p.thresholds.Validate(analyzer.Values(results))
	if validation.HasCriticalIssues(response.Issues) {
		response.Passed = false
	}
	return response, nil
}

// fetchPair loads both images concurrently
func (s *assessmentService) fetchPair(ctx context.Context, reference, measured string) (*images.Image, *images.Image, error) {
	sources := [2]string{reference, measured}
	labels := [2]string{"reference", "measured"}
	var imgs [2]*images.Image
	var errs [2]error

	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := time.Now()
			imgs[i], errs[i] = s.imageRepo.FetchImage(ctx, sources[i])

			event := observer.AssessmentEvent{
				EventType:      observer.ImageFetched,
				Source:         sources[i],
				ProcessingTime: time.Since(start),
				Success:        errs[i] == nil,
				Metadata:       map[string]interface{}{"role": labels[i]},
			}
			if errs[i] != nil {
				event.EventType = observer.ImageFetchFailed
				event.ErrorMessage = errs[i].Error()
			}
			s.notify(ctx, event)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", labels[i], err)
		}
	}
	return imgs[0], imgs[1], nil
}

func (s *assessmentService) Operations() []operation.Info {
	return s.factory.Describe()
}

func (s *assessmentService) ValidateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return apperrors.NewValidationError("source cannot be empty", nil)
	}
	return s.imageRepo.ValidateSource(source)
}

func (s *assessmentService) notify(ctx context.Context, event observer.AssessmentEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func metadataOf(source string, img *images.Image) models.ImageMetadata {
	h, w := img.Dims()
	return models.ImageMetadata{
		Source:   source,
		Name:     img.Name,
		Width:    w,
		Height:   h,
		Channels: img.ChannelCount(),
		DType:    string(img.DType()),
	}
}
