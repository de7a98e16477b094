package container

import (
	"fmt"
	"net/http"

	"go-image-assessor/internal/analyzer"
	"go-image-assessor/internal/config"
	"go-image-assessor/internal/factory"
	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/observer"
	"go-image-assessor/internal/repository"
	"go-image-assessor/internal/service"
	"go-image-assessor/internal/transport"
	"go-image-assessor/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	imageRepository   repository.ImageRepository
	pairAnalyzer      analyzer.PairAnalyzer
	events            *observer.EventPublisher
	stats             *observer.MetricsObserver
	assessmentService service.AssessmentService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	storageFactory, err := factory.NewStorageFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage factory: %w", err)
	}
	fetchers, err := storageFactory.Fetchers()
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetchers: %w", err)
	}

	imageRepository := repository.NewImageRepository(
		fetchers,
		validation.NewSourceValidatorWithOptions(cfg.AllowedSchemes, nil),
	)

	options := analyzer.DefaultOptions().
		WithWorkers(cfg.MaxWorkers).
		WithTimeout(cfg.AnalysisTimeout)
	pairAnalyzer := analyzer.NewPairAnalyzer(options)

	stats := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(stats)

	assessmentService := service.NewAssessmentService(
		imageRepository,
		factory.NewOperationFactory(),
		pairAnalyzer,
		events,
		options,
	)
	handler := transport.NewHandler(assessmentService, stats, cfg)

	return &Container{
		config:            cfg,
		imageRepository:   imageRepository,
		pairAnalyzer:      pairAnalyzer,
		events:            events,
		stats:             stats,
		assessmentService: assessmentService,
		handler:           handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the assessment service
func (c *Container) Service() service.AssessmentService {
	return c.assessmentService
}

// Close releases the worker pool
func (c *Container) Close() error {
	return c.pairAnalyzer.Close()
}
