package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AssessmentEvent represents an assessment lifecycle event
type AssessmentEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source,omitempty"`
	Metrics        []string               `json:"metrics,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of assessment event
type EventType string

const (
	// AssessmentStarted when a request passes validation
	AssessmentStarted EventType = "assessment_started"
	// AssessmentCompleted when results are produced, whether or not thresholds pass
	AssessmentCompleted EventType = "assessment_completed"
	// AssessmentFailed when no results can be produced
	AssessmentFailed EventType = "assessment_failed"
	// ImageFetched when a reference or measured image is decoded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a source cannot be fetched or decoded
	ImageFetchFailed EventType = "image_fetch_failed"
	// ThresholdsFailed when at least one metric is outside its bounds
	ThresholdsFailed EventType = "thresholds_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AssessmentEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AssessmentEvent)
}

// LoggingObserver logs assessment events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles assessment events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AssessmentEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if len(event.Metrics) > 0 {
		fields["metrics"] = event.Metrics
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AssessmentStarted:
		entry.Info("Assessment started")
	case AssessmentCompleted:
		entry.Info("Assessment completed")
	case AssessmentFailed:
		entry.Error("Assessment failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case ThresholdsFailed:
		entry.Warn("Metrics outside thresholds")
	default:
		entry.Info("Assessment event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps running counters of assessments
type MetricsObserver struct {
	mu                   sync.RWMutex
	totalAssessments     int64
	completedAssessments int64
	failedAssessments    int64
	thresholdFailures    int64
	fetchFailures        int64
	totalProcessingTime  time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles assessment events by collecting counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event AssessmentEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AssessmentStarted:
		o.totalAssessments++
	case AssessmentCompleted:
		o.completedAssessments++
		o.totalProcessingTime += event.ProcessingTime
	case AssessmentFailed:
		o.failedAssessments++
	case ThresholdsFailed:
		o.thresholdFailures++
	case ImageFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedAssessments > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedAssessments)
	}

	return map[string]interface{}{
		"total_assessments":     o.totalAssessments,
		"completed_assessments": o.completedAssessments,
		"failed_assessments":    o.failedAssessments,
		"threshold_failures":    o.thresholdFailures,
		"fetch_failures":        o.fetchFailures,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer by name
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers concurrently; a panicking observer is logged
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AssessmentEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
