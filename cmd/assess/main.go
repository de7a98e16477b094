package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go-image-assessor/internal/analyzer"
	"go-image-assessor/internal/config"
	"go-image-assessor/internal/factory"
	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/observer"
	"go-image-assessor/internal/repository"
	"go-image-assessor/internal/service"
	"go-image-assessor/pkg/models"
	"go-image-assessor/pkg/validation"

	// Registers the OCRF metric
	_ "go-image-assessor/internal/metrics/ocrfidelity"

	"github.com/spf13/pflag"
)

const (
	exitError  = 1
	exitFailed = 2
)

// cliConfig holds the parsed command line
type cliConfig struct {
	Reference       string
	Measured        string
	Metrics         []string
	Kwargs          []string
	Transformations []string
	ROI             string
	Min             []string
	Max             []string
	Mode            string
	Workers         int
	Timeout         time.Duration
	JSON            bool
	NoProgress      bool
	List            bool
	LogLevel        string
}

func main() {
	cfg := parseFlags()

	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.LogLevel)

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(run(cfg))
}

// parseFlags defines and parses command-line flags
func parseFlags() *cliConfig {
	cfg := &cliConfig{}

	pflag.StringVarP(&cfg.Reference, "reference", "r", "", "Reference image (path, file://, http(s):// or azblob://).")
	pflag.StringVarP(&cfg.Measured, "measured", "m", "", "Measured image compared against the reference.")
	pflag.StringSliceVarP(&cfg.Metrics, "metrics", "M", []string{"MSE", "PSNR", "SSIM"}, "Metrics to compute, in order.")
	pflag.StringArrayVarP(&cfg.Kwargs, "kwarg", "k", nil, "Operation argument as Name-key=value or Name-flag. Repeatable.")
	pflag.StringSliceVarP(&cfg.Transformations, "transform", "t", nil, "Transformations applied to the measured image, in order.")
	pflag.StringVar(&cfg.ROI, "roi", "", "Region of interest as x0xy0,x1xy1.")
	pflag.StringArrayVar(&cfg.Min, "min", nil, "Lower bound as METRIC=VALUE. Repeatable.")
	pflag.StringArrayVar(&cfg.Max, "max", nil, "Upper bound as METRIC=VALUE. Repeatable.")
	pflag.StringVar(&cfg.Mode, "mode", "color", "Image load mode (color, unchanged).")
	pflag.IntVarP(&cfg.Workers, "workers", "w", 0, "Metric workers; 0 uses the number of CPUs.")
	pflag.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "Overall time limit.")
	pflag.BoolVar(&cfg.JSON, "json", false, "Print the result as JSON.")
	pflag.BoolVar(&cfg.NoProgress, "no-progress", false, "Disable the progress spinner.")
	pflag.BoolVar(&cfg.List, "list", false, "List metrics and transformations with their parameters.")
	pflag.StringVar(&cfg.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error).")

	pflag.Parse()
	return cfg
}

// validateConfig checks if the provided configuration is valid
func validateConfig(cfg *cliConfig) error {
	if cfg.List {
		return nil
	}
	if cfg.Reference == "" {
		return fmt.Errorf("--reference/-r flag is required")
	}
	if cfg.Measured == "" {
		return fmt.Errorf("--measured/-m flag is required")
	}
	if len(cfg.Metrics) == 0 {
		return fmt.Errorf("--metrics/-M must name at least one metric")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must not be negative")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	switch strings.ToLower(cfg.Mode) {
	case "color", "unchanged":
	default:
		return fmt.Errorf("unsupported mode: %s. Supported modes are color, unchanged", cfg.Mode)
	}
	return nil
}

func run(cfg *cliConfig) int {
	svc, closeFn, err := newService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitError
	}
	defer closeFn()

	if cfg.List {
		fmt.Println(renderOperations(svc.Operations()))
		return 0
	}

	request, err := buildRequest(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitError
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	assess := func() (*models.AssessmentResponse, error) { return svc.Assess(ctx, request) }

	var resp *models.AssessmentResponse
	if cfg.JSON || cfg.NoProgress {
		resp, err = assess()
	} else {
		resp, err = runWithProgress(cancel, request, assess)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assessment error: %v\n", err)
		return exitError
	}

	if cfg.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
			return exitError
		}
	} else {
		fmt.Println(renderResponse(resp))
	}
	return exitCode(resp)
}

// newService wires local, web and, when credentials are present, blob sources
func newService(cfg *cliConfig) (service.AssessmentService, func(), error) {
	appCfg := &config.Config{
		ImageFetchTimeout: cfg.Timeout,
		LoadMode:          strings.ToLower(cfg.Mode),
		AllowedSchemes:    []string{"file", "http", "https"},
		AzureAccountName:  os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:   os.Getenv("AZURE_STORAGE_KEY"),
	}
	if appCfg.AzureEnabled() {
		appCfg.AllowedSchemes = append(appCfg.AllowedSchemes, "azblob")
	}

	storageFactory, err := factory.NewStorageFactory(appCfg)
	if err != nil {
		return nil, nil, err
	}
	fetchers, err := storageFactory.Fetchers()
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewImageRepository(fetchers,
		validation.NewSourceValidatorWithOptions(appCfg.AllowedSchemes, nil))

	options := analyzer.DefaultOptions().WithWorkers(cfg.Workers)
	pairAnalyzer := analyzer.NewPairAnalyzer(options)

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))

	svc := service.NewAssessmentService(repo, factory.NewOperationFactory(), pairAnalyzer, events, options)
	return svc, func() { pairAnalyzer.Close() }, nil
}

func buildRequest(cfg *cliConfig) (models.AssessmentRequest, error) {
	thresholds, err := parseThresholds(cfg.Min, cfg.Max)
	if err != nil {
		return models.AssessmentRequest{}, err
	}
	return models.AssessmentRequest{
		Reference:       cfg.Reference,
		Measured:        cfg.Measured,
		Metrics:         cfg.Metrics,
		Kwargs:          cfg.Kwargs,
		Transformations: cfg.Transformations,
		ROI:             cfg.ROI,
		Thresholds:      thresholds,
	}, nil
}

// parseThresholds merges METRIC=VALUE bounds into one threshold per metric
func parseThresholds(minBounds, maxBounds []string) (map[string]models.Threshold, error) {
	thresholds := map[string]models.Threshold{}

	for _, bound := range minBounds {
		name, v, err := parseBound("--min", bound)
		if err != nil {
			return nil, err
		}
		t := thresholds[name]
		t.Min = &v
		thresholds[name] = t
	}
	for _, bound := range maxBounds {
		name, v, err := parseBound("--max", bound)
		if err != nil {
			return nil, err
		}
		t := thresholds[name]
		t.Max = &v
		thresholds[name] = t
	}

	if len(thresholds) == 0 {
		return nil, nil
	}
	return thresholds, nil
}

func parseBound(flag, bound string) (string, float64, error) {
	name, value, ok := strings.Cut(bound, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("%s %q must have the form METRIC=VALUE", flag, bound)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s %q: value must be a number", flag, bound)
	}
	return name, v, nil
}

func exitCode(resp *models.AssessmentResponse) int {
	if resp.Passed {
		return 0
	}
	return exitFailed
}
