// Package metrics implements full-reference image quality metrics.
//
// Every metric binds its configuration at construction and computes a
// scalar from an images.Pair without modifying it. Metrics hold no state
// between calls, so one instance may serve concurrent Analyze calls.
package metrics

import (
	"fmt"
	"sort"
	"sync"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
	"go-image-assessor/internal/operation"
)

// Metric compares the measured image of a pair against its reference
type Metric interface {
	Name() string
	Analyze(pair *images.Pair) (float64, error)
}

// Descriptor registers a metric constructor with its parameter schema
type Descriptor struct {
	Name        string
	Description string
	Params      []operation.Param
	New         func(args operation.Args) (Metric, error)
}

// Info describes the descriptor for listings
func (d Descriptor) Info() operation.Info {
	params := d.Params
	if params == nil {
		params = []operation.Param{}
	}
	return operation.Info{
		Name:        d.Name,
		Kind:        operation.KindMetric,
		Description: d.Description,
		Params:      params,
	}
}

// Build checks args against the schema and constructs the metric
func (d Descriptor) Build(args operation.Args) (Metric, error) {
	if err := args.CheckKnown(d.Name, d.Params); err != nil {
		return nil, err
	}
	return d.New(args)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Descriptor)
)

// Register makes a metric available by name. It panics on duplicates,
// like database/sql.Register, since registration happens in init.
func Register(d Descriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if d.New == nil {
		panic("metrics: Register constructor is nil for " + d.Name)
	}
	if _, dup := registry[d.Name]; dup {
		panic("metrics: Register called twice for " + d.Name)
	}
	registry[d.Name] = d
}

// Lookup finds a registered metric
func Lookup(name string) (Descriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns the sorted registered names
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all registered metrics sorted by name
func Descriptors() []Descriptor {
	names := Names()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		d, _ := Lookup(name)
		out = append(out, d)
	}
	return out
}

// channelsToAnalyze resolves a ChannelCount option; 0 means the reference's own count
func channelsToAnalyze(override int, pair *images.Pair) (int, error) {
	n := pair.Reference.ChannelCount()
	if override == 0 {
		return n, nil
	}
	if override > n || override > pair.Measured.ChannelCount() {
		return 0, apperrors.NewShapeError(
			fmt.Sprintf("channel count %d exceeds image channels (%d)", override, n), nil)
	}
	return override, nil
}

func validateChannelCount(n int) error {
	if n < 0 {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("channel count must be >= 0, got %d", n), nil)
	}
	return nil
}

var channelCountParam = operation.Param{
	Name:        "channels_num",
	Type:        operation.TypeInt,
	Default:     nil,
	Constraint:  ">= 0; None or 0 uses the image's channel count",
	Description: "number of channels to analyze",
}
