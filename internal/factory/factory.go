package factory

import (
	"fmt"
	"strings"

	"go-image-assessor/internal/logger"
	"go-image-assessor/internal/metrics"
	"go-image-assessor/internal/operation"
	"go-image-assessor/internal/transform"

	"github.com/sirupsen/logrus"
)

// Instances are the operations built from one request, in request order
type Instances struct {
	Metrics         []metrics.Metric
	Transformations []transform.Transformation
}

// OperationFactory builds metrics and transformations from names and
// "<Name>-<key>=<value>" / "<Name>-<flag>" keyword tokens
type OperationFactory interface {
	Build(operations []string, kwargs []string) (*Instances, error)
	Describe() []operation.Info
}

type operationFactory struct {
	log *logrus.Entry
}

func NewOperationFactory() OperationFactory {
	return &operationFactory{log: logger.WithComponent("factory")}
}

// Build constructs every known operation. Unknown names are skipped with a
// warning; invalid or unexpected arguments fail the whole build.
func (f *operationFactory) Build(operations []string, kwargs []string) (*Instances, error) {
	out := &Instances{}
	for _, name := range operations {
		name = strings.TrimSpace(name)
		args := ParseKwargs(name, kwargs)

		if d, ok := metrics.Lookup(name); ok {
			m, err := d.Build(args)
			if err != nil {
				return nil, fmt.Errorf("build metric %s: %w", name, err)
			}
			out.Metrics = append(out.Metrics, m)
			continue
		}
		if d, ok := transform.Lookup(name); ok {
			t, err := d.Build(args)
			if err != nil {
				return nil, fmt.Errorf("build transformation %s: %w", name, err)
			}
			out.Transformations = append(out.Transformations, t)
			continue
		}

		f.log.WithField("operation", name).Warn("Skipping unknown operation")
	}

	f.log.WithFields(logrus.Fields{
		"metrics":         len(out.Metrics),
		"transformations": len(out.Transformations),
	}).Debug("Operations built")
	return out, nil
}

// Describe lists metrics then transformations with their parameters
func (f *operationFactory) Describe() []operation.Info {
	var infos []operation.Info
	for _, d := range metrics.Descriptors() {
		infos = append(infos, d.Info())
	}
	for _, d := range transform.Descriptors() {
		infos = append(infos, d.Info())
	}
	return infos
}

// ParseKwargs collects the tokens addressed to name. Dashes in keys become
// underscores and a token without "=" is a flag set to true.
func ParseKwargs(name string, kwargs []string) operation.Args {
	args := operation.Args{}
	prefix := name + "-"
	for _, token := range kwargs {
		token = strings.TrimSpace(token)
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		rest := token[len(prefix):]

		key, value, hasValue := strings.Cut(rest, "=")
		key = strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
		if key == "" {
			continue
		}
		if !hasValue {
			args[key] = true
			continue
		}
		args[key] = ParseLiteral(value)
	}
	return args
}
