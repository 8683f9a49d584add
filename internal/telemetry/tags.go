package telemetry

import (
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Tag keys attached to every metric observation.
const (
	TagEnvironment = "Environment"
	TagRol         = "Rol"
)

// TagSet is the fixed attribute set shared by all observations. It is built
// once at startup and never mutated.
type TagSet struct {
	set attribute.Set
	opt metric.MeasurementOption
}

// NewTagSet builds the tag set for an environment and host name.
func NewTagSet(environment, host string) TagSet {
	set := attribute.NewSet(
		attribute.String(TagEnvironment, environment),
		attribute.String(TagRol, host),
	)
	return TagSet{set: set, opt: metric.WithAttributeSet(set)}
}

// DefaultTagSet uses the machine host name as the role tag.
func DefaultTagSet(environment string) TagSet {
	return NewTagSet(environment, Hostname())
}

func (t TagSet) Attributes() attribute.Set { return t.set }

// Option returns the measurement option to pass to Add and Record.
func (t TagSet) Option() metric.MeasurementOption {
	if t.opt == nil {
		return metric.WithAttributeSet(t.set)
	}
	return t.opt
}

// Hostname returns the machine name, or "unknown" when it cannot be read.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
