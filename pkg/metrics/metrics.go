package metrics

import (
	"errors"
	"net/http"
)

var (
	ErrSchemaMismatch = errors.New("instrument already registered with a different schema")
	ErrInvalidName    = errors.New("instrument name is required")
)

// Registry creates process-wide instruments on first use and hands back the
// same instrument on every later request with the same schema.
type Registry interface {
	Counter(name, help string, labels []string) (CounterHandle, error)
	Gauge(name, help string, labels []string) (GaugeHandle, error)
	Histogram(name, help string, buckets []float64, labels []string) (HistogramHandle, error)
}

// Handles are safe for concurrent use. Label values are positional and must
// match the label names the instrument was created with.

type CounterHandle interface {
	Inc(values ...string)
}

type GaugeHandle interface {
	Add(delta float64, values ...string)
}

type HistogramHandle interface {
	Observe(v float64, values ...string)
}

type Metrics interface {
	Registry

	// Infrastructure (HTTP)
	ObserveHTTPRequestDuration(method, path, statusCode string, duration float64)

	// Exposition
	Handler() http.Handler
}
