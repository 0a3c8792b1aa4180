package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

type instrument struct {
	kind      kind
	labels    []string
	collector prometheus.Collector
	handle    any
}

type Prometheus struct {
	registry     *prometheus.Registry
	mu           sync.Mutex
	instruments  map[string]*instrument
	httpDuration *prometheus.HistogramVec
}

func NewPrometheusMetrics(reg *prometheus.Registry, serviceName string) *Prometheus {
	m := &Prometheus{
		registry:    reg,
		instruments: make(map[string]*instrument),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "app_http_duration_seconds",
			Help:        "Duration of HTTP requests.",
			Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"method", "path", "status_code"}),
	}

	reg.MustRegister(m.httpDuration)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Counter registers name with a "_total" suffix on exposition.
func (p *Prometheus) Counter(name, help string, labels []string) (CounterHandle, error) {
	h, err := p.lookup(name, kindCounter, labels, func() (prometheus.Collector, any) {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: counterName(name),
			Help: help,
		}, labels)
		return vec, counter{vec: vec}
	}, func(c prometheus.Collector) (any, bool) {
		vec, ok := c.(*prometheus.CounterVec)
		return counter{vec: vec}, ok
	})
	if err != nil {
		return nil, err
	}
	return h.(CounterHandle), nil
}

func (p *Prometheus) Gauge(name, help string, labels []string) (GaugeHandle, error) {
	h, err := p.lookup(name, kindGauge, labels, func() (prometheus.Collector, any) {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, labels)
		return vec, gauge{vec: vec}
	}, func(c prometheus.Collector) (any, bool) {
		vec, ok := c.(*prometheus.GaugeVec)
		return gauge{vec: vec}, ok
	})
	if err != nil {
		return nil, err
	}
	return h.(GaugeHandle), nil
}

// Histogram uses prometheus.DefBuckets when buckets is empty.
func (p *Prometheus) Histogram(name, help string, buckets []float64, labels []string) (HistogramHandle, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	h, err := p.lookup(name, kindHistogram, labels, func() (prometheus.Collector, any) {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: buckets,
		}, labels)
		return vec, histogram{vec: vec}
	}, func(c prometheus.Collector) (any, bool) {
		vec, ok := c.(*prometheus.HistogramVec)
		return histogram{vec: vec}, ok
	})
	if err != nil {
		return nil, err
	}
	return h.(HistogramHandle), nil
}

func (p *Prometheus) ObserveHTTPRequestDuration(method, path, code string, duration float64) {
	p.httpDuration.WithLabelValues(method, path, code).Observe(duration)
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) lookup(
	name string,
	k kind,
	labels []string,
	build func() (prometheus.Collector, any),
	adopt func(prometheus.Collector) (any, bool),
) (any, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if inst, ok := p.instruments[name]; ok {
		if inst.kind != k || !slices.Equal(inst.labels, labels) {
			return nil, fmt.Errorf("%w: %s is a %s with labels %v, requested %s with labels %v",
				ErrSchemaMismatch, name, inst.kind, inst.labels, k, labels)
		}
		return inst.handle, nil
	}

	collector, handle := build()
	if err := p.registry.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register %s %s: %w", k, name, err)
		}
		adopted, ok := adopt(are.ExistingCollector)
		if !ok {
			return nil, fmt.Errorf("%w: %s is registered as %T", ErrSchemaMismatch, name, are.ExistingCollector)
		}
		collector, handle = are.ExistingCollector, adopted
	}

	p.instruments[name] = &instrument{
		kind:      k,
		labels:    slices.Clone(labels),
		collector: collector,
		handle:    handle,
	}
	return handle, nil
}

func counterName(name string) string {
	if strings.HasSuffix(name, "_total") {
		return name
	}
	return name + "_total"
}

type counter struct{ vec *prometheus.CounterVec }

func (c counter) Inc(values ...string) { c.vec.WithLabelValues(values...).Inc() }

type gauge struct{ vec *prometheus.GaugeVec }

func (g gauge) Add(delta float64, values ...string) { g.vec.WithLabelValues(values...).Add(delta) }

type histogram struct{ vec *prometheus.HistogramVec }

func (h histogram) Observe(v float64, values ...string) { h.vec.WithLabelValues(values...).Observe(v) }
