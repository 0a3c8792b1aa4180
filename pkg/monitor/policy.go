package monitor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DioGolang/GoMonitor/pkg/metrics"
)

var ErrLabelArity = errors.New("label values do not match schema")

// Schema describes one family of instruments: the label names shared by the
// counter, histogram and gauge, and the status vocabulary of the counter.
type Schema struct {
	Name        string
	Labels      []string
	Success     string
	Failure     string
	StatusLabel string
	Buckets     []float64

	CounterName    string
	CounterHelp    string
	LatencyName    string
	LatencyHelp    string
	InProgressName string
	InProgressHelp string
}

var (
	JobSchema = Schema{
		Name:           "job",
		Labels:         []string{"host", "app_name", "job_name"},
		Success:        "ok",
		Failure:        "error",
		CounterName:    "job_called",
		CounterHelp:    "Number of times job was called",
		LatencyName:    "job_latency",
		LatencyHelp:    "Elapsed time per job",
		InProgressName: "job_in_progress",
		InProgressHelp: "Job in progress",
	}

	WorkSchema = Schema{
		Name:           "work",
		Labels:         []string{"host", "app_name", "work_name"},
		Success:        "ok",
		Failure:        "error",
		CounterName:    "work_called",
		CounterHelp:    "Number of times work was called",
		LatencyName:    "work_latency",
		LatencyHelp:    "Elapsed time per work",
		InProgressName: "work_in_progress",
		InProgressHelp: "Work in progress",
	}

	IncomingMessageSchema = Schema{
		Name:           "incoming_message",
		Labels:         []string{"host", "app_name", "queue", "exchange", "routing_key"},
		Success:        "ack",
		Failure:        "nack",
		CounterName:    "rabbitmq_messages_received",
		CounterHelp:    "Number of messages received",
		LatencyName:    "rabbitmq_received_message_latency",
		LatencyHelp:    "Elapsed time per received message",
		InProgressName: "rabbitmq_receive_message_in_progress",
		InProgressHelp: "Incoming messages in progress",
	}

	OutgoingMessageSchema = Schema{
		Name:           "outgoing_message",
		Labels:         []string{"host", "app_name", "exchange", "routing_key"},
		Success:        "success",
		Failure:        "failure",
		CounterName:    "rabbitmq_messages_sent",
		CounterHelp:    "Number of messages sent",
		LatencyName:    "rabbitmq_sent_message_latency",
		LatencyHelp:    "Elapsed time per sent message",
		InProgressName: "rabbitmq_send_message_in_progress",
		InProgressHelp: "Outgoing messages in progress",
	}
)

func (s Schema) statusLabel() string {
	if s.StatusLabel == "" {
		return "status"
	}
	return s.StatusLabel
}

func (s Schema) validate() error {
	switch {
	case s.CounterName == "" || s.LatencyName == "" || s.InProgressName == "":
		return fmt.Errorf("schema %q: instrument names are required", s.Name)
	case s.Success == "" || s.Failure == "" || s.Success == s.Failure:
		return fmt.Errorf("schema %q: distinct success and failure statuses are required", s.Name)
	case slices.Contains(s.Labels, s.statusLabel()):
		return fmt.Errorf("schema %q: label %q is reserved for the status", s.Name, s.statusLabel())
	}
	return nil
}

// Policy owns references to the three shared instruments of a schema.
// It is safe for concurrent use; the metrics it creates are not.
type Policy struct {
	schema     Schema
	clock      Clock
	calls      metrics.CounterHandle
	latency    metrics.HistogramHandle
	inProgress metrics.GaugeHandle
}

type PolicyOption func(*Policy)

// WithClock replaces the clock used to time metrics created by the policy.
func WithClock(c Clock) PolicyOption {
	return func(p *Policy) { p.clock = c }
}

func NewPolicy(reg metrics.Registry, s Schema, opts ...PolicyOption) (*Policy, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	counterLabels := append(slices.Clone(s.Labels), s.statusLabel())

	calls, err := reg.Counter(s.CounterName, s.CounterHelp, counterLabels)
	if err != nil {
		return nil, fmt.Errorf("%s counter: %w", s.Name, err)
	}
	latency, err := reg.Histogram(s.LatencyName, s.LatencyHelp, s.Buckets, s.Labels)
	if err != nil {
		return nil, fmt.Errorf("%s latency: %w", s.Name, err)
	}
	inProgress, err := reg.Gauge(s.InProgressName, s.InProgressHelp, s.Labels)
	if err != nil {
		return nil, fmt.Errorf("%s in progress: %w", s.Name, err)
	}

	p := &Policy{
		schema:     s,
		clock:      SystemClock,
		calls:      calls,
		latency:    latency,
		inProgress: inProgress,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Policy) Schema() Schema { return p.schema }

// Metric returns a fresh metric for one invocation. Values are positional in
// schema order; empty values are allowed.
func (p *Policy) Metric(values ...string) (*LabeledMetric, error) {
	if len(values) != len(p.schema.Labels) {
		return nil, fmt.Errorf("%w: %s expects %d values %v, got %d",
			ErrLabelArity, p.schema.Name, len(p.schema.Labels), p.schema.Labels, len(values))
	}
	return &LabeledMetric{
		Timer:  NewTimer(p.clock),
		policy: p,
		values: slices.Clone(values),
	}, nil
}

func (p *Policy) mustMetric(values ...string) *LabeledMetric {
	m, err := p.Metric(values...)
	if err != nil {
		panic(err)
	}
	return m
}

// LabeledMetric is a Timer that publishes its outcome into the policy's
// instruments for a fixed label tuple.
type LabeledMetric struct {
	*Timer
	policy *Policy
	values []string
}

func (m *LabeledMetric) OnEnter() {
	m.Timer.OnEnter()
	m.policy.inProgress.Add(1, m.values...)
}

func (m *LabeledMetric) OnExit(err error) {
	m.Timer.OnExit(err)

	p := m.policy
	p.calls.Inc(append(slices.Clone(m.values), m.Status())...)
	p.latency.Observe(m.Elapsed().Seconds(), m.values...)
	p.inProgress.Add(-1, m.values...)
}

// Status classifies the recorded outcome. Only meaningful after exit.
func (m *LabeledMetric) Status() string {
	if m.Failed() {
		return m.policy.schema.Failure
	}
	return m.policy.schema.Success
}

func (m *LabeledMetric) Labels() []string { return slices.Clone(m.values) }
