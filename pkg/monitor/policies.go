package monitor

import "github.com/DioGolang/GoMonitor/pkg/metrics"

// Policies bundles the policies used across the service so they can be
// injected as one dependency.
type Policies struct {
	job      *Policy
	work     *Policy
	incoming *Policy
	outgoing *Policy
}

func NewPolicies(reg metrics.Registry, opts ...PolicyOption) (*Policies, error) {
	job, err := NewPolicy(reg, JobSchema, opts...)
	if err != nil {
		return nil, err
	}
	work, err := NewPolicy(reg, WorkSchema, opts...)
	if err != nil {
		return nil, err
	}
	incoming, err := NewPolicy(reg, IncomingMessageSchema, opts...)
	if err != nil {
		return nil, err
	}
	outgoing, err := NewPolicy(reg, OutgoingMessageSchema, opts...)
	if err != nil {
		return nil, err
	}
	return &Policies{job: job, work: work, incoming: incoming, outgoing: outgoing}, nil
}

func (p *Policies) Job(host, appName, jobName string) *LabeledMetric {
	return p.job.mustMetric(host, appName, jobName)
}

func (p *Policies) Work(host, appName, workName string) *LabeledMetric {
	return p.work.mustMetric(host, appName, workName)
}

func (p *Policies) IncomingMessage(host, appName, queue, exchange, routingKey string) *LabeledMetric {
	return p.incoming.mustMetric(host, appName, queue, exchange, routingKey)
}

func (p *Policies) OutgoingMessage(host, appName, exchange, routingKey string) *LabeledMetric {
	return p.outgoing.mustMetric(host, appName, exchange, routingKey)
}
