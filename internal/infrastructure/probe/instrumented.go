package probe

import (
	"context"

	"github.com/crm/gateway/internal/domain/probe"
	"github.com/crm/gateway/internal/infrastructure/telemetry"
)

// InstrumentedProber decorates a Prober with probe metrics. Transport
// errors count as failures; the wrapped result passes through untouched.
type InstrumentedProber struct {
	next    probe.Prober
	metrics *telemetry.GatewayMetrics
}

// NewInstrumentedProber wraps next with metric recording. A nil metrics
// handle returns next unchanged.
func NewInstrumentedProber(next probe.Prober, metrics *telemetry.GatewayMetrics) probe.Prober {
	if metrics == nil {
		return next
	}
	return &InstrumentedProber{next: next, metrics: metrics}
}

// Probe delegates to the wrapped prober and records outcome and latency
func (p *InstrumentedProber) Probe(ctx context.Context, req probe.Request) (probe.Result, error) {
	result, err := p.next.Probe(ctx, req)
	if err != nil {
		p.metrics.RecordProbe(ctx, req.Provider.String(), false, 0)
		return result, err
	}
	p.metrics.RecordProbe(ctx, req.Provider.String(), result.Success, result.Latency)
	return result, err
}
