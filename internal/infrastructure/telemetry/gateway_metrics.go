// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GatewayMetrics tracks provider probes, webhook traffic, and outbound relays.
type GatewayMetrics struct {
	logger *zap.Logger

	probeTotal    *Counter
	probeDuration *Histogram

	webhookUpdatesTotal *Counter
	relayMessagesTotal  *Counter
	relayChunksTotal    *Counter
}

// Webhook update outcomes for the outcome attribute.
const (
	OutcomeRelayed    = "relayed"
	OutcomeVerified   = "verified"
	OutcomeDuplicate  = "duplicate"
	OutcomeIgnored    = "ignored"
	OutcomeRejected   = "rejected"
	OutcomeMalformed  = "malformed"
	OutcomeFailed     = "failed"
	OutcomeSuccessful = "success"
)

// GatewayMetricsConfig holds configuration for gateway metrics.
type GatewayMetricsConfig struct {
	Provider *MeterProvider
	Logger   *zap.Logger
}

// NewGatewayMetrics creates a new GatewayMetrics instance.
func NewGatewayMetrics(cfg GatewayMetricsConfig) (*GatewayMetrics, error) {
	if cfg.Provider == nil {
		return nil, ErrMeterProviderNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := cfg.Provider.Meter(TracerName)
	gm := &GatewayMetrics{logger: logger}

	var err error

	gm.probeTotal, err = NewCounter(
		meter,
		"gateway_probe_total",
		"Total number of provider probes",
		"{probes}",
	)
	if err != nil {
		return nil, err
	}

	gm.probeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "gateway_probe_duration_seconds",
		Description: "Latency of provider probes",
		Unit:        "s",
		Boundaries:  ProbeDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	gm.webhookUpdatesTotal, err = NewCounter(
		meter,
		"gateway_webhook_updates_total",
		"Total number of Telegram webhook updates received",
		"{updates}",
	)
	if err != nil {
		return nil, err
	}

	gm.relayMessagesTotal, err = NewCounter(
		meter,
		"gateway_relay_messages_total",
		"Total number of messages relayed to Telegram",
		"{messages}",
	)
	if err != nil {
		return nil, err
	}

	gm.relayChunksTotal, err = NewCounter(
		meter,
		"gateway_relay_chunks_total",
		"Total number of outbound message chunks sent to Telegram",
		"{chunks}",
	)
	if err != nil {
		return nil, err
	}

	return gm, nil
}

// RecordProbe records a provider probe attempt with its outcome and latency.
func (gm *GatewayMetrics) RecordProbe(ctx context.Context, provider string, success bool, d time.Duration) {
	outcome := OutcomeSuccessful
	if !success {
		outcome = OutcomeFailed
	}
	attrs := []attribute.KeyValue{
		AttrProvider.String(provider),
		AttrOutcome.String(outcome),
	}
	gm.probeTotal.Inc(ctx, attrs...)
	gm.probeDuration.RecordDuration(ctx, d, attrs...)
}

// RecordWebhookUpdate records an inbound webhook update and how it was handled.
func (gm *GatewayMetrics) RecordWebhookUpdate(ctx context.Context, outcome string) {
	gm.webhookUpdatesTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordRelay records an outbound relay and how many chunks it took.
func (gm *GatewayMetrics) RecordRelay(ctx context.Context, chunks int, success bool) {
	outcome := OutcomeSuccessful
	if !success {
		outcome = OutcomeFailed
	}
	gm.relayMessagesTotal.Inc(ctx, AttrOutcome.String(outcome))
	if chunks > 0 {
		gm.relayChunksTotal.Add(ctx, int64(chunks), AttrOutcome.String(outcome))
	}
}

// ErrMeterProviderNil is returned when the meter provider is nil.
var ErrMeterProviderNil = &MetricsError{Op: "NewGatewayMetrics", Err: "meter provider cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
