// Package metrics provides an eventbus.Interceptor that records dispatch
// counts and latency via OpenTelemetry, the same metrics library the
// rest of this module's dependency stack uses elsewhere.
package metrics

import (
	"context"
	"fmt"

	"eventcore/framework/core"
	"eventcore/framework/eventbus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Interceptor records events_posted_total, events_retried_total,
// events_failed_total, events_skipped_total and
// event_dispatch_duration_seconds for every dispatch that passes through
// the bus it is attached to.
type Interceptor struct {
	name             string
	order            int
	postedTotal      metric.Int64Counter
	retriedTotal     metric.Int64Counter
	failedTotal      metric.Int64Counter
	skippedTotal     metric.Int64Counter
	dispatchDuration metric.Float64Histogram
}

// New builds an Interceptor using the named meter, which should
// typically come from a MeterProvider set up with Setup. order places it
// within a bus's interceptor chain; pass a low value to measure as close
// to the raw dispatch as possible.
func New(meterName string, order int) (*Interceptor, error) {
	meter := otel.Meter(meterName)

	postedTotal, err := meter.Int64Counter(
		"events_posted_total",
		metric.WithDescription("Total number of event dispatch attempts started"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: events_posted_total: %w", err)
	}

	retriedTotal, err := meter.Int64Counter(
		"events_retried_total",
		metric.WithDescription("Total number of primary-handler retry attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: events_retried_total: %w", err)
	}

	failedTotal, err := meter.Int64Counter(
		"events_failed_total",
		metric.WithDescription("Total number of dispatches that reached a terminal failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: events_failed_total: %w", err)
	}

	skippedTotal, err := meter.Int64Counter(
		"events_skipped_total",
		metric.WithDescription("Total number of dispatches skipped by an idempotency check"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: events_skipped_total: %w", err)
	}

	dispatchDuration, err := meter.Float64Histogram(
		"event_dispatch_duration_seconds",
		metric.WithDescription("Time from dispatch start to its terminal outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: event_dispatch_duration_seconds: %w", err)
	}

	return &Interceptor{
		name:             meterName,
		order:            order,
		postedTotal:      postedTotal,
		retriedTotal:     retriedTotal,
		failedTotal:      failedTotal,
		skippedTotal:     skippedTotal,
		dispatchDuration: dispatchDuration,
	}, nil
}

// Order reports this interceptor's place in the chain.
func (m *Interceptor) Order() int { return m.order }

// Name satisfies core.Component.
func (m *Interceptor) Name() string { return m.name }

// Type satisfies core.Component, reporting a metrics Interceptor as a
// handler-style component attached to a bus's dispatch path.
func (m *Interceptor) Type() core.ComponentType { return core.ComponentTypeHandler }

// BeforeProcessing records the attempt.
func (m *Interceptor) BeforeProcessing(ctx context.Context, event any, ictx *eventbus.InterceptorContext) {
	m.postedTotal.Add(ctx, 1, metric.WithAttributes(eventTypeAttr(event)))
}

// AfterProcessingSuccess records a skip when the idempotency check
// short-circuited delivery, and nothing else in that case; otherwise it
// records any retries consumed and the dispatch duration.
func (m *Interceptor) AfterProcessingSuccess(ctx context.Context, event any, ictx *eventbus.InterceptorContext) {
	attrs := eventTypeAttr(event)
	if ictx.Skipped() {
		m.skippedTotal.Add(ctx, 1, metric.WithAttributes(attrs))
		return
	}
	if rc := ictx.RetryCount(); rc > 0 {
		m.retriedTotal.Add(ctx, int64(rc), metric.WithAttributes(attrs))
	}
	m.recordDuration(ctx, event, ictx)
}

// AfterProcessingFailure records the terminal failure, its
// classification, any retries consumed, and the dispatch duration.
func (m *Interceptor) AfterProcessingFailure(ctx context.Context, event any, ictx *eventbus.InterceptorContext, fc *eventbus.FailureContext) {
	attrs := eventTypeAttr(event)
	m.failedTotal.Add(ctx, 1, metric.WithAttributes(attrs, attribute.String("classification", fc.Classification().String())))
	if rc := ictx.RetryCount(); rc > 0 {
		m.retriedTotal.Add(ctx, int64(rc), metric.WithAttributes(attrs))
	}
	m.recordDuration(ctx, event, ictx)
}

func (m *Interceptor) recordDuration(ctx context.Context, event any, ictx *eventbus.InterceptorContext) {
	duration := ictx.EndTime().Sub(ictx.StartTime())
	if duration < 0 {
		return
	}
	m.dispatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(eventTypeAttr(event)))
}

func eventTypeAttr(event any) attribute.KeyValue {
	return attribute.String("event.type", fmt.Sprintf("%T", event))
}
