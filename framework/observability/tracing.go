// Copyright 2024 Potter Framework Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides distributed-tracing support for event
// dispatch: a TracingManager that installs a stdout-exporting
// TracerProvider, and a TracingInterceptor that wraps every dispatch in
// a span. It intentionally never talks to a network collector; shipping
// spans to Jaeger, Zipkin, or an OTLP endpoint is a host application's
// concern, not this module's.
package observability

import (
	"context"
	"fmt"
	"sync"

	"eventcore/framework/core"
	"eventcore/framework/eventbus"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const correlationIDKey = "X-Correlation-ID"

// TracingConfig configures a TracingManager.
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64 // 0.0 - 1.0
	Environment    string  // "development", "staging", "production"
}

// TracingManager owns the process-wide TracerProvider used to produce
// spans for event dispatch.
type TracingManager struct {
	config   TracingConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	running  bool
	mu       sync.RWMutex
}

// NewTracingManager builds a TracingManager. If config.Enabled is false
// it returns a manager whose Tracer is a no-op, so callers can wire it
// unconditionally.
func NewTracingManager(config TracingConfig) (*TracingManager, error) {
	if !config.Enabled {
		// The global TracerProvider is a no-op until SetTracerProvider is
		// called, so a disabled manager's tracer is a no-op for free.
		return &TracingManager{config: config, tracer: otel.Tracer("eventbus.disabled")}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("observability: build stdout exporter: %w", err)
	}

	sampler := sdktrace.TraceIDRatioBased(config.SamplingRate)
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracingManager{
		config:   config,
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
	}, nil
}

// Start satisfies core.Lifecycle.
func (tm *TracingManager) Start(ctx context.Context) error {
	tm.mu.Lock()
	tm.running = true
	tm.mu.Unlock()
	return nil
}

// Stop flushes and shuts down the underlying TracerProvider, if any.
func (tm *TracingManager) Stop(ctx context.Context) error {
	tm.mu.Lock()
	tm.running = false
	tm.mu.Unlock()

	if tm.provider != nil {
		return tm.provider.Shutdown(ctx)
	}
	return nil
}

// IsRunning satisfies core.Lifecycle.
func (tm *TracingManager) IsRunning() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running
}

// Tracer returns the tracer spans should be started from.
func (tm *TracingManager) Tracer() trace.Tracer {
	return tm.tracer
}

// Name satisfies core.Component.
func (tm *TracingManager) Name() string {
	if tm.config.ServiceName != "" {
		return tm.config.ServiceName
	}
	return "tracing-manager"
}

// Type satisfies core.Component, reporting a TracingManager as an adapter
// to the tracing backend.
func (tm *TracingManager) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// TracingInterceptor wraps every dispatch in a span obtained from tracer,
// recording the failure classification and cause when a dispatch ends in
// a terminal failure.
type TracingInterceptor struct {
	tracer trace.Tracer
	order  int
}

const spanContextKey = "observability.span"

// NewTracingInterceptor builds a TracingInterceptor. order places it
// within a bus's interceptor chain.
func NewTracingInterceptor(tracer trace.Tracer, order int) *TracingInterceptor {
	return &TracingInterceptor{tracer: tracer, order: order}
}

// Order reports this interceptor's place in the chain.
func (t *TracingInterceptor) Order() int { return t.order }

// BeforeProcessing starts a span and stashes it on ictx for the matching
// after-hook to close.
func (t *TracingInterceptor) BeforeProcessing(ctx context.Context, event any, ictx *eventbus.InterceptorContext) {
	_, span := t.tracer.Start(ctx, fmt.Sprintf("event.%T", event))
	span.SetAttributes(attribute.String("event.type", fmt.Sprintf("%T", event)))
	ictx.Set(spanContextKey, span)
}

// AfterProcessingSuccess records whether the idempotency check skipped
// delivery and closes the span.
func (t *TracingInterceptor) AfterProcessingSuccess(ctx context.Context, event any, ictx *eventbus.InterceptorContext) {
	span, ok := t.spanFrom(ictx)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Bool("event.skipped", ictx.Skipped()))
	span.End()
}

// AfterProcessingFailure records the terminal error and its
// classification on the span, then closes it.
func (t *TracingInterceptor) AfterProcessingFailure(ctx context.Context, event any, ictx *eventbus.InterceptorContext, fc *eventbus.FailureContext) {
	span, ok := t.spanFrom(ictx)
	if !ok {
		return
	}
	span.RecordError(fc.Cause())
	span.SetAttributes(attribute.String("event.failure_classification", fc.Classification().String()))
	span.End()
}

func (t *TracingInterceptor) spanFrom(ictx *eventbus.InterceptorContext) (trace.Span, bool) {
	v, ok := ictx.Get(spanContextKey)
	if !ok {
		return nil, false
	}
	span, ok := v.(trace.Span)
	return span, ok
}

// ExtractCorrelationID reads a correlation ID out of ctx's baggage,
// falling back to the active span's trace ID.
func ExtractCorrelationID(ctx context.Context) string {
	b := baggage.FromContext(ctx)
	if b.Len() > 0 {
		if member := b.Member(correlationIDKey); member.Key() == correlationIDKey {
			return member.Value()
		}
	}
	span := trace.SpanFromContext(ctx)
	if span != nil && span.SpanContext().TraceID().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// InjectCorrelationID attaches correlationID to ctx's baggage, returning
// ctx unchanged if it cannot be encoded as a baggage member.
func InjectCorrelationID(ctx context.Context, correlationID string) context.Context {
	b := baggage.FromContext(ctx)
	member, err := baggage.NewMember(correlationIDKey, correlationID)
	if err != nil {
		return ctx
	}
	b, _ = b.SetMember(member)
	return baggage.ContextWithBaggage(ctx, b)
}

// NewCorrelationID generates a correlation ID for events that arrive
// without one.
func NewCorrelationID() string {
	return uuid.New().String()
}
