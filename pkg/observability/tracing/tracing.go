// Package tracing turns pool jobs into OpenTelemetry spans. The Observer
// plugs into threadpool.WithObserver; every executed job becomes one consumer
// span carrying the pool and worker names.
package tracing

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/threadpool/pkg/threadpool"
)

const tracerName = "github.com/fluxorio/threadpool"

// Observer traces job execution. A worker runs one job at a time, so the
// observer keeps at most one open span per worker, keyed by worker name.
type Observer struct {
	pool   string
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

var _ threadpool.Observer = (*Observer)(nil)

// NewObserver creates a tracing observer for the named pool. A nil provider
// falls back to the global TracerProvider.
func NewObserver(pool string, provider trace.TracerProvider) *Observer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Observer{
		pool:   pool,
		tracer: provider.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

// WorkerStarted implements threadpool.Observer.
func (o *Observer) WorkerStarted(string) {}

// WorkerExited implements threadpool.Observer. A span still open at worker
// exit belongs to a job that panicked; it is ended with an error status so
// the trace shows where the worker died.
func (o *Observer) WorkerExited(worker string, abnormal bool) {
	span, ok := o.take(worker)
	if !ok {
		return
	}
	if abnormal {
		span.SetStatus(codes.Error, "job panicked")
	}
	span.End()
}

// JobEnqueued implements threadpool.Observer.
func (o *Observer) JobEnqueued() {}

// JobStarted implements threadpool.Observer.
func (o *Observer) JobStarted(worker string) {
	_, span := o.tracer.Start(context.Background(), "threadpool.job",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("threadpool.pool", o.pool),
			attribute.String("threadpool.worker", worker),
		),
	)

	o.mu.Lock()
	o.spans[worker] = span
	o.mu.Unlock()
}

// JobFinished implements threadpool.Observer.
func (o *Observer) JobFinished(worker string, _ time.Duration) {
	span, ok := o.take(worker)
	if !ok {
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (o *Observer) take(worker string) (trace.Span, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	span, ok := o.spans[worker]
	if ok {
		delete(o.spans, worker)
	}
	return span, ok
}

// NewStdoutProvider builds a TracerProvider that pretty-prints finished spans
// to stdout. Meant for examples and local debugging; production setups should
// construct their own provider with a real exporter.
func NewStdoutProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}
