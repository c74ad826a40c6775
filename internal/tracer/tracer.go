// Package tracer provides distributed tracing abstractions for tolcan.
// It supports OpenTelemetry and allows custom tracer implementations.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans around database statements.
type Tracer interface {
	// StartSpan starts a new tracing span with the given name.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span captures the execution of one statement.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer does nothing. It is the default when tracing is not configured.
type NoopTracer struct{}

// StartSpan returns the context unchanged with a no-op span.
func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan is a span that does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (NoopSpan) End() {}

// OtelTracer adapts an OpenTelemetry tracer to the Tracer interface.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps an OpenTelemetry tracer. The tracer must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts a new OpenTelemetry span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) { s.span.SetAttributes(attrs...) }
func (s *otelSpan) RecordError(err error)                     { s.span.RecordError(err) }
func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}
func (s *otelSpan) End() { s.span.End() }

// QueryMetadata describes one executed statement for tracing, following the
// OpenTelemetry database semantic conventions.
type QueryMetadata struct {
	SQL          string
	Args         []any
	Duration     time.Duration
	RowsAffected int64
	Error        error
	Database     string
	Operation    string
}

// AddQueryAttributes records a statement's db.* attributes on a span and sets
// its status from the statement's outcome.
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	span.SetAttributes(
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
		attribute.Int64("db.rows_affected", meta.RowsAffected),
	)

	if meta.Error != nil {
		span.RecordError(meta.Error)
		span.SetStatus(codes.Error, meta.Error.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// DetectOperation reports the SQL operation type from the statement text:
// SELECT, INSERT, UPDATE, DELETE, BEGIN, COMMIT, ROLLBACK, or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "BEGIN", "COMMIT", "ROLLBACK"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "UNKNOWN"
}
