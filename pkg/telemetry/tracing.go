package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name.
const TracerName = "delphi"

// Span attribute keys.
const (
	AttrSurface  = attribute.Key("delphi.surface")
	AttrState    = attribute.Key("delphi.state")
	AttrOpCount  = attribute.Key("delphi.op_count")
	AttrOpIndex  = attribute.Key("delphi.op_index")
	AttrNodes    = attribute.Key("delphi.nodes")
	AttrResynced = attribute.Key("delphi.resync")
)

// Tracer returns the named tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts an internal span with the given attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
