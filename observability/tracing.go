package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/bftrelay"

// Tracer provides OpenTelemetry tracing for relay invocations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// NewTracerWithProvider creates a tracer from tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(tracerName),
	}
}

// StartRelaySpan starts a span covering one relay invocation.
func (t *Tracer) StartRelaySpan(ctx context.Context, fingerprint, target string, signatures int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "relay.execute",
		trace.WithAttributes(
			attribute.String("relay.fingerprint", fingerprint),
			attribute.String("relay.target", target),
			attribute.Int("relay.signatures", signatures),
		),
	)
}

// EndRelaySpan ends a relay span with the final state and outcome.
func (t *Tracer) EndRelaySpan(span trace.Span, state string, signers int, err error) {
	span.SetAttributes(
		attribute.String("relay.state", state),
		attribute.Int("relay.signers", signers),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartRegistrySpan starts a span covering a relayer set mutation.
func (t *Tracer) StartRegistrySpan(ctx context.Context, op, relayer string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "relay.registry."+op,
		trace.WithAttributes(attribute.String("relay.relayer", relayer)),
	)
}

// EndSpan ends span, recording err if non-nil.
func (t *Tracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
