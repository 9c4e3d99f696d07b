package dispatcher

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/stellasora-tools/buildcore/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// withTracing wraps h in a span named after the command. For buffered commands
// the span covers the queued run and keeps the dispatcher's span as parent.
func withTracing(name string, h HandlerFunc) HandlerFunc {
	tracer := otel.Tracer(instrumentationName)
	return func(ctx context.Context, c Command) (any, error) {
		ctx, span := tracer.Start(ctx, "command "+name, trace.WithAttributes(
			attribute.String("command", name),
			attribute.Int("args", len(c.Args)),
		))
		defer span.End()

		result, err := h(ctx, c)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return result, err
	}
}
