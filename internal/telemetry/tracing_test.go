package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerProviderPropagatesContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracerProvider(context.Background(), ServiceName, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "crawl.run")
	carrier := AttributeCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()

	assert.Contains(t, carrier.Keys(), "traceparent")
	assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "crawl.run", ended[0].Name())
}
