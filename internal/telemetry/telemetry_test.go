package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false, ServiceName: "slotbook"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))

	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.Len(t, TraceID(ctx), 32)
}
