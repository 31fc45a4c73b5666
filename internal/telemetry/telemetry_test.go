package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// syncBuffer is written from exporter goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSetupExportsOnShutdown(t *testing.T) {
	ctx := context.Background()
	out := &syncBuffer{}
	cfg := DefaultConfig("1.2.3")
	cfg.Writer = out

	before := otel.GetTracerProvider()
	shutdown, err := Setup(ctx, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, before, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(ctx, "worker.call")
	span.End()
	counter, err := otel.Meter("test").Int64Counter("test_requests_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, shutdown(ctx))
	assert.Equal(t, before, otel.GetTracerProvider())

	text := out.String()
	assert.Contains(t, text, "worker.call")
	assert.Contains(t, text, "test_requests_total")
	assert.Contains(t, text, "1.2.3")
}

func TestSetupTracesOnly(t *testing.T) {
	ctx := context.Background()
	out := &syncBuffer{}
	prevMeter := otel.GetMeterProvider()

	shutdown, err := Setup(ctx, Config{ServiceName: "tsbridge", Writer: out, Traces: true})
	require.NoError(t, err)
	assert.Equal(t, prevMeter, otel.GetMeterProvider())
	require.NoError(t, shutdown(ctx))
}

func TestSetupNilContext(t *testing.T) {
	_, err := Setup(nil, DefaultConfig("x"))
	require.Error(t, err)
}
