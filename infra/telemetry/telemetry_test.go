package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/virtuolot/showroom-assist-service/config"
)

func TestDisabledTelemetryInstallsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TelemetryConfig{Enabled: false}, "showroom-assist-service", "test")

	require.NoError(t, err)
	assert.IsType(t, noop.NewTracerProvider(), otel.GetTracerProvider())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestUnsupportedProtocolRejected(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		Protocol:     "smoke",
	}, "showroom-assist-service", "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported telemetry protocol")
}

func TestTracerComesFromInstalledProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TelemetryConfig{Enabled: false}, "showroom-assist-service", "test")
	require.NoError(t, err)

	assert.NotNil(t, Tracer("registry"))
}
