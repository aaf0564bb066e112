package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/moltis/gateway/internal/config"
)

func saveAndRestoreGlobalTracerProvider(t *testing.T) {
	t.Helper()
	orig := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
}

func TestInitDisabledReturnsNoopProviders(t *testing.T) {
	saveAndRestoreGlobalTracerProvider(t)
	p, err := Init(config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.tp)
}

func TestInitEnabledInstallsSDKTracerProvider(t *testing.T) {
	saveAndRestoreGlobalTracerProvider(t)
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "moltis-gateway-test", SampleRate: 0.5}

	p, err := Init(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p.tp)

	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDK)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestShutdownOnNilProvidersDoesNotPanic(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTracerFallsBackToGlobalWhenNoop(t *testing.T) {
	p := &Providers{}
	tr := p.Tracer("moltisgw")
	assert.NotNil(t, tr)
}

func TestBuildVersionFallsBackToDev(t *testing.T) {
	assert.Equal(t, "dev", buildVersion())
}
