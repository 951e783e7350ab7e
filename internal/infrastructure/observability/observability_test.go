package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "disabled", cfg: &config.Config{ServiceName: "patches-api"}},
		{name: "enabled without endpoint", cfg: &config.Config{ServiceName: "patches-api", EnableTracing: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg, zerolog.Nop())
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestExporterEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{raw: "http://collector:4318", endpoint: "collector:4318", insecure: true},
		{raw: "https://otel.example.com/", endpoint: "otel.example.com", insecure: false},
		{raw: "localhost:4318", endpoint: "localhost:4318", insecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, insecure := exporterEndpoint(tt.raw)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}

func TestSampler(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler(0)))
	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	tp = sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler(1)))
	_, span = tp.Tracer("test").Start(context.Background(), "kept")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}
