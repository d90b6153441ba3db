// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.Error(t, err)
	assert.EqualError(t, err, "unsupported exporter type: zipkin (supported: grpc, http)")
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "vmerge-test",
		ExporterType: ExporterHTTP,
		Endpoint:     "127.0.0.1:1",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	t.Cleanup(func() {
		_ = p.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
	assert.Same(t, p.tp, otel.GetTracerProvider())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samplerFor(tt.rate).Description(), "rate %v", tt.rate)
	}
}

func TestNilProviderShutdown(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}
