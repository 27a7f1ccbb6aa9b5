// Package telemetry wires the OpenTelemetry metrics SDK behind the global
// meter. Components create their instruments against the global meter; until
// Install runs they are no-ops, which is what tests and library embedders get.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds metrics export configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ExportInterval time.Duration
	Writer         io.Writer // metrics export target, required when enabled
}

// Provider owns the SDK meter provider installed as the global one.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// Install builds the meter provider and registers it globally. Disabled
// config returns a provider whose Shutdown is a no-op and leaves the global
// meter untouched.
func Install(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}

	if !cfg.Enabled {
		return p, nil
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("metrics enabled but no writer configured")
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = time.Minute
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.ExportInterval),
		)),
	)
	otel.SetMeterProvider(p.meterProvider)

	return p, nil
}

// Flush forces an export of all accumulated metrics.
func (p *Provider) Flush(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("metrics flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the provider. Call on application exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics shutdown failed: %w", err)
	}
	return nil
}

// Enabled reports whether an SDK provider was installed.
func (p *Provider) Enabled() bool {
	return p.meterProvider != nil
}
