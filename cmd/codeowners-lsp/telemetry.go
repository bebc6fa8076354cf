// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/radiosilence/codeowners-lsp/pkg/logging"
)

// telemetryConfig controls the ambient observability stack a `serve`
// session runs with. Unlike an HTTP service, the CLI has nowhere to
// expose an OTLP/Prometheus endpoint without opening a port a
// stdio-speaking LSP server has no business owning, so both exporters
// stay local: spans print to stderr and metrics are pulled on a timer
// and logged rather than scraped.
type telemetryConfig struct {
	ServiceName    string
	ServiceVersion string
}

// initTelemetry wires a TracerProvider (stdouttrace, writing to stderr so
// it never collides with the LSP channel on stdout) and a MeterProvider
// backed by a ManualReader, since no metric exporter package is part of
// this module's dependency set. The returned shutdown func flushes and
// detaches both providers; callers must invoke it before exit.
func initTelemetry(ctx context.Context, cfg telemetryConfig, logger *logging.Logger) (shutdown func(context.Context) error, err error) {
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	stop := make(chan struct{})
	go pollMetrics(reader, logger, stop)

	return func(ctx context.Context) error {
		close(stop)
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
		}
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}

// pollMetrics periodically collects the manual reader's accumulated
// metrics and logs a summary, since this CLI has no scrape endpoint for
// a real collector to pull from.
func pollMetrics(reader *sdkmetric.ManualReader, logger *logging.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var rm metricdata.ResourceMetrics
			if err := reader.Collect(context.Background(), &rm); err != nil {
				logger.Warn("metrics collection failed", "error", err)
				continue
			}
			logger.Debug("metrics snapshot", "scope_metrics", len(rm.ScopeMetrics))
		}
	}
}
