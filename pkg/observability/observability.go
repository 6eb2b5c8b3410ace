// Package observability wires OpenTelemetry tracing for LLM calls and
// analysis runs.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names used across the engine.
const (
	SpanLLMRequest    = "medivault.llm_request"
	SpanLLMEmbedding  = "medivault.llm_embedding"
	SpanToolExecution = "medivault.tool_execution"
	SpanAnalysisRun   = "medivault.analysis_run"
)

// Common span attribute keys.
const (
	AttrProvider     = "llm.provider"
	AttrModel        = "llm.model"
	AttrTokensTotal  = "llm.tokens.total"
	AttrToolKey      = "tool.key"
	AttrCredentialID = "credential.id"
)

// TracerConfig configures the global tracer provider.
type TracerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// InitGlobalTracer installs a tracer provider. When tracing is disabled it
// installs a no-op provider so instrumented call sites stay cheap.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
