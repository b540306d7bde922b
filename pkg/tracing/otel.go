// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	// 创建 OTLP exporter
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	// 创建 resource
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	// 创建 tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartQuerySpan 开始 query orchestration span
func StartQuerySpan(ctx context.Context, queryID string, sessionID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("coagent")
	ctx, span := tracer.Start(ctx, "query.orchestrate",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("session.id", sessionID),
		),
	)
	return ctx, span
}

// StartClassifySpan 开始 intent classification span
func StartClassifySpan(ctx context.Context, queryID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("coagent")
	ctx, span := tracer.Start(ctx, "intent.classify",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
		),
	)
	return ctx, span
}

// StartAdapterSpan 开始 adapter invocation span
func StartAdapterSpan(ctx context.Context, capability string) (context.Context, trace.Span) {
	tracer := otel.Tracer("coagent")
	ctx, span := tracer.Start(ctx, "adapter.invoke",
		trace.WithAttributes(
			attribute.String("adapter.capability", capability),
		),
	)
	return ctx, span
}
