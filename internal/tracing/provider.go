package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ProviderConfig OTLP 导出配置
type ProviderConfig struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	SampleRatio float64
}

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(ctx context.Context) error

// InitTracer 创建 OTLP/gRPC 导出的 TracerProvider 并注册为全局实例
func InitTracer(ctx context.Context, cfg ProviderConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint不能为空")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建OTLP导出器失败: %w", err)
	}

	provider := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

// NewTracerProvider 按服务信息与采样率构造 TracerProvider，extra 用于附加导出器
func NewTracerProvider(cfg ProviderConfig, extra ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	opts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, extra...)
	return sdktrace.NewTracerProvider(opts...)
}
