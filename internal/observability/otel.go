package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/envutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string

	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	SampleRatio float64

	// BridgeURL is recorded on the resource so traces show which WhatsApp
	// bridge the inbox was talking to.
	BridgeURL string
}

// OtelConfigFromEnv reads the OTEL_* variables; identity fields are left to
// the caller.
func OtelConfigFromEnv() OtelConfig {
	return OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		Headers:     parseOtelHeaders(envutil.List("OTEL_EXPORTER_OTLP_HEADERS")),
		SampleRatio: clampRatio(envutil.Float("OTEL_SAMPLER_RATIO", 0.1)),
	}
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "terrenos-crm"
		}
		attrs := []attribute.KeyValue{
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			attribute.Bool("crm.whatsapp.bridge_configured", cfg.BridgeURL != ""),
		}
		if cfg.BridgeURL != "" {
			attrs = append(attrs, attribute.String("crm.whatsapp.bridge_url", cfg.BridgeURL))
		}
		res, err := resource.New(ctx, resource.WithAttributes(attrs...))
		if err != nil && log != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(NewRouteSampler(cfg.SampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildTraceExporter(ctx, log, cfg)
		if err != nil && log != nil {
			log.Warn("otel exporter init failed (continuing)", "error", err)
		}
		if exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("otel tracing initialized",
				"service", serviceName,
				"endpoint", cfg.Endpoint,
				"ratio", cfg.SampleRatio,
			)
		}
	})
	return otelShutdown
}

// routeSampler keys on the span name, which otelgin sets to the route
// template. Health checks and scrapes are never traced; bridge webhooks always
// are, since a lost inbound message is only diagnosable from its trace.
type routeSampler struct {
	ratio sdktrace.Sampler
}

func NewRouteSampler(ratio float64) sdktrace.Sampler {
	return routeSampler{ratio: sdktrace.TraceIDRatioBased(clampRatio(ratio))}
}

func (s routeSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	switch {
	case p.Name == "/up", p.Name == "/metrics":
		return sdktrace.SamplingResult{Decision: sdktrace.Drop}
	case strings.HasPrefix(p.Name, "/api/whatsapp/webhook/"),
		p.Name == "/api/whatsapp/sync-chats",
		p.Name == "/api/whatsapp/clear-chats":
		return sdktrace.AlwaysSample().ShouldSample(p)
	default:
		return s.ratio.ShouldSample(p)
	}
}

func (s routeSampler) Description() string {
	return "CRMRouteSampler{" + s.ratio.Description() + "}"
}

func clampRatio(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// parseOtelHeaders turns "k=v" pairs into a header map, dropping malformed
// entries.
func parseOtelHeaders(pairs []string) map[string]string {
	headers := map[string]string{}
	for _, part := range pairs {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func buildTraceExporter(ctx context.Context, log *logger.Logger, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if cfg.Headers != nil {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	}
	return exp, nil
}
