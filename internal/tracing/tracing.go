package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	appconfig "github.com/therealutkarshpriyadarshi/aiva/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitTracer initializes the Jaeger tracer. When tracing is disabled the
// global no-op tracer stays in place and the returned closer does nothing.
func InitTracer(cfg appconfig.TracingConfig) (opentracing.Tracer, io.Closer, error) {
	if !cfg.Enabled {
		return opentracing.GlobalTracer(), nopCloser{}, nil
	}

	samplerType := jaeger.SamplerTypeConst
	param := 1.0
	if cfg.SamplingRate > 0 && cfg.SamplingRate < 1 {
		samplerType = jaeger.SamplerTypeProbabilistic
		param = cfg.SamplingRate
	}

	jcfg := &jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  samplerType,
			Param: param,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           false,
			LocalAgentHostPort: cfg.JaegerEndpoint,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartSpan starts a new span with the given operation name
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operationName)
	return span, ctx
}

// FinishSpan finishes a span
func FinishSpan(span opentracing.Span) {
	if span != nil {
		span.Finish()
	}
}

// LogError logs an error to the span
func LogError(span opentracing.Span, err error) {
	if span != nil && err != nil {
		span.SetTag("error", true)
		span.LogKV("error", err.Error())
	}
}

// SetTag sets a tag on the span
func SetTag(span opentracing.Span, key string, value interface{}) {
	if span != nil {
		span.SetTag(key, value)
	}
}
