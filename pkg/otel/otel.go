package otel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	ServiceMatchingEngine = "matchcore-engine"

	instrumentationName = "github.com/erain9/matchcore/pkg/otel"
)

var (
	mu           sync.RWMutex
	engineTracer trace.Tracer
)

// Config holds the OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceVersion   string
	Endpoint         string
	ConnectTimeout   time.Duration
	MetricInterval   time.Duration
	SampleRatio      float64
	CollectorEnabled bool
}

// Init wires OTLP trace and metric exporters when the collector is enabled.
// The returned function flushes and shuts both providers down.
func Init(cfg Config) (func(), error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = ServiceMatchingEngine
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "0.1.0"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.MetricInterval == 0 {
		cfg.MetricInterval = 5 * time.Second
	}
	if cfg.SampleRatio <= 0 {
		cfg.SampleRatio = 1
	}

	if !cfg.CollectorEnabled {
		return func() {}, nil
	}

	var cleanup []func()
	resource := initResource(cfg.ServiceName, cfg.ServiceVersion)

	tp, err := initTracerProvider(cfg, resource)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize tracer provider, continuing without traces")
	} else {
		mu.Lock()
		engineTracer = tp.Tracer(cfg.ServiceName)
		mu.Unlock()
		cleanup = append(cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("error shutting down tracer provider")
			}
		})
	}

	mp, err := initMeterProvider(cfg, resource)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize meter provider, continuing without metrics")
	} else {
		cleanup = append(cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
			defer cancel()
			if err := mp.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("error shutting down meter provider")
			}
		})
	}

	return func() {
		for _, fn := range cleanup {
			fn()
		}
	}, nil
}

func initResource(serviceName, serviceVersion string) *sdkresource.Resource {
	extraResources, err := sdkresource.New(
		context.Background(),
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		sdkresource.WithOS(),
		sdkresource.WithProcess(),
		sdkresource.WithHost(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create resource")
		return sdkresource.Default()
	}

	resource, err := sdkresource.Merge(sdkresource.Default(), extraResources)
	if err != nil {
		log.Warn().Err(err).Msg("failed to merge resources")
		return sdkresource.Default()
	}
	return resource
}

func dial(cfg Config) (*grpc.ClientConn, error) {
	return grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

func initTracerProvider(cfg Config, resource *sdkresource.Resource) (*sdktrace.TracerProvider, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(cfg.SampleRatio),
		)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMeterProvider(cfg Config, resource *sdkresource.Resource) (*sdkmetric.MeterProvider, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(resource),
	)
	otel.SetMeterProvider(mp)

	return mp, nil
}

// GetMatchingEngineTracer returns the engine tracer, or the global one when
// Init has not configured an exporter.
func GetMatchingEngineTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if engineTracer != nil {
		return engineTracer
	}
	return otel.Tracer(instrumentationName)
}

// InitForTesting installs tracer as the engine tracer
func InitForTesting(tracer trace.Tracer) {
	mu.Lock()
	defer mu.Unlock()
	engineTracer = tracer
}

// ResetForTesting drops the tracer installed by Init or InitForTesting
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	engineTracer = nil
}
