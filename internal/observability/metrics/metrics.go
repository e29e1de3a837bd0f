package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes voucher lifecycle instruments.
type Metrics struct {
	transitions     metric.Int64Counter
	allocationDeny  metric.Int64Counter
	tokensMinted    metric.Int64Counter
	tokensRejected  metric.Int64Counter
	verifyLimited   metric.Int64Counter
	dispatches      metric.Int64Counter
	sweepExpired    metric.Int64Counter
	operationTiming metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "bonos"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.transitions, err = meter.Int64Counter("bonos_voucher_transitions_total"); err != nil {
		return nil, err
	}
	if m.allocationDeny, err = meter.Int64Counter("bonos_allocation_denied_total"); err != nil {
		return nil, err
	}
	if m.tokensMinted, err = meter.Int64Counter("bonos_qr_tokens_minted_total"); err != nil {
		return nil, err
	}
	if m.tokensRejected, err = meter.Int64Counter("bonos_qr_tokens_rejected_total"); err != nil {
		return nil, err
	}
	if m.verifyLimited, err = meter.Int64Counter("bonos_verify_rate_limited_total"); err != nil {
		return nil, err
	}
	if m.dispatches, err = meter.Int64Counter("bonos_dispatch_total"); err != nil {
		return nil, err
	}
	if m.sweepExpired, err = meter.Int64Counter("bonos_expiry_swept_total"); err != nil {
		return nil, err
	}
	if m.operationTiming, err = meter.Float64Histogram("bonos_operation_duration_seconds"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordTransition counts a voucher entering status via operation.
func (m *Metrics) RecordTransition(ctx context.Context, operation, status string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.transitions.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordAllocationDenied counts reservations refused for lack of quota.
func (m *Metrics) RecordAllocationDenied(ctx context.Context, brand, size string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("brand", strings.TrimSpace(brand)),
		attribute.String("size", strings.TrimSpace(size)),
	)
	m.allocationDeny.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTokenMinted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.tokensMinted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTokenRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.tokensRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordVerifyLimited(ctx context.Context) {
	if m == nil {
		return
	}
	m.verifyLimited.Add(ctx, 1)
}

func (m *Metrics) RecordDispatch(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("channel", strings.TrimSpace(channel)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordExpired(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepExpired.Add(ctx, int64(count))
}

// ObserveOperation records the latency of a lifecycle operation.
func (m *Metrics) ObserveOperation(ctx context.Context, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", outcome),
	)
	m.operationTiming.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation": {},
	"status":    {},
	"outcome":   {},
	"brand":     {},
	"size":      {},
	"kind":      {},
	"reason":    {},
	"channel":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
