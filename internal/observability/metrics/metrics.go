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

// Metrics exposes application-level instruments.
type Metrics struct {
	purchases            metric.Int64Counter
	purchaseEnergy       metric.Float64Counter
	purchaseAmount       metric.Float64Counter
	identifierCollisions metric.Int64Counter
	consistencyWarnings  metric.Int64Counter
	rateLimitAllowed     metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "woyofal"
	}
	meter := provider.Meter(name)

	purchases, err := meter.Int64Counter("woyofal_purchases_total")
	if err != nil {
		return nil, err
	}
	purchaseEnergy, err := meter.Float64Counter("woyofal_purchase_energy_kwh_total", metric.WithUnit("kWh"))
	if err != nil {
		return nil, err
	}
	purchaseAmount, err := meter.Float64Counter("woyofal_purchase_amount_total", metric.WithUnit("XOF"))
	if err != nil {
		return nil, err
	}
	identifierCollisions, err := meter.Int64Counter("woyofal_identifier_collisions_total")
	if err != nil {
		return nil, err
	}
	consistencyWarnings, err := meter.Int64Counter("woyofal_consistency_warnings_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("woyofal_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("woyofal_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		purchases:            purchases,
		purchaseEnergy:       purchaseEnergy,
		purchaseAmount:       purchaseAmount,
		identifierCollisions: identifierCollisions,
		consistencyWarnings:  consistencyWarnings,
		rateLimitAllowed:     rateLimitAllowed,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordPurchase counts a purchase attempt by outcome.
func (m *Metrics) RecordPurchase(ctx context.Context, statut string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("statut", strings.TrimSpace(statut)))
	m.purchases.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPurchaseVolume adds the energy and amount sold by a successful purchase.
func (m *Metrics) RecordPurchaseVolume(ctx context.Context, tierCode string, amount, energyKWh float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tranche", strings.TrimSpace(tierCode)))
	m.purchaseEnergy.Add(ctx, energyKWh, metric.WithAttributes(attrs...))
	m.purchaseAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

// RecordIdentifierCollision counts a reference or recharge code collision.
func (m *Metrics) RecordIdentifierCollision(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.identifierCollisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConsistencyWarning counts purchases flagged for reconciliation.
func (m *Metrics) RecordConsistencyWarning(ctx context.Context) {
	if m == nil {
		return
	}
	m.consistencyWarnings.Add(ctx, 1)
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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
	"statut":      {},
	"tranche":     {},
	"kind":        {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
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
