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

// Metrics exposes application-level instruments for the billing pipeline.
type Metrics struct {
	readingsAccepted   metric.Int64Counter
	readingsRejected   metric.Int64Counter
	billsCreated       metric.Int64Counter
	billsMerged        metric.Int64Counter
	aggregationFailure metric.Int64Counter
	ocrFailures        metric.Int64Counter
	reconcileRuns      metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
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
		name = "rentalmanager"
	}
	meter := provider.Meter(name)

	readingsAccepted, err := meter.Int64Counter("rentalmanager_readings_accepted_total")
	if err != nil {
		return nil, err
	}
	readingsRejected, err := meter.Int64Counter("rentalmanager_readings_rejected_total")
	if err != nil {
		return nil, err
	}
	billsCreated, err := meter.Int64Counter("rentalmanager_bills_created_total")
	if err != nil {
		return nil, err
	}
	billsMerged, err := meter.Int64Counter("rentalmanager_bills_merged_total")
	if err != nil {
		return nil, err
	}
	aggregationFailure, err := meter.Int64Counter("rentalmanager_bill_aggregation_failures_total")
	if err != nil {
		return nil, err
	}
	ocrFailures, err := meter.Int64Counter("rentalmanager_ocr_failures_total")
	if err != nil {
		return nil, err
	}
	reconcileRuns, err := meter.Int64Counter("rentalmanager_reconciliation_runs_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("rentalmanager_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		readingsAccepted:   readingsAccepted,
		readingsRejected:   readingsRejected,
		billsCreated:       billsCreated,
		billsMerged:        billsMerged,
		aggregationFailure: aggregationFailure,
		ocrFailures:        ocrFailures,
		reconcileRuns:      reconcileRuns,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordReadingAccepted increments accepted reading counts.
func (m *Metrics) RecordReadingAccepted(ctx context.Context, utilityType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("utility_type", strings.TrimSpace(utilityType)))
	m.readingsAccepted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReadingRejected increments rejected reading counts by reason.
func (m *Metrics) RecordReadingRejected(ctx context.Context, utilityType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("utility_type", strings.TrimSpace(utilityType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.readingsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBillCreated increments new bill counts.
func (m *Metrics) RecordBillCreated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.billsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBillMerged increments merge-into-existing-bill counts.
func (m *Metrics) RecordBillMerged(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.billsMerged.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAggregationFailure increments aggregation failure counts. These need
// operator attention since the reading is durable but the bill is stale.
func (m *Metrics) RecordAggregationFailure(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.aggregationFailure.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOCRFailure increments best-effort OCR failure counts.
func (m *Metrics) RecordOCRFailure(ctx context.Context, utilityType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("utility_type", strings.TrimSpace(utilityType)))
	m.ocrFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconcileRun increments reconciliation run counts.
func (m *Metrics) RecordReconcileRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.reconcileRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"utility_type": {},
	"category":     {},
	"endpoint":     {},
	"status_code":  {},
	"reason":       {},
	"outcome":      {},
	"route":        {},
	"method":       {},
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
