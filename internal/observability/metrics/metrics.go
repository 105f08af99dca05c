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
	settlements        metric.Int64Counter
	ledgerWriteFaults  metric.Int64Counter
	chainQueryErrors   metric.Int64Counter
	portfolioSkipped   metric.Int64Counter
	portfolioDurations metric.Float64Histogram
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
		name = "terravest"
	}
	meter := provider.Meter(name)

	settlements, err := meter.Int64Counter("terravest_settlements_total")
	if err != nil {
		return nil, err
	}
	ledgerWriteFaults, err := meter.Int64Counter("terravest_ledger_write_failures_total")
	if err != nil {
		return nil, err
	}
	chainQueryErrors, err := meter.Int64Counter("terravest_chain_query_errors_total")
	if err != nil {
		return nil, err
	}
	portfolioSkipped, err := meter.Int64Counter("terravest_portfolio_skipped_projects_total")
	if err != nil {
		return nil, err
	}
	portfolioDurations, err := meter.Float64Histogram("terravest_portfolio_duration_ms")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		settlements:        settlements,
		ledgerWriteFaults:  ledgerWriteFaults,
		chainQueryErrors:   chainQueryErrors,
		portfolioSkipped:   portfolioSkipped,
		portfolioDurations: portfolioDurations,
	}, nil
}

// RecordSettlement counts settlement attempts by outcome.
func (m *Metrics) RecordSettlement(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.settlements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerWriteFailure counts post-settlement ledger write faults. These
// indicate chain/ledger divergence and should page, not just alert.
func (m *Metrics) RecordLedgerWriteFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.ledgerWriteFaults.Add(ctx, 1)
}

// RecordChainQueryError counts failed on-chain reads by method.
func (m *Metrics) RecordChainQueryError(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.chainQueryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPortfolioSkipped counts projects omitted from an aggregation.
func (m *Metrics) RecordPortfolioSkipped(ctx context.Context, role string, skipped int) {
	if m == nil || skipped <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.portfolioSkipped.Add(ctx, int64(skipped), metric.WithAttributes(attrs...))
}

// RecordPortfolioDuration records end-to-end aggregation latency.
func (m *Metrics) RecordPortfolioDuration(ctx context.Context, role string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.portfolioDurations.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
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
	"outcome": {},
	"method":  {},
	"role":    {},
	"route":   {},
	"status":  {},
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
