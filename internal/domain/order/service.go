package order

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/zarqash/internal/domain/product"
)

const instrumentationName = "github.com/xenking/zarqash/internal/domain/order"

// Result is an order together with the live products its lines reference,
// keyed by product id. Products deleted since placement are absent.
type Result struct {
	Order    *Order
	Products map[string]product.Product
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the source of order number suffixes. intn must return a
// value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(s *Service) { s.intn = intn }
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for workflow spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// Service encapsulates order placement, lifecycle, and query logic.
type Service struct {
	products product.Repository
	orders   Repository

	now            func() time.Time
	intn           func(n int) int
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	tracer    trace.Tracer
	placed    metric.Int64Counter
	failed    metric.Int64Counter
	conflicts metric.Int64Counter
	cancelled metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		products:       products,
		orders:         orders,
		now:            time.Now,
		intn:           rand.IntN,
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders successfully placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.failed, err = meter.Int64Counter("orders.placement_failures",
		metric.WithDescription("Order placements rejected or failed, by reason"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placement_failures counter")
	}
	if s.conflicts, err = meter.Int64Counter("orders.stock_conflicts",
		metric.WithDescription("Reservations lost to a concurrent stock change"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.stock_conflicts counter")
	}
	if s.cancelled, err = meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled by customers"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.cancelled counter")
	}

	return s, nil
}

// timestamp returns the current time at the millisecond precision every
// store can round-trip.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) recordFailure(ctx context.Context, err error) {
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
}

func failureReason(err error) string {
	var (
		pnf *ProductNotFoundError
		vnf *VariantNotFoundError
		ise *InsufficientStockError
	)
	switch {
	case errors.As(err, &pnf):
		return "product_not_found"
	case errors.As(err, &vnf):
		return "variant_not_found"
	case errors.As(err, &ise):
		return "insufficient_stock"
	case IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// resolveProducts loads the live products referenced by orders.
func (s *Service) resolveProducts(ctx context.Context, orders ...*Order) (map[string]product.Product, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, id := range o.ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	out := make(map[string]product.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve products")
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
