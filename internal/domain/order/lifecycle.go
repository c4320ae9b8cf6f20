package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/zarqash/internal/domain/product"
)

// DefaultCancelReason is recorded when the customer gives none.
const DefaultCancelReason = "Cancelled by customer"

// RestoreOutcome is the result of returning one line's stock on cancel.
type RestoreOutcome string

const (
	RestoreRestored              RestoreOutcome = "restored"
	RestoreSkippedMissingProduct RestoreOutcome = "skipped_missing_product"
	RestoreSkippedMissingVariant RestoreOutcome = "skipped_missing_variant"
	RestoreFailed                RestoreOutcome = "failed"
)

// Restoration reports what happened to one line's stock on cancel.
type Restoration struct {
	ProductID  string
	DialColor  string
	StrapColor string
	Quantity   int
	Outcome    RestoreOutcome
}

// CancelResult is the cancelled order plus per-line stock restoration.
type CancelResult struct {
	Result
	Restorations []Restoration
}

// Cancel moves a non-terminal order to CANCELLED and returns its stock.
//
// The status change is persisted first with an optimistic check on
// UpdatedAt, so two racing cancellations cannot both restore stock.
func (s *Service) Cancel(ctx context.Context, id, reason string) (_ *CancelResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	if !s.orders.ValidID(id) {
		return nil, ErrInvalidID
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, &NotCancellableError{Status: o.Status}
	}

	prev := o.UpdatedAt
	now := s.timestamp()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	if o.CancelReason == "" {
		o.CancelReason = DefaultCancelReason
	}
	if err := s.orders.Replace(ctx, o, prev); err != nil {
		return nil, errors.Wrap(err, "save cancelled order")
	}
	s.cancelled.Add(ctx, 1)

	restorations := s.restoreStock(ctx, o)

	products, err := s.resolveProducts(ctx, o)
	if err != nil {
		zctx.From(ctx).Warn("Resolve products for cancelled order", zap.Error(err))
		products = map[string]product.Product{}
	}

	return &CancelResult{
		Result:       Result{Order: o, Products: products},
		Restorations: restorations,
	}, nil
}

func (s *Service) restoreStock(ctx context.Context, o *Order) []Restoration {
	lg := zctx.From(ctx)
	out := make([]Restoration, len(o.Items))

	for i, li := range o.Items {
		r := Restoration{
			ProductID:  li.ProductID,
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			Quantity:   li.Quantity,
			Outcome:    RestoreRestored,
		}

		err := s.products.ReleaseStock(ctx, li.ProductID, li.VariantKey(), li.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, product.ErrNotFound):
			r.Outcome = RestoreSkippedMissingProduct
		case errors.Is(err, product.ErrVariantNotFound):
			r.Outcome = RestoreSkippedMissingVariant
		default:
			r.Outcome = RestoreFailed
			lg.Error("Restore stock",
				zap.String("order_number", o.Number),
				zap.String("product_id", li.ProductID),
				zap.Error(err),
			)
		}
		if r.Outcome != RestoreRestored && r.Outcome != RestoreFailed {
			lg.Info("Stock not restored",
				zap.String("order_number", o.Number),
				zap.String("product_id", li.ProductID),
				zap.String("outcome", string(r.Outcome)),
			)
		}
		out[i] = r
	}

	return out
}

// StatusUpdate is an admin status change.
type StatusUpdate struct {
	Status            Status
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

// UpdateStatus sets the order status. Any status is reachable; DELIVERED
// stamps the delivery time.
func (s *Service) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (*Result, error) {
	if !s.orders.ValidID(id) {
		return nil, ErrInvalidID
	}
	if !upd.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	return s.modify(ctx, id, func(o *Order) {
		o.Status = upd.Status
		if tn := strings.TrimSpace(upd.TrackingNumber); tn != "" {
			o.TrackingNumber = tn
		}
		if upd.EstimatedDelivery != nil {
			ed := upd.EstimatedDelivery.UTC().Truncate(time.Millisecond)
			o.EstimatedDelivery = &ed
		}
		if upd.Status == StatusDelivered {
			now := s.timestamp()
			o.DeliveredAt = &now
		}
	})
}

// Patch is an admin partial order update. Identity, order number,
// timestamps, and line items cannot be patched; totals are derived.
type Patch struct {
	CustomerEmail     *string
	ShippingAddress   *Address
	BillingAddress    *Address
	ShippingCost      *decimal.Decimal
	Tax               *decimal.Decimal
	Discount          *decimal.Decimal
	Status            *Status
	PaymentStatus     *PaymentStatus
	PaymentMethod     *PaymentMethod
	PaymentID         *string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	CancelReason      *string
	Notes             *string
}

// Apply copies every set field onto o.
func (p Patch) Apply(o *Order) {
	if p.CustomerEmail != nil {
		o.CustomerEmail = strings.ToLower(strings.TrimSpace(*p.CustomerEmail))
	}
	if p.ShippingAddress != nil {
		o.ShippingAddress = *p.ShippingAddress
		o.ShippingAddress.Normalize()
	}
	if p.BillingAddress != nil {
		o.BillingAddress = *p.BillingAddress
		o.BillingAddress.Normalize()
	}
	setIf(&o.ShippingCost, p.ShippingCost)
	setIf(&o.Tax, p.Tax)
	setIf(&o.Discount, p.Discount)
	setIf(&o.Status, p.Status)
	setIf(&o.PaymentStatus, p.PaymentStatus)
	setIf(&o.PaymentMethod, p.PaymentMethod)
	setIf(&o.PaymentID, p.PaymentID)
	setIf(&o.TrackingNumber, p.TrackingNumber)
	setIf(&o.CancelReason, p.CancelReason)
	setIf(&o.Notes, p.Notes)
	setTime(&o.EstimatedDelivery, p.EstimatedDelivery)
	setTime(&o.DeliveredAt, p.DeliveredAt)
	setTime(&o.CancelledAt, p.CancelledAt)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := v.UTC().Truncate(time.Millisecond)
		*dst = &t
	}
}

// Update applies an admin patch, recomputes totals, and validates the result
// before persisting.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Result, error) {
	if !s.orders.ValidID(id) {
		return nil, ErrInvalidID
	}
	return s.modify(ctx, id, patch.Apply)
}

// modify loads an order, applies fn, and saves it guarded by UpdatedAt.
func (s *Service) modify(ctx context.Context, id string, fn func(o *Order)) (*Result, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := o.UpdatedAt
	fn(o)
	o.Recalculate()
	if err := o.Validate().Err(); err != nil {
		return nil, err
	}
	if err := s.orders.Replace(ctx, o, prev); err != nil {
		return nil, errors.Wrap(err, "save order")
	}

	products, err := s.resolveProducts(ctx, o)
	if err != nil {
		zctx.From(ctx).Warn("Resolve products for updated order", zap.Error(err))
		products = map[string]product.Product{}
	}
	return &Result{Order: o, Products: products}, nil
}
