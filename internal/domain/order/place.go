package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/zarqash/internal/domain/product"
	"github.com/xenking/zarqash/internal/saga"
)

// maxNumberAttempts bounds order number regeneration on unique index hits.
const maxNumberAttempts = 5

// ItemRequest is one cart line.
type ItemRequest struct {
	ProductID  string
	Quantity   int
	DialColor  string
	StrapColor string
	Size       product.Size
}

// PlaceOrderRequest holds the input for placing an order. Charges are
// already coerced with ParseAmount.
type PlaceOrderRequest struct {
	Items           []ItemRequest
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentMethod   PaymentMethod
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	Notes           string
}

// PlaceOrder validates the cart against the catalog, reserves stock for every
// line, and persists the order. Reservations and the insert run as a saga:
// any failure releases the stock already reserved, so the call either creates
// the order with all lines reserved or leaves no trace.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(req.Items))),
	)
	defer func() {
		if rerr != nil {
			s.recordFailure(ctx, rerr)
		}
		endSpan(span, rerr)
	}()

	o, products, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, o); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", o.Number))
	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("total", o.TotalAmount.String()),
	)

	return &Result{Order: o, Products: products}, nil
}

// prepare runs every read-only check and builds the order. Nothing is
// written.
func (s *Service) prepare(ctx context.Context, req PlaceOrderRequest) (*Order, map[string]product.Product, error) {
	if len(req.Items) == 0 {
		return nil, nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity < 1 {
			return nil, nil, ErrInvalidItem
		}
	}
	if req.ShippingAddress == nil || req.BillingAddress == nil || req.PaymentMethod == "" {
		return nil, nil, ErrMissingCheckout
	}

	products := make(map[string]product.Product, len(req.Items))
	items := make([]LineItem, 0, len(req.Items))

	for _, it := range req.Items {
		p, ok := products[it.ProductID]
		if !ok {
			got, err := s.products.GetByID(ctx, it.ProductID)
			if errors.Is(err, product.ErrNotFound) {
				return nil, nil, &ProductNotFoundError{ProductID: it.ProductID}
			}
			if err != nil {
				return nil, nil, errors.Wrapf(err, "get product %s", it.ProductID)
			}
			p = *got
			products[it.ProductID] = p
		}

		if it.DialColor == "" || it.StrapColor == "" {
			return nil, nil, &MissingColorsError{Title: p.Title}
		}
		key := product.VariantKey{DialColor: it.DialColor, StrapColor: it.StrapColor}
		v, ok := p.Variant(key)
		if !ok {
			return nil, nil, &VariantNotFoundError{Title: p.Title, Variant: key}
		}
		if v.Stock < it.Quantity {
			return nil, nil, &InsufficientStockError{Title: p.Title, Available: v.Stock, Requested: it.Quantity}
		}
		if it.Size != "" && !p.HasSize(it.Size) {
			return nil, nil, &SizeUnavailableError{Title: p.Title, Size: it.Size}
		}

		items = append(items, LineItem{
			ProductID: p.ID,
			Snapshot: Snapshot{
				Title:       p.Title,
				Price:       p.Price.Retail,
				CoverImage:  p.CoverImage,
				Category:    p.Category,
				SubCategory: p.SubCategory,
			},
			Quantity:   it.Quantity,
			Size:       it.Size,
			DialColor:  it.DialColor,
			StrapColor: it.StrapColor,
			UnitPrice:  p.Price.Retail,
		})
	}

	if req.ShippingCost.IsNegative() || req.Tax.IsNegative() || req.Discount.IsNegative() {
		return nil, nil, ErrNegativeCharges
	}

	shipping, billing := *req.ShippingAddress, *req.BillingAddress
	shipping.Normalize()
	billing.Normalize()

	o := &Order{
		CustomerEmail:   shipping.Email,
		Items:           items,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		ShippingCost:    req.ShippingCost,
		Tax:             req.Tax,
		Discount:        req.Discount,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		Notes:           strings.TrimSpace(req.Notes),
	}
	o.Recalculate()
	if err := o.Validate().Err(); err != nil {
		return nil, nil, err
	}

	return o, products, nil
}

// commit reserves stock line by line and inserts the order.
func (s *Service) commit(ctx context.Context, o *Order) error {
	flow := saga.New()
	for _, li := range o.Items {
		flow.Add(saga.Func("reserve-stock:"+li.ProductID+":"+li.VariantKey().String(),
			func(ctx context.Context) error {
				return s.reserveError(ctx, li, s.products.ReserveStock(ctx, li.ProductID, li.VariantKey(), li.Quantity))
			},
			func(ctx context.Context) error {
				return s.products.ReleaseStock(ctx, li.ProductID, li.VariantKey(), li.Quantity)
			},
		))
	}
	flow.Add(saga.Func("create-order", func(ctx context.Context) error {
		return s.insert(ctx, o)
	}, nil))

	return flow.Run(ctx)
}

func (s *Service) reserveError(ctx context.Context, li LineItem, err error) error {
	if err == nil {
		return nil
	}

	var ise *product.InsufficientStockError
	switch {
	case errors.Is(err, product.ErrNotFound):
		return &ProductNotFoundError{ProductID: li.ProductID}
	case errors.Is(err, product.ErrVariantNotFound):
		return &VariantNotFoundError{Title: li.Snapshot.Title, Variant: li.VariantKey()}
	case errors.As(err, &ise):
		s.conflicts.Add(ctx, 1)
		return &InsufficientStockError{Title: li.Snapshot.Title, Available: ise.Available, Requested: li.Quantity}
	default:
		return errors.Wrapf(err, "reserve stock for product %s", li.ProductID)
	}
}

// insert persists o, regenerating the order number when it collides.
func (s *Service) insert(ctx context.Context, o *Order) error {
	for attempt := 1; ; attempt++ {
		o.Number = GenerateNumber(s.now(), s.intn(1000))

		err := s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return errors.Wrap(err, "create order")
		}
		if attempt == maxNumberAttempts {
			return errors.Wrapf(err, "create order after %d attempts", attempt)
		}
		zctx.From(ctx).Debug("Order number collision, regenerating",
			zap.String("order_number", o.Number),
			zap.Int("attempt", attempt),
		)
	}
}
