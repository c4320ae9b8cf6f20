package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

const (
	orderColumns = `id, order_number, customer_email, items, shipping_address, billing_address,
		subtotal, shipping_cost, tax, discount, total_amount, status, payment_status, payment_method,
		payment_id, tracking_number, estimated_delivery, delivered_at, cancelled_at, cancel_reason, notes,
		created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	replaceOrderSQL = `UPDATE orders SET
		customer_email = $3, items = $4, shipping_address = $5, billing_address = $6,
		subtotal = $7, shipping_cost = $8, tax = $9, discount = $10, total_amount = $11,
		status = $12, payment_status = $13, payment_method = $14, payment_id = $15,
		tracking_number = $16, estimated_delivery = $17, delivered_at = $18, cancelled_at = $19,
		cancel_reason = $20, notes = $21, updated_at = $22
		WHERE id = $1 AND updated_at = $2
		RETURNING order_number, created_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

// sortColumns whitelists listing sort keys.
var sortColumns = map[order.SortField]string{
	order.SortCreatedAt:   "created_at",
	order.SortUpdatedAt:   "updated_at",
	order.SortTotalAmount: "total_amount",
	order.SortSubtotal:    "subtotal",
	order.SortOrderNumber: "order_number",
	order.SortStatus:      "status",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and addresses are stored as JSONB.
type OrderRepository struct {
	s *Store
}

// ValidID reports whether id is a UUID.
func (r *OrderRepository) ValidID(id string) bool {
	_, ok := parseID(id)
	return ok
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, shipping, billing, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}
	id := uuid.New()
	now := r.s.timestamp()

	_, err = r.s.pool.Exec(ctx, insertOrderSQL,
		id, o.Number, o.CustomerEmail, items, shipping, billing,
		o.Subtotal, o.ShippingCost, o.Tax, o.Discount, o.TotalAmount,
		string(o.Status), string(o.PaymentStatus), string(o.PaymentMethod),
		o.PaymentID, o.TrackingNumber, o.EstimatedDelivery, o.DeliveredAt, o.CancelledAt,
		o.CancelReason, o.Notes, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}

	o.ID = id.String()
	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, order.ErrNotFound
	}
	return r.getOne(ctx, getOrderByIDSQL, uid)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number)
}

func (r *OrderRepository) getOne(ctx context.Context, sql string, arg any) (*order.Order, error) {
	rows, err := r.s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &o, nil
}

// List runs the page query and the count concurrently.
func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) ([]order.Order, int, error) {
	where := " WHERE TRUE"
	var args []any
	if q.Email != "" {
		args = append(args, q.Email)
		where += fmt.Sprintf(" AND customer_email = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[order.SortCreatedAt]
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	pageSQL := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(" ORDER BY %s %s, id %s OFFSET %d", col, dir, dir, q.Skip)
	if q.Limit > 0 {
		pageSQL += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var (
		orders []order.Order
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.s.pool.Query(gctx, pageSQL, args...)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		orders, err = pgx.CollectRows(rows, scanOrder)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.s.pool.QueryRow(gctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("counting orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, total, nil
}

// Replace writes the mutable fields of o while the stored updated_at still
// equals prevUpdatedAt.
func (r *OrderRepository) Replace(ctx context.Context, o *order.Order, prevUpdatedAt time.Time) error {
	uid, ok := parseID(o.ID)
	if !ok {
		return order.ErrNotFound
	}
	items, shipping, billing, err := encodeOrderJSON(o)
	if err != nil {
		return err
	}

	now := r.s.timestamp()
	if !now.After(prevUpdatedAt) {
		now = prevUpdatedAt.Add(time.Millisecond)
	}

	var (
		number    string
		createdAt time.Time
	)
	err = r.s.pool.QueryRow(ctx, replaceOrderSQL,
		uid, prevUpdatedAt, o.CustomerEmail, items, shipping, billing,
		o.Subtotal, o.ShippingCost, o.Tax, o.Discount, o.TotalAmount,
		string(o.Status), string(o.PaymentStatus), string(o.PaymentMethod),
		o.PaymentID, o.TrackingNumber, o.EstimatedDelivery, o.DeliveredAt, o.CancelledAt,
		o.CancelReason, o.Notes, now,
	).Scan(&number, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.s.pool.QueryRow(ctx, orderExistsSQL, uid).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", o.ID, err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("replacing order %q: %w", o.ID, err)
	}

	o.Number = number
	o.CreatedAt = createdAt.UTC()
	o.UpdatedAt = now
	return nil
}

type addressJSON struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Country      string `json:"country"`
	State        string `json:"state"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Address      string `json:"address"`
}

type snapshotJSON struct {
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	CoverImage  string          `json:"coverImage,omitempty"`
	Category    string          `json:"category,omitempty"`
	SubCategory string          `json:"subCategory,omitempty"`
}

type lineItemJSON struct {
	ProductID  string          `json:"product"`
	Snapshot   snapshotJSON    `json:"productSnapshot"`
	Quantity   int             `json:"quantity"`
	Size       string          `json:"size,omitempty"`
	DialColor  string          `json:"dialColor"`
	StrapColor string          `json:"strapColor"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func encodeOrderJSON(o *order.Order) (items, shipping, billing []byte, err error) {
	lines := make([]lineItemJSON, len(o.Items))
	for i, li := range o.Items {
		lines[i] = lineItemJSON{
			ProductID: li.ProductID,
			Snapshot: snapshotJSON{
				Title:       li.Snapshot.Title,
				Price:       li.Snapshot.Price,
				CoverImage:  li.Snapshot.CoverImage,
				Category:    li.Snapshot.Category,
				SubCategory: li.Snapshot.SubCategory,
			},
			Quantity:   li.Quantity,
			Size:       string(li.Size),
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.TotalPrice,
		}
	}
	if items, err = json.Marshal(lines); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if shipping, err = json.Marshal(addressJSON(o.ShippingAddress)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	if billing, err = json.Marshal(addressJSON(o.BillingAddress)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling billing address: %w", err)
	}
	return items, shipping, billing, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                order.Order
		id                               uuid.UUID
		items, shipping, billing         []byte
		status, paymentStatus, paymentBy string
	)
	err := row.Scan(
		&id, &o.Number, &o.CustomerEmail, &items, &shipping, &billing,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Discount, &o.TotalAmount,
		&status, &paymentStatus, &paymentBy,
		&o.PaymentID, &o.TrackingNumber, &o.EstimatedDelivery, &o.DeliveredAt, &o.CancelledAt,
		&o.CancelReason, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	o.ID = id.String()
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.PaymentMethod = order.PaymentMethod(paymentBy)
	o.CreatedAt, o.UpdatedAt = o.CreatedAt.UTC(), o.UpdatedAt.UTC()
	o.EstimatedDelivery = utc(o.EstimatedDelivery)
	o.DeliveredAt = utc(o.DeliveredAt)
	o.CancelledAt = utc(o.CancelledAt)

	var lines []lineItemJSON
	if err := json.Unmarshal(items, &lines); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Items = make([]order.LineItem, len(lines))
	for i, li := range lines {
		o.Items[i] = order.LineItem{
			ProductID: li.ProductID,
			Snapshot: order.Snapshot{
				Title:       li.Snapshot.Title,
				Price:       li.Snapshot.Price,
				CoverImage:  li.Snapshot.CoverImage,
				Category:    li.Snapshot.Category,
				SubCategory: li.Snapshot.SubCategory,
			},
			Quantity:   li.Quantity,
			Size:       product.Size(li.Size),
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.TotalPrice,
		}
	}

	var addr addressJSON
	if err := json.Unmarshal(shipping, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	o.ShippingAddress = order.Address(addr)
	if err := json.Unmarshal(billing, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling billing address: %w", err)
	}
	o.BillingAddress = order.Address(addr)
	return o, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
