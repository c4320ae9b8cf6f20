package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/zarqash/internal/domain/product"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// Valid reports whether s is one of the seven known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return false
	}
	return true
}

// PaymentStatus tracks the payment side of an order. It is recorded only.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	MethodCreditCard     PaymentMethod = "CREDIT_CARD"
	MethodDebitCard      PaymentMethod = "DEBIT_CARD"
	MethodPayPal         PaymentMethod = "PAYPAL"
	MethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodPayPal, MethodBankTransfer, MethodCashOnDelivery:
		return true
	}
	return false
}

// Address is a shipping or billing address.
type Address struct {
	Email        string
	MobileNumber string
	FirstName    string
	LastName     string
	Country      string
	State        string
	City         string
	PostalCode   string
	Address      string
}

// Normalize trims every field and lowercases the email.
func (a *Address) Normalize() {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.MobileNumber = strings.TrimSpace(a.MobileNumber)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Country = strings.TrimSpace(a.Country)
	a.State = strings.TrimSpace(a.State)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Address = strings.TrimSpace(a.Address)
}

// Snapshot is the product data captured when the line was ordered.
type Snapshot struct {
	Title       string
	Price       decimal.Decimal
	CoverImage  string
	Category    string
	SubCategory string
}

// LineItem is one ordered variant of a product.
type LineItem struct {
	ProductID  string
	Snapshot   Snapshot
	Quantity   int
	Size       product.Size
	DialColor  string
	StrapColor string
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// VariantKey returns the product variant the line refers to.
func (li LineItem) VariantKey() product.VariantKey {
	return product.VariantKey{DialColor: li.DialColor, StrapColor: li.StrapColor}
}

// Order is a placed customer order.
type Order struct {
	ID                string
	Number            string
	CustomerEmail     string
	Items             []LineItem
	ShippingAddress   Address
	BillingAddress    Address
	Subtotal          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Discount          decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            Status
	PaymentStatus     PaymentStatus
	PaymentMethod     PaymentMethod
	PaymentID         string
	TrackingNumber    string
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	CancelReason      string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recalculate derives every line total, the subtotal, and the order total.
// It must run before every persist.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for i := range o.Items {
		li := &o.Items[i]
		li.TotalPrice = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
		subtotal = subtotal.Add(li.TotalPrice)
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
}

// ProductIDs returns the distinct product references of the order lines.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, li := range o.Items {
		if _, ok := seen[li.ProductID]; ok {
			continue
		}
		seen[li.ProductID] = struct{}{}
		ids = append(ids, li.ProductID)
	}
	return ids
}

// SortField is a whitelisted listing sort key.
type SortField string

const (
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
	SortTotalAmount SortField = "totalAmount"
	SortSubtotal    SortField = "subtotal"
	SortOrderNumber SortField = "orderNumber"
	SortStatus      SortField = "status"
)

// ParseSortField maps a client value to a SortField, defaulting to createdAt.
func ParseSortField(s string) SortField {
	switch f := SortField(s); f {
	case SortCreatedAt, SortUpdatedAt, SortTotalAmount, SortSubtotal, SortOrderNumber, SortStatus:
		return f
	}
	return SortCreatedAt
}

// ListQuery is a store-level listing request. Email and Status are optional
// filters.
type ListQuery struct {
	Email    string
	Status   Status
	SortBy   SortField
	SortDesc bool
	Skip     int
	Limit    int
}

// Repository defines persistence operations for orders.
//
// Create assigns ID, CreatedAt and UpdatedAt and fails with
// ErrDuplicateNumber when the order number is taken. Replace writes every
// mutable field only while the stored UpdatedAt equals prevUpdatedAt and
// fails with ErrConcurrentUpdate otherwise.
type Repository interface {
	ValidID(id string) bool
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, int, error)
	Replace(ctx context.Context, o *Order, prevUpdatedAt time.Time) error
}
