package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/zarqash/internal/domain/product"
	"github.com/xenking/zarqash/internal/domain/validate"
)

// Sentinel errors for order input and state checks.
var (
	ErrEmptyItems        = errors.New("Order must contain at least one item")
	ErrMissingCheckout   = errors.New("Shipping address, billing address, and payment method are required")
	ErrInvalidItem       = errors.New("Each item must have a valid product ID and quantity")
	ErrNegativeCharges   = errors.New("Shipping cost, tax, and discount must be non-negative values")
	ErrInvalidID         = errors.New("Invalid order ID format")
	ErrInvalidStatus     = errors.New("Invalid status value")
	ErrEmailRequired     = errors.New("Email is required")
	ErrNumberRequired    = errors.New("Order number is required")
	ErrInvalidPagination = errors.New("Invalid pagination parameters. Page must be >= 1, limit must be between 1 and 100")
	ErrNotFound          = errors.New("Order not found")
	ErrConcurrentUpdate  = errors.New("Order was modified concurrently, retry the request")
	ErrDuplicateNumber   = errors.New("order number already exists")
)

// ProductNotFoundError indicates a cart line references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %s not found", e.ProductID)
}

// MissingColorsError indicates a cart line without dial or strap color.
type MissingColorsError struct {
	Title string
}

func (e *MissingColorsError) Error() string {
	return fmt.Sprintf("Both dialColor and strapColor are required for product %q", e.Title)
}

// VariantNotFoundError indicates no variant matches the requested colors.
type VariantNotFoundError struct {
	Title   string
	Variant product.VariantKey
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("No matching variant found for dialColor %q and strapColor %q in product %q",
		e.Variant.DialColor, e.Variant.StrapColor, e.Title)
}

// InsufficientStockError reports the stock seen when a line could not be
// reserved.
type InsufficientStockError struct {
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for variant of product %q. Available: %d, Requested: %d",
		e.Title, e.Available, e.Requested)
}

// SizeUnavailableError indicates the requested size is not offered.
type SizeUnavailableError struct {
	Title string
	Size  product.Size
}

func (e *SizeUnavailableError) Error() string {
	return fmt.Sprintf("Size %q is not available for product %q", e.Size, e.Title)
}

// NotCancellableError indicates the order is already in a terminal state.
type NotCancellableError struct {
	Status Status
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("Order cannot be cancelled. Current status: %s", e.Status)
}

// IsValidation reports whether err is a client input or business rule
// failure of the order workflows.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyItems, ErrMissingCheckout, ErrInvalidItem, ErrNegativeCharges,
		ErrInvalidID, ErrInvalidStatus, ErrEmailRequired, ErrNumberRequired,
		ErrInvalidPagination, ErrConcurrentUpdate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	var (
		verrs validate.Errors
		mc    *MissingColorsError
		vnf   *VariantNotFoundError
		ise   *InsufficientStockError
		su    *SizeUnavailableError
		nc    *NotCancellableError
	)
	return errors.As(err, &verrs) || errors.As(err, &mc) || errors.As(err, &vnf) ||
		errors.As(err, &ise) || errors.As(err, &su) || errors.As(err, &nc)
}

// IsNotFound reports whether err means a referenced order or product does
// not exist.
func IsNotFound(err error) bool {
	var pnf *ProductNotFoundError
	return errors.Is(err, ErrNotFound) || errors.As(err, &pnf)
}
