package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound        = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrEmptyPatch      = errors.New("At least one field must be provided to update.")
)

// InsufficientStockError is returned by ReserveStock when the variant holds
// fewer units than requested at the moment of the conditional update.
type InsufficientStockError struct {
	ProductID string
	Variant   VariantKey
	Available int
	Requested int
}

// NewInsufficientStockError reports a failed reservation. available comes from
// a read taken after the conditional update failed, so stock may have been
// released in between; it is capped below requested to stay consistent with
// the failure.
func NewInsufficientStockError(id string, k VariantKey, available, requested int) *InsufficientStockError {
	if available >= requested {
		available = max(requested-1, 0)
	}
	return &InsufficientStockError{ProductID: id, Variant: k, Available: available, Requested: requested}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s variant %s: available %d, requested %d",
		e.ProductID, e.Variant, e.Available, e.Requested)
}

// StrapType is the watch strap kind.
type StrapType string

const (
	StrapChain StrapType = "CHAIN"
	StrapBelt  StrapType = "BELT"
)

// Valid reports whether t is a known strap type.
func (t StrapType) Valid() bool {
	return t == StrapChain || t == StrapBelt
}

// Gender is the target audience of a product.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderKids   Gender = "KIDS"
	GenderUnisex Gender = "UNISEX"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderKids, GenderUnisex:
		return true
	}
	return false
}

// Size is a garment-style size label.
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

func (s Size) Valid() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

// Price holds the selling price and an optional display (list) price.
type Price struct {
	Retail  decimal.Decimal
	Display decimal.NullDecimal
}

// VariantKey identifies a variant within a product.
type VariantKey struct {
	DialColor  string
	StrapColor string
}

func (k VariantKey) String() string {
	return k.DialColor + "/" + k.StrapColor
}

// Variant is a dial/strap color combination with its own stock counter.
type Variant struct {
	DialColor  string
	StrapColor string
	Stock      int
	Images     []string
}

// Key returns the identity of the variant.
func (v Variant) Key() VariantKey {
	return VariantKey{DialColor: v.DialColor, StrapColor: v.StrapColor}
}

// Product is a catalog watch with per-variant stock.
type Product struct {
	ID          string
	Title       string
	SubTitle    string
	Description string
	BrandName   string
	Price       Price
	StrapType   StrapType
	Variants    []Variant
	Images      []string
	CoverImage  string
	Category    string
	SubCategory string
	Gender      Gender
	Sizes       []Size
	Sales       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant returns the variant matching k exactly.
func (p *Product) Variant(k VariantKey) (Variant, bool) {
	for _, v := range p.Variants {
		if v.DialColor == k.DialColor && v.StrapColor == k.StrapColor {
			return v, true
		}
	}
	return Variant{}, false
}

// HasSize reports whether s is offered for the product.
func (p *Product) HasSize(s Size) bool {
	for _, have := range p.Sizes {
		if have == s {
			return true
		}
	}
	return false
}

// Repository defines persistence operations for the product catalog.
//
// ReserveStock and ReleaseStock are single conditional updates at the store:
// ReserveStock decrements the variant stock and increments sales only while
// stock >= qty, ReleaseStock applies the inverse. Both return ErrNotFound or
// ErrVariantNotFound when the target is missing.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, patch Patch) (*Product, error)
	Delete(ctx context.Context, id string) error
	ReserveStock(ctx context.Context, id string, k VariantKey, qty int) error
	ReleaseStock(ctx context.Context, id string, k VariantKey, qty int) error
}
