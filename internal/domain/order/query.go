package order

import (
	"context"
	"math"
	"strings"

	"github.com/xenking/zarqash/internal/domain/product"
)

const (
	defaultPage       = 1
	defaultUserLimit  = 10
	maxUserLimit      = 100
	defaultAdminLimit = 20
)

// ListParams are the raw listing controls. Nil Page or Limit means the
// parameter was absent (or not a number) and the listing default applies.
type ListParams struct {
	Page      *int
	Limit     *int
	Status    string
	SortBy    string
	SortOrder string
}

// Pagination describes the position of a page within a listing.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasNextPage bool
	HasPrevPage bool
}

// NewPagination derives page metadata from a total count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []Order
	Pagination Pagination
	Products   map[string]product.Product
}

// ListByEmail lists a customer's orders. Page must be >= 1 and limit within
// [1, 100]; explicit zero values are rejected.
func (s *Service) ListByEmail(ctx context.Context, email string, p ListParams) (*ListResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	page, limit := valueOr(p.Page, defaultPage), valueOr(p.Limit, defaultUserLimit)
	if page < 1 || limit < 1 || limit > maxUserLimit {
		return nil, ErrInvalidPagination
	}

	q := p.query(page, limit)
	q.Email = email
	return s.list(ctx, q, page, limit)
}

// ListAll lists every order. Out of range page or limit values fall back to
// the defaults.
func (s *Service) ListAll(ctx context.Context, p ListParams) (*ListResult, error) {
	page, limit := valueOr(p.Page, defaultPage), valueOr(p.Limit, defaultAdminLimit)
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultAdminLimit
	}
	return s.list(ctx, p.query(page, limit), page, limit)
}

func (p ListParams) query(page, limit int) ListQuery {
	q := ListQuery{
		SortBy:   ParseSortField(p.SortBy),
		SortDesc: p.SortOrder != "asc",
		Skip:     skipFor(page, limit),
		Limit:    limit,
	}
	if st := Status(p.Status); st.Valid() {
		q.Status = st
	}
	return q
}

// skipFor returns (page-1)*limit, saturating at math.MaxInt so an absurd page
// reads as past the end instead of wrapping negative.
func skipFor(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func (s *Service) list(ctx context.Context, q ListQuery, page, limit int) (*ListResult, error) {
	orders, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, err
	}

	refs := make([]*Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	products, err := s.resolveProducts(ctx, refs...)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Orders:     orders,
		Pagination: NewPagination(page, limit, total),
		Products:   products,
	}, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	if !s.orders.ValidID(id) {
		return nil, ErrInvalidID
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withProducts(ctx, o)
}

// GetByNumber returns an order by its order number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Result, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrNumberRequired
	}
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.withProducts(ctx, o)
}

func (s *Service) withProducts(ctx context.Context, o *Order) (*Result, error) {
	products, err := s.resolveProducts(ctx, o)
	if err != nil {
		return nil, err
	}
	return &Result{Order: o, Products: products}, nil
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
