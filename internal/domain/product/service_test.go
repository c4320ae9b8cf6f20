package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/zarqash/internal/domain/validate"
)

// --- Mock implementations ---

type mockRepo struct {
	byID      map[string]*Product
	created   []*Product
	lastPatch *Patch
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byID: make(map[string]*Product)}
	for i := range products {
		m.byID[products[i].ID] = &products[i]
	}
	return m
}

func (m *mockRepo) List(_ context.Context) ([]Product, error) {
	out := make([]Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	p.ID = "new-id"
	m.created = append(m.created, p)
	m.byID[p.ID] = p
	return nil
}

func (m *mockRepo) Update(_ context.Context, id string, patch Patch) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.lastPatch = &patch
	patch.Apply(p)
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockRepo) ReserveStock(context.Context, string, VariantKey, int) error { return nil }
func (m *mockRepo) ReleaseStock(context.Context, string, VariantKey, int) error { return nil }

// --- Helpers ---

func validProduct() Product {
	return Product{
		Title:       "Chronograph",
		Description: "Steel chronograph",
		BrandName:   "Zarqash",
		StrapType:   StrapChain,
		Price: Price{
			Retail:  decimal.RequireFromString("199.99"),
			Display: decimal.NewNullDecimal(decimal.RequireFromString("249.99")),
		},
		Variants: []Variant{
			{DialColor: "black", StrapColor: "brown", Stock: 5},
		},
	}
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestCreate_MissingFields(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validProduct()
	p.Price.Display = decimal.NullDecimal{}
	p.Variants = nil

	err := svc.Create(context.Background(), &p)

	var mfErr *MissingFieldsError
	require.ErrorAs(t, err, &mfErr)
	assert.Equal(t, []string{"price.display", "variants"}, mfErr.Fields)
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validProduct()
	p.StrapType = "ROPE"
	p.Gender = "ALIEN"
	p.Sizes = []Size{SizeM, "XXXL"}
	p.Variants = append(p.Variants,
		Variant{DialColor: "black", StrapColor: "brown", Stock: 1},
		Variant{DialColor: "white", StrapColor: "", Stock: -1},
	)

	err := svc.Create(context.Background(), &p)

	var verrs validate.Errors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field
	}
	assert.ElementsMatch(t, []string{
		"strapType", "gender", "sizes.1", "variants.1",
		"variants.2.strapColor", "variants.2.stock",
	}, fields)
}

func TestCreate_Defaults(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := validProduct()
	p.Sales = 42

	require.NoError(t, svc.Create(context.Background(), &p))
	require.Len(t, repo.created, 1)
	assert.Equal(t, 0, repo.created[0].Sales)
	assert.NotNil(t, repo.created[0].Sizes)
	assert.Equal(t, "new-id", p.ID)
}

func TestUpdate_EmptyPatch(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Update(context.Background(), "p1", Patch{})
	require.ErrorIs(t, err, ErrEmptyPatch)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Update(context.Background(), "missing", Patch{Title: ptr("New")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ValidatesMergedProduct(t *testing.T) {
	p := validProduct()
	p.ID = "p1"
	repo := newMockRepo(p)
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "p1", Patch{StrapType: ptr(StrapType("ROPE"))})

	var verrs validate.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Nil(t, repo.lastPatch, "invalid patch must not reach the store")
}

func TestUpdate_AppliesOnlySetFields(t *testing.T) {
	p := validProduct()
	p.ID = "p1"
	repo := newMockRepo(p)
	svc := NewService(repo)

	updated, err := svc.Update(context.Background(), "p1", Patch{Title: ptr("Diver")})
	require.NoError(t, err)

	assert.Equal(t, "Diver", updated.Title)
	assert.Equal(t, 5, updated.Variants[0].Stock)
	assert.Equal(t, "Steel chronograph", updated.Description)
}

func TestDelete(t *testing.T) {
	p := validProduct()
	p.ID = "p1"
	svc := NewService(newMockRepo(p))

	require.NoError(t, svc.Delete(context.Background(), "p1"))
	require.ErrorIs(t, svc.Delete(context.Background(), "p1"), ErrNotFound)
}

func TestProduct_VariantAndSize(t *testing.T) {
	p := validProduct()
	p.Sizes = []Size{SizeM}

	v, ok := p.Variant(VariantKey{DialColor: "black", StrapColor: "brown"})
	require.True(t, ok)
	assert.Equal(t, 5, v.Stock)

	_, ok = p.Variant(VariantKey{DialColor: "black", StrapColor: "Brown"})
	assert.False(t, ok, "variant matching is exact")

	assert.True(t, p.HasSize(SizeM))
	assert.False(t, p.HasSize(SizeL))
}

func TestNewInsufficientStockError(t *testing.T) {
	k := VariantKey{DialColor: "black", StrapColor: "brown"}
	tests := []struct {
		name      string
		available int
		requested int
		want      int
	}{
		{name: "short", available: 2, requested: 3, want: 2},
		{name: "released after failed update", available: 5, requested: 3, want: 2},
		{name: "equal", available: 3, requested: 3, want: 2},
		{name: "single unit", available: 4, requested: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInsufficientStockError("p1", k, tt.available, tt.requested)
			assert.Equal(t, tt.want, err.Available)
			assert.Equal(t, tt.requested, err.Requested)
			assert.Less(t, err.Available, err.Requested)
		})
	}
}

func TestValidate_PriceOutOfRange(t *testing.T) {
	p := validProduct()
	p.Price.Retail = decimal.RequireFromString("1e30000000")
	p.Price.Display = decimal.NewNullDecimal(decimal.RequireFromString("1e-40"))

	errs := p.Validate()
	assert.Contains(t, errs.Messages(), "Retail price is out of range")
	assert.Contains(t, errs.Messages(), "Display price is out of range")
}
