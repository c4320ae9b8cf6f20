package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumber(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		suffix int
		want   string
	}{
		{name: "last eight digits", now: time.UnixMilli(1714564800123), suffix: 7, want: "ORD-64800123-007"},
		{name: "zero padded", now: time.UnixMilli(42), suffix: 999, want: "ORD-00000042-999"},
		{name: "suffix wraps", now: time.UnixMilli(12345678), suffix: 1005, want: "ORD-12345678-005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateNumber(tt.now, tt.suffix)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, NumberPattern, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "0"},
		{raw: "null", want: "0"},
		{raw: "12.50", want: "12.5"},
		{raw: `"7"`, want: "7"},
		{raw: " 3 ", want: "3"},
		{raw: "-4", want: "-4"},
		{raw: "1e2", want: "100"},
		{raw: "12.5usd", want: "12.5"},
		{raw: "12.", want: "12"},
		{raw: "abc", want: "0"},
		{raw: "true", want: "0"},
		{raw: "1.239", want: "1.24"},
		{raw: "1e30000000", want: "0"},
		{raw: "1e-30000000", want: "0"},
		{raw: "5e-19", want: "0"},
		{raw: "2e18", want: "2000000000000000000"},
		{raw: "123456789012345678901", want: "0"},
		{raw: "9e99999usd", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestOrder_Recalculate(t *testing.T) {
	o := &Order{
		Items: []LineItem{
			{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3},
			{UnitPrice: decimal.RequireFromString("5"), Quantity: 1},
		},
		ShippingCost: decimal.RequireFromString("4.50"),
		Tax:          decimal.RequireFromString("1.25"),
		Discount:     decimal.RequireFromString("10"),
	}
	o.Recalculate()

	assert.True(t, decimal.RequireFromString("59.97").Equal(o.Items[0].TotalPrice))
	assert.True(t, decimal.RequireFromString("64.97").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("60.72").Equal(o.TotalAmount))
}

func TestParseSortField(t *testing.T) {
	assert.Equal(t, SortTotalAmount, ParseSortField("totalAmount"))
	assert.Equal(t, SortCreatedAt, ParseSortField("password"))
	assert.Equal(t, SortCreatedAt, ParseSortField(""))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Equal(t, Pagination{CurrentPage: 1}, p)

	p = NewPagination(3, 10, 30)
	require.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
}

func TestOrder_ValidateCollectsAll(t *testing.T) {
	o := &Order{
		Status:        "LOST",
		PaymentStatus: PaymentPending,
		PaymentMethod: MethodPayPal,
	}
	errs := o.Validate()

	fields := make(map[string]bool, len(errs))
	for _, fe := range errs {
		fields[fe.Field] = true
	}
	for _, f := range []string{
		"customerEmail", "items", "status",
		"shippingAddress.email", "shippingAddress.postalCode", "billingAddress.address",
	} {
		assert.True(t, fields[f], "missing %s", f)
	}
	assert.False(t, fields["paymentMethod"])
}
