//go:build integration

package mongodb

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

var blackBrown = product.VariantKey{DialColor: "black", StrapColor: "brown"}

func startStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := Open(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func seedProduct(t *testing.T, repo *ProductRepository, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		Title:       "Field",
		Description: "A watch",
		BrandName:   "Zarqash",
		StrapType:   product.StrapBelt,
		Price: product.Price{
			Retail:  decimal.RequireFromString("129.99"),
			Display: decimal.NewNullDecimal(decimal.RequireFromString("149.99")),
		},
		Sizes:    []product.Size{product.SizeM},
		Variants: []product.Variant{{DialColor: "black", StrapColor: "brown", Stock: stock}},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestStore(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()
	products, orders := s.Products(), s.Orders()

	t.Run("product round trip", func(t *testing.T) {
		p := seedProduct(t, products, 5)

		got, err := products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Field", got.Title)
		assert.True(t, decimal.RequireFromString("129.99").Equal(got.Price.Retail))
		require.True(t, got.Price.Display.Valid)
		assert.True(t, decimal.RequireFromString("149.99").Equal(got.Price.Display.Decimal))
		assert.Equal(t, p.CreatedAt, got.CreatedAt)

		title := "Field II"
		updated, err := products.Update(ctx, p.ID, product.Patch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Field II", updated.Title)
		assert.Equal(t, "A watch", updated.Description)

		_, err = products.GetByID(ctx, "not-an-id")
		require.ErrorIs(t, err, product.ErrNotFound)

		require.NoError(t, products.Delete(ctx, p.ID))
		require.ErrorIs(t, products.Delete(ctx, p.ID), product.ErrNotFound)
	})

	t.Run("reserve and release", func(t *testing.T) {
		p := seedProduct(t, products, 5)

		require.NoError(t, products.ReserveStock(ctx, p.ID, blackBrown, 3))
		err := products.ReserveStock(ctx, p.ID, blackBrown, 3)
		var ise *product.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, 2, ise.Available)

		require.ErrorIs(t, products.ReserveStock(ctx, p.ID, product.VariantKey{DialColor: "gold", StrapColor: "brown"}, 1),
			product.ErrVariantNotFound)

		require.NoError(t, products.ReleaseStock(ctx, p.ID, blackBrown, 3))
		got, err := products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Variants[0].Stock)
		assert.Equal(t, 0, got.Sales)
	})

	t.Run("concurrent reserve never oversells", func(t *testing.T) {
		p := seedProduct(t, products, 10)

		var (
			wg      sync.WaitGroup
			success atomic.Int32
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if products.ReserveStock(ctx, p.ID, blackBrown, 3) == nil {
					success.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(3), success.Load())
		got, err := products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Variants[0].Stock)
	})

	t.Run("orders", func(t *testing.T) {
		p := seedProduct(t, products, 5)
		o := &order.Order{
			Number:        "ORD-12345678-001",
			CustomerEmail: "jane@example.com",
			Items: []order.LineItem{{
				ProductID:  p.ID,
				Snapshot:   order.Snapshot{Title: p.Title, Price: p.Price.Retail},
				Quantity:   2,
				DialColor:  "black",
				StrapColor: "brown",
				UnitPrice:  p.Price.Retail,
			}},
			Status:        order.StatusPending,
			PaymentStatus: order.PaymentPending,
			PaymentMethod: order.MethodPayPal,
		}
		o.Recalculate()
		require.NoError(t, orders.Create(ctx, o))
		assert.True(t, orders.ValidID(o.ID))

		dup := *o
		require.ErrorIs(t, orders.Create(ctx, &dup), order.ErrDuplicateNumber)

		got, err := orders.GetByNumber(ctx, o.Number)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		assert.True(t, decimal.RequireFromString("259.98").Equal(got.TotalAmount))
		assert.Equal(t, p.ID, got.Items[0].ProductID)

		prev := got.UpdatedAt
		stale := *got
		got.Status = order.StatusShipped
		require.NoError(t, orders.Replace(ctx, got, prev))
		assert.True(t, got.UpdatedAt.After(prev))

		stale.Status = order.StatusCancelled
		require.ErrorIs(t, orders.Replace(ctx, &stale, prev), order.ErrConcurrentUpdate)

		list, total, err := orders.List(ctx, order.ListQuery{
			Email: "jane@example.com", SortBy: order.SortCreatedAt, SortDesc: true, Limit: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, order.StatusShipped, list[0].Status)

		_, err = orders.GetByID(ctx, "65a1b2c3d4e5f60718293a4b")
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, s.Ping(ctx))
	})
}
