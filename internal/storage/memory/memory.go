// Package memory is an in-process store for products and orders. Stock
// reservations are serialized by a single mutex.
package memory

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

// Store holds both collections behind one lock.
type Store struct {
	mu       sync.RWMutex
	products map[string]*product.Product
	orders   map[string]*order.Order
	numbers  map[string]string // order number -> order id
	now      func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		products: make(map[string]*product.Product),
		orders:   make(map[string]*order.Order),
		numbers:  make(map[string]string),
		now:      time.Now,
	}
}

// Products returns the product repository view of the store.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// Orders returns the order repository view of the store.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// newID returns a 24-hex identifier shaped like a document id.
func newID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func cloneProduct(p *product.Product) product.Product {
	cp := *p
	cp.Variants = make([]product.Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Images = append([]string(nil), v.Images...)
		cp.Variants[i] = v
	}
	cp.Images = append([]string(nil), p.Images...)
	cp.Sizes = append([]product.Size(nil), p.Sizes...)
	return cp
}

func cloneOrder(o *order.Order) order.Order {
	cp := *o
	cp.Items = append([]order.LineItem(nil), o.Items...)
	cp.EstimatedDelivery = cloneTime(o.EstimatedDelivery)
	cp.DeliveredAt = cloneTime(o.DeliveredAt)
	cp.CancelledAt = cloneTime(o.CancelledAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
