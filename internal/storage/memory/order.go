package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xenking/zarqash/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) ValidID(id string) bool {
	return validID(id)
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.numbers[o.Number]; taken {
		return order.ErrDuplicateNumber
	}

	now := r.s.timestamp()
	o.ID = newID()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := cloneOrder(o)
	r.s.orders[o.ID] = &stored
	r.s.numbers[o.Number] = o.ID
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	r.s.mu.RLock()
	id, ok := r.s.numbers[number]
	r.s.mu.RUnlock()
	if !ok {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) List(_ context.Context, q order.ListQuery) ([]order.Order, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []order.Order
	for _, o := range r.s.orders {
		if q.Email != "" && o.CustomerEmail != q.Email {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}

	less := orderLess(q.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := &matched[i], &matched[j]
		if q.SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})

	total := len(matched)
	skip := max(q.Skip, 0)
	if skip >= total {
		return []order.Order{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Limit < total-skip {
		end = skip + q.Limit
	}
	return matched[skip:end], total, nil
}

func orderLess(f order.SortField) func(a, b *order.Order) bool {
	switch f {
	case order.SortUpdatedAt:
		return func(a, b *order.Order) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case order.SortTotalAmount:
		return func(a, b *order.Order) bool { return a.TotalAmount.LessThan(b.TotalAmount) }
	case order.SortSubtotal:
		return func(a, b *order.Order) bool { return a.Subtotal.LessThan(b.Subtotal) }
	case order.SortOrderNumber:
		return func(a, b *order.Order) bool { return a.Number < b.Number }
	case order.SortStatus:
		return func(a, b *order.Order) bool { return a.Status < b.Status }
	default:
		return func(a, b *order.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (r *OrderRepository) Replace(_ context.Context, o *order.Order, prevUpdatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return order.ErrConcurrentUpdate
	}

	o.Number = cur.Number
	o.CreatedAt = cur.CreatedAt
	o.UpdatedAt = r.s.timestamp()
	if !o.UpdatedAt.After(prevUpdatedAt) {
		o.UpdatedAt = prevUpdatedAt.Add(time.Millisecond)
	}
	stored := cloneOrder(o)
	r.s.orders[o.ID] = &stored
	return nil
}
