package memory

import (
	"context"
	"sort"

	"github.com/xenking/zarqash/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	s *Store
}

// List returns all products, newest first.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, cloneProduct(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

// GetByIDs returns the products that exist among ids, skipping the rest.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.timestamp()
	p.ID = newID()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := cloneProduct(p)
	r.s.products[p.ID] = &stored
	return nil
}

func (r *ProductRepository) Update(_ context.Context, id string, patch product.Patch) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	patch.Apply(p)
	p.UpdatedAt = r.s.timestamp()
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) ReserveStock(_ context.Context, id string, k product.VariantKey, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, p, err := r.variant(id, k)
	if err != nil {
		return err
	}
	if v.Stock < qty {
		return &product.InsufficientStockError{ProductID: id, Variant: k, Available: v.Stock, Requested: qty}
	}
	v.Stock -= qty
	p.Sales += qty
	p.UpdatedAt = r.s.timestamp()
	return nil
}

func (r *ProductRepository) ReleaseStock(_ context.Context, id string, k product.VariantKey, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, p, err := r.variant(id, k)
	if err != nil {
		return err
	}
	v.Stock += qty
	p.Sales -= qty
	p.UpdatedAt = r.s.timestamp()
	return nil
}

// variant must be called with the write lock held.
func (r *ProductRepository) variant(id string, k product.VariantKey) (*product.Variant, *product.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil, product.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].Key() == k {
			return &p.Variants[i], p, nil
		}
	}
	return nil, nil, product.ErrVariantNotFound
}
