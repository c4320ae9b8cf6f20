package product

import (
	"context"
	"fmt"
)

// Service implements catalog administration on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a product Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all products, newest first.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Get returns a single product. Malformed ids yield ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create checks required fields, validates, and persists p.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := CheckRequired(p); err != nil {
		return err
	}
	if p.Sizes == nil {
		p.Sizes = []Size{}
	}
	p.Sales = 0
	if err := p.Validate().Err(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update validates the merged result of applying patch to the stored product
// before handing the patch to the store, which only writes the set fields.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	patch.Apply(&merged)
	if err := merged.Validate().Err(); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, patch)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
