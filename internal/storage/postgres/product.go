package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/zarqash/internal/domain/product"
)

const (
	productColumns = `id, title, sub_title, description, brand_name, retail_price, display_price,
		strap_type, images, cover_image, category, sub_category, gender, sizes, sales, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	listVariantsSQL = `SELECT product_id, dial_color, strap_color, stock, images
		FROM product_variants WHERE product_id = ANY($1::uuid[]) ORDER BY product_id, position`

	insertVariantSQL = `INSERT INTO product_variants (product_id, position, dial_color, strap_color, stock, images)
		VALUES ($1, $2, $3, $4, $5, $6)`

	reserveStockSQL = `UPDATE product_variants SET stock = stock - $4
		WHERE product_id = $1 AND dial_color = $2 AND strap_color = $3 AND stock >= $4`

	releaseStockSQL = `UPDATE product_variants SET stock = stock + $4
		WHERE product_id = $1 AND dial_color = $2 AND strap_color = $3`

	addSalesSQL = `UPDATE products SET sales = sales + $2, updated_at = $3 WHERE id = $1`

	variantStockSQL = `SELECT stock FROM product_variants
		WHERE product_id = $1 AND dial_color = $2 AND strap_color = $3`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Variants live in their own table keyed by product and color pair.
type ProductRepository struct {
	s *Store
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.s.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := loadVariants(ctx, r.s.pool, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	return getProduct(ctx, r.s.pool, uid)
}

func getProduct(ctx context.Context, q querier, id uuid.UUID) (*product.Product, error) {
	rows, err := q.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	one := []product.Product{p}
	if err := loadVariants(ctx, q, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// GetByIDs returns the products that exist among ids. Malformed ids are
// skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := parseID(id); ok {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []product.Product{}, nil
	}

	rows, err := r.s.pool.Query(ctx, getProductsByIDsSQL, valid)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := loadVariants(ctx, r.s.pool, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	id := uuid.New()
	now := r.s.timestamp()

	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertProductSQL,
			id, p.Title, p.SubTitle, p.Description, p.BrandName, p.Price.Retail, p.Price.Display,
			string(p.StrapType), nonNil(p.Images), p.CoverImage, p.Category, p.SubCategory,
			string(p.Gender), sizeStrings(p.Sizes), p.Sales, now, now,
		)
		if err != nil {
			return err
		}
		return insertVariants(ctx, tx, id, p.Variants)
	})
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}

	p.ID = id.String()
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, product.ErrNotFound
	}

	var (
		sets []string
		args = []any{uid}
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.SubTitle != nil {
		set("sub_title", *patch.SubTitle)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.BrandName != nil {
		set("brand_name", *patch.BrandName)
	}
	if patch.Price != nil {
		set("retail_price", patch.Price.Retail)
		set("display_price", patch.Price.Display)
	}
	if patch.StrapType != nil {
		set("strap_type", string(*patch.StrapType))
	}
	if patch.Images != nil {
		set("images", nonNil(*patch.Images))
	}
	if patch.CoverImage != nil {
		set("cover_image", *patch.CoverImage)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.SubCategory != nil {
		set("sub_category", *patch.SubCategory)
	}
	if patch.Gender != nil {
		set("gender", string(*patch.Gender))
	}
	if patch.Sizes != nil {
		set("sizes", sizeStrings(*patch.Sizes))
	}
	if patch.Sales != nil {
		set("sales", *patch.Sales)
	}
	set("updated_at", r.s.timestamp())

	var out *product.Product
	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return product.ErrNotFound
		}
		if patch.Variants != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, uid); err != nil {
				return err
			}
			if err := insertVariants(ctx, tx, uid, *patch.Variants); err != nil {
				return err
			}
		}
		out, err = getProduct(ctx, tx, uid)
		return err
	})
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}
	return out, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	uid, ok := parseID(id)
	if !ok {
		return product.ErrNotFound
	}
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ReserveStock decrements the variant stock only while it still covers qty.
// The guard lives in the UPDATE predicate, so concurrent reservations
// serialize on the variant row.
func (r *ProductRepository) ReserveStock(ctx context.Context, id string, k product.VariantKey, qty int) error {
	return r.adjust(ctx, reserveStockSQL, id, k, qty, qty)
}

// ReleaseStock returns qty units to the variant.
func (r *ProductRepository) ReleaseStock(ctx context.Context, id string, k product.VariantKey, qty int) error {
	return r.adjust(ctx, releaseStockSQL, id, k, qty, -qty)
}

func (r *ProductRepository) adjust(ctx context.Context, stockSQL, id string, k product.VariantKey, qty, sales int) error {
	uid, ok := parseID(id)
	if !ok {
		return product.ErrNotFound
	}

	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stockSQL, uid, k.DialColor, k.StrapColor, qty)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return diagnose(ctx, tx, uid, k, qty)
		}
		_, err = tx.Exec(ctx, addSalesSQL, uid, sales, r.s.timestamp())
		return err
	})
	if err == nil {
		return nil
	}

	var ise *product.InsufficientStockError
	if errors.Is(err, product.ErrNotFound) || errors.Is(err, product.ErrVariantNotFound) || errors.As(err, &ise) {
		return err
	}
	return fmt.Errorf("adjusting stock for product %q: %w", id, err)
}

// diagnose explains why a guarded stock update touched no row.
func diagnose(ctx context.Context, q querier, id uuid.UUID, k product.VariantKey, qty int) error {
	var stock int
	err := q.QueryRow(ctx, variantStockSQL, id, k.DialColor, k.StrapColor).Scan(&stock)
	if err == nil {
		return product.NewInsufficientStockError(id.String(), k, stock, qty)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var exists bool
	if err := q.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return product.ErrNotFound
	}
	return product.ErrVariantNotFound
}

func insertVariants(ctx context.Context, tx pgx.Tx, id uuid.UUID, variants []product.Variant) error {
	batch := &pgx.Batch{}
	for i, v := range variants {
		batch.Queue(insertVariantSQL, id, i, v.DialColor, v.StrapColor, v.Stock, nonNil(v.Images))
	}
	return tx.SendBatch(ctx, batch).Close()
}

func loadVariants(ctx context.Context, q querier, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Variants = []product.Variant{}
	}

	rows, err := q.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid uuid.UUID
			v   product.Variant
		)
		if err := rows.Scan(&pid, &v.DialColor, &v.StrapColor, &v.Stock, &v.Images); err != nil {
			return fmt.Errorf("scanning variant: %w", err)
		}
		i := index[pid.String()]
		products[i].Variants = append(products[i].Variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p                 product.Product
		id                uuid.UUID
		strapType, gender string
		sizes             []string
	)
	err := row.Scan(
		&id, &p.Title, &p.SubTitle, &p.Description, &p.BrandName, &p.Price.Retail, &p.Price.Display,
		&strapType, &p.Images, &p.CoverImage, &p.Category, &p.SubCategory, &gender, &sizes, &p.Sales,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.ID = id.String()
	p.StrapType = product.StrapType(strapType)
	p.Gender = product.Gender(gender)
	p.Sizes = make([]product.Size, len(sizes))
	for i, s := range sizes {
		p.Sizes[i] = product.Size(s)
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, err
}

func sizeStrings(sizes []product.Size) []string {
	out := make([]string, len(sizes))
	for i, s := range sizes {
		out[i] = string(s)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
