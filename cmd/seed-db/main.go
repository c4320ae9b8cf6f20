package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/zarqash/internal/domain/product"
	"github.com/xenking/zarqash/internal/storage"
)

type variantJSON struct {
	DialColor  string   `json:"dialColor"`
	StrapColor string   `json:"strapColor"`
	Stock      int      `json:"stock"`
	Images     []string `json:"images"`
}

type productJSON struct {
	Title       string `json:"title"`
	SubTitle    string `json:"subTitle"`
	Description string `json:"description"`
	BrandName   string `json:"brandName"`
	Price       struct {
		Retail  decimal.Decimal     `json:"retail"`
		Display decimal.NullDecimal `json:"display"`
	} `json:"price"`
	StrapType   string        `json:"strapType"`
	Variants    []variantJSON `json:"variants"`
	Images      []string      `json:"images"`
	CoverImage  string        `json:"coverImage"`
	Category    string        `json:"category"`
	SubCategory string        `json:"subCategory"`
	Gender      string        `json:"gender"`
	Sizes       []string      `json:"sizes"`
}

func (p productJSON) toProduct() *product.Product {
	out := &product.Product{
		Title:       p.Title,
		SubTitle:    p.SubTitle,
		Description: p.Description,
		BrandName:   p.BrandName,
		Price:       product.Price{Retail: p.Price.Retail, Display: p.Price.Display},
		StrapType:   product.StrapType(p.StrapType),
		Images:      p.Images,
		CoverImage:  p.CoverImage,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Gender:      product.Gender(p.Gender),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, product.Variant(v))
	}
	for _, s := range p.Sizes {
		out.Sizes = append(out.Sizes, product.Size(s))
	}
	return out
}

func main() {
	var (
		databaseURL  string
		productsFile string
		force        bool
		workers      int
	)

	flag.StringVar(&databaseURL, "database-url", "", "store URL (or MONGO_URI / DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzip compressed (.gz)")
	flag.BoolVar(&force, "force", false, "insert even when the catalog already has products")
	flag.IntVar(&workers, "workers", 4, "concurrent inserts")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	for _, name := range []string{"MONGO_URI", "DATABASE_URL"} {
		if databaseURL == "" {
			databaseURL = os.Getenv(name)
		}
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url, MONGO_URI or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, productsFile, force, workers); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile string, force bool, workers int) error {
	products, err := readProducts(productsFile)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() { _ = store.Close(context.Background()) }()
	lg.Info("Store connected", zap.String("backend", store.Backend))

	svc := product.NewService(store.Products)
	if !force {
		existing, err := svc.List(ctx)
		if err != nil {
			return errors.Wrap(err, "list products")
		}
		if len(existing) > 0 {
			lg.Info("Catalog already seeded, skipping", zap.Int("products", len(existing)))
			return nil
		}
	}

	lg.Info("Inserting products", zap.Int("count", len(products)), zap.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, in := range products {
		g.Go(func() error {
			p := in.toProduct()
			if err := svc.Create(ctx, p); err != nil {
				return errors.Wrapf(err, "product #%d %q", i, in.Title)
			}
			lg.Info("Inserted product", zap.String("id", p.ID), zap.String("title", p.Title))
			return nil
		})
	}
	return g.Wait()
}

func readProducts(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return products, nil
}
