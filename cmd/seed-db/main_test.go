package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/zarqash/internal/domain/product"
)

const sampleProducts = `[
  {
    "title": "Neo Splash",
    "description": "Blue dial",
    "brandName": "Titan",
    "price": {"retail": "4995", "display": "5995"},
    "strapType": "CHAIN",
    "variants": [{"dialColor": "Blue", "strapColor": "Silver", "stock": 12, "images": ["a.jpg"]}],
    "gender": "MALE",
    "sizes": ["M"]
  }
]`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestReadProducts(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		products, err := readProducts(writeFile(t, "products.json", []byte(sampleProducts)))
		require.NoError(t, err)
		require.Len(t, products, 1)

		p := products[0].toProduct()
		assert.Equal(t, "Neo Splash", p.Title)
		assert.Equal(t, product.StrapChain, p.StrapType)
		assert.Equal(t, "4995", p.Price.Retail.String())
		assert.Equal(t, "5995", p.Price.Display.Decimal.String())
		assert.Equal(t, []product.Size{product.SizeM}, p.Sizes)
		require.Len(t, p.Variants, 1)
		assert.Equal(t, 12, p.Variants[0].Stock)
		assert.Equal(t, []string{"a.jpg"}, p.Variants[0].Images)
	})

	t.Run("Gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "products.json.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := pgzip.NewWriter(f)
		_, err = gz.Write([]byte(sampleProducts))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		products, err := readProducts(path)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Titan", products[0].BrandName)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := readProducts(writeFile(t, "bad.json", []byte(`{"title":`)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse products JSON")
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := readProducts(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	path, err := filepath.Abs(filepath.Join("..", "..", "db", "seed", "products.json"))
	require.NoError(t, err)

	products, err := readProducts(path)
	require.NoError(t, err)
	require.NotEmpty(t, products)

	// Every bundled product must pass creation checks.
	for _, in := range products {
		p := in.toProduct()
		require.NoError(t, product.CheckRequired(p), in.Title)
		require.NoError(t, p.Validate().Err(), in.Title)
	}

	require.NoError(t, run(ctx, zaptest.NewLogger(t), "memory://", path, false, 2))
}
