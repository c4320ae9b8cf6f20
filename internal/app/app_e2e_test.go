//go:build integration

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

const seededProducts = 6

var (
	baseURL    string
	httpClient *http.Client
)

type envelope[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors"`
}

type variant struct {
	DialColor  string `json:"dialColor"`
	StrapColor string `json:"strapColor"`
	Stock      int    `json:"stock"`
}

type productResponse struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Variants []variant `json:"variants"`
	Sales    int       `json:"sales"`
}

type orderResponse struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Status      string      `json:"status"`
	TotalAmount json.Number `json:"totalAmount"`
}

type placedResponse struct {
	Order       orderResponse `json:"order"`
	OrderNumber string        `json:"orderNumber"`
}

type singleResponse struct {
	Order orderResponse `json:"order"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("../../docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	err = dc.
		WaitForService("api", wait.ForHTTP("/readyz").WithPort("8000/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	api, err := dc.ServiceContainer(ctx, "api")
	if err != nil {
		log.Fatalf("api container: %v", err)
	}
	host, err := api.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := api.MappedPort(ctx, "8000/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	baseURL = fmt.Sprintf("http://%s:%s", host, port.Port())
	httpClient = &http.Client{Timeout: 10 * time.Second}

	exitCode, output, err := api.Exec(ctx, []string{
		"/app/seed-db",
		"--database-url=mongodb://mongo:27017/zarqash",
		"--products-file=/app/db/seed/products.json",
	})
	if err != nil {
		log.Fatalf("seed exec: %v", err)
	}
	if exitCode != 0 {
		out, _ := io.ReadAll(output)
		log.Fatalf("seed-db exited %d: %s", exitCode, out)
	}

	result := m.Run()

	stopTimeout := 30 * time.Second
	if err := api.Stop(ctx, &stopTimeout); err != nil {
		log.Printf("stop api container: %v", err)
	}
	if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
		log.Printf("compose down: %v", err)
	}
	return result
}

func call[T any](t *testing.T, method, path string, body any) (int, envelope[T]) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func orderRequest(productID string, v variant, qty int) map[string]any {
	address := map[string]string{
		"email":        "e2e@example.com",
		"mobileNumber": "+15551234567",
		"firstName":    "End",
		"lastName":     "ToEnd",
		"country":      "US",
		"state":        "CA",
		"city":         "San Francisco",
		"postalCode":   "94105",
		"address":      "1 Test Street",
	}
	return map[string]any{
		"items": []map[string]any{{
			"product":    productID,
			"quantity":   qty,
			"dialColor":  v.DialColor,
			"strapColor": v.StrapColor,
		}},
		"shippingAddress": address,
		"billingAddress":  address,
		"paymentMethod":   "CREDIT_CARD",
	}
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := httpClient.Get(baseURL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestCatalogSeeded(t *testing.T) {
	status, res := call[[]productResponse](t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	assert.Len(t, res.Data, seededProducts)
}

func TestOrderLifecycle(t *testing.T) {
	_, list := call[[]productResponse](t, http.MethodGet, "/api/products", nil)
	require.NotEmpty(t, list.Data)
	p := list.Data[0]
	v := p.Variants[0]

	status, placed := call[placedResponse](t, http.MethodPost, "/api/orders", orderRequest(p.ID, v, 2))
	require.Equal(t, http.StatusCreated, status, placed.Message)
	require.NotEmpty(t, placed.Data.OrderNumber)

	_, after := call[productResponse](t, http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, v.Stock-2, after.Data.Variants[0].Stock)

	status, byNumber := call[singleResponse](t, http.MethodGet, "/api/orders/number/"+placed.Data.OrderNumber, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, placed.Data.Order.ID, byNumber.Data.Order.ID)

	status, cancelled := call[singleResponse](t, http.MethodPatch, "/api/orders/"+placed.Data.Order.ID+"/cancel", map[string]any{
		"cancelReason": "changed my mind",
	})
	require.Equal(t, http.StatusOK, status, cancelled.Message)
	assert.Equal(t, "CANCELLED", cancelled.Data.Order.Status)

	_, restored := call[productResponse](t, http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, v.Stock, restored.Data.Variants[0].Stock)
}

func TestInsufficientStock(t *testing.T) {
	_, list := call[[]productResponse](t, http.MethodGet, "/api/products", nil)
	require.NotEmpty(t, list.Data)
	p := list.Data[0]
	v := p.Variants[0]

	status, res := call[placedResponse](t, http.MethodPost, "/api/orders", orderRequest(p.ID, v, v.Stock+1000))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)
}
