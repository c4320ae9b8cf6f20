package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Mock implementations ---

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func TestWrap_Order(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), tag("outer"), tag("middle"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner"}, calls)
}

func TestMakeRouteFinder(t *testing.T) {
	mux := chi.NewRouter()
	mux.Get("/api/orders/{orderId}", func(http.ResponseWriter, *http.Request) {})
	mux.Get("/api/orders/admin/all", func(http.ResponseWriter, *http.Request) {})
	find := MakeRouteFinder(mux)

	tests := []struct {
		method string
		path   string
		want   string
		ok     bool
	}{
		{http.MethodGet, "/api/orders/abc", "/api/orders/{orderId}", true},
		{http.MethodGet, "/api/orders/admin/all", "/api/orders/admin/all", true},
		{http.MethodPost, "/api/orders/abc", "", false},
		{http.MethodGet, "/nope", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got, ok := find(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Wrap(panicking, InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "close", w.Header().Get("Connection"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal Server Error", body["message"])

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
}

func TestRecovery_AbortHandler(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("Generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})
	t.Run("Reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	})
	t.Run("Rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, seen, 36)
	})
}

func TestInjectLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Wrap(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("inside")
	}), RequestID(), InjectLogger(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("inside").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
}

func TestLogRequests(t *testing.T) {
	mux := chi.NewRouter()
	mux.Get("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("{}"))
	})
	mux.Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	core, logs := observer.New(zapcore.DebugLevel)
	h := Wrap(mux, InjectLogger(zap.New(core)), LogRequests(MakeRouteFinder(mux)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/xyz", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/api/products/{id}", entries[0].ContextMap()["route"])
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
	assert.EqualValues(t, 2, entries[0].ContextMap()["bytes"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusOK, entries[1].ContextMap()["status"])

	assert.Equal(t, "unmatched", entries[2].ContextMap()["route"])
}

func TestInstrument(t *testing.T) {
	mux := chi.NewRouter()
	mux.Get("/api/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	find := MakeRouteFinder(mux)
	h := Wrap(mux, Instrument("zarqash-api", find, noopTelemetry{}), Labeler(find))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		headers     map[string]string
		wantStatus  int
		wantOrigin  string
		wantMethods string
		wantCreds   string
	}{
		{
			name:       "Wildcard actual request",
			cfg:        CORSConfig{},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:   "Preflight allowed",
			cfg:    CORSConfig{AllowOrigins: []string{"https://shop.example"}, MaxAge: 600},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                        "https://SHOP.example",
				"Access-Control-Request-Method": "PATCH",
			},
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "https://shop.example",
			wantMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		},
		{
			name:   "Preflight denied",
			cfg:    CORSConfig{AllowOrigins: []string{"https://shop.example"}},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                        "https://evil.example",
				"Access-Control-Request-Method": "GET",
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "Credentials echo origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://admin.example"},
			wantStatus: http.StatusOK,
			wantOrigin: "https://admin.example",
			wantCreds:  "true",
		},
		{
			name:       "No origin",
			cfg:        CORSConfig{AllowOrigins: []string{"https://shop.example"}},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/api/products", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantMethods, w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORS_PreflightEchoesRequestHeaders(t *testing.T) {
	h := CORS(CORSConfig{})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Request-ID")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "Content-Type, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
}
