// Package httpmiddleware contains the HTTP middleware chain shared by the API
// server: panic recovery, CORS, rate limiting, request ids, request-scoped
// logging, and OpenTelemetry instrumentation.
package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RouteFinder resolves the route pattern a request will be dispatched to.
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder returns a RouteFinder backed by the router's own matching,
// so patterns are known before the request reaches the router.
func MakeRouteFinder(mux *chi.Mux) RouteFinder {
	return func(r *http.Request) (string, bool) {
		pattern := mux.Find(chi.NewRouteContext(), r.Method, r.URL.Path)
		return pattern, pattern != ""
	}
}

// writeError writes the API failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
