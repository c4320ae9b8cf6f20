package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
	"github.com/xenking/zarqash/internal/domain/validate"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errBadBody marks a request body that is not the expected JSON.
var errBadBody = errors.New("Invalid request body")

type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type failureEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureEnvelope{Message: message})
}

// decodeBody decodes the JSON request body into dst. An empty body leaves dst
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}

// fail maps a service error to its response. internal is the message used
// for unexpected failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, internal string) {
	var (
		verrs   validate.Errors
		missing *product.MissingFieldsError
	)
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, failureEnvelope{
			Message: "Validation error",
			Errors:  verrs.Messages(),
		})
	case errors.Is(err, errBadBody):
		writeFailure(w, http.StatusBadRequest, errBadBody.Error())
	case errors.As(err, &missing), errors.Is(err, product.ErrEmptyPatch):
		writeFailure(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, product.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Product not found.")
	case order.IsNotFound(err), order.IsValidation(err):
		status := http.StatusBadRequest
		if order.IsNotFound(err) {
			status = http.StatusNotFound
		}
		writeFailure(w, status, rootMessage(err))
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		resp := failureEnvelope{Message: internal}
		if h.exposeErrors {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// rootMessage returns the message of the innermost client-facing error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
