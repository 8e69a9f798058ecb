package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/gateway"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// writeError maps domain and gateway errors to a status code.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var validationErr *gateway.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrListingNotFound), errors.Is(err, domain.ErrPropertyNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
}
