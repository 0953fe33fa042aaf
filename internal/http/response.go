package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_storefront/internal/admin"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/docstore"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/validation"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleStoreError maps domain and store errors to an HTTP response.
func handleStoreError(w http.ResponseWriter, err error) {
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: fe,
		})
		return
	}

	var se *validation.SchemaError
	if errors.As(err, &se) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  se.Error(),
			Code:   "validation_failed",
			Fields: map[string]string{se.Field: se.Message},
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrPriceRequired),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusUnprocessableEntity, "invalid_value", err.Error())
	case errors.Is(err, admin.ErrUnknownProduct),
		errors.Is(err, catalog.ErrUnknownProduct),
		errors.Is(err, docstore.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, docstore.ErrEmptyID), errors.Is(err, docstore.ErrEmptyName):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, docstore.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timeout")
	default:
		log.Printf("store error: %v", err)
		respondError(w, http.StatusBadGateway, "store_error", err.Error())
	}
}
