package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	editor  *catalog.Editor
	timeout time.Duration
}

func NewCatalogHandler(editor *catalog.Editor, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{editor: editor, timeout: timeout}
}

type EditFieldRequestDTO struct {
	Value string `json:"value"`
}

type ToggleResponseDTO struct {
	Source  domain.Source `json:"source"`
	Visible bool          `json:"visible"`
}

func (h *CatalogHandler) View(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.editor.View())
}

// CreateProduct adds a product to the extra catalog. Fields missing from the
// body take the draft defaults; an empty body creates the draft as is.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	draft := catalog.NewDraft()
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.editor.AddProduct(ctx, draft)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// EditField stages one field value in the edit cache.
func (h *CatalogHandler) EditField(w http.ResponseWriter, r *http.Request) {
	field, err := domain.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_field", err.Error())
		return
	}

	var req EditFieldRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.editor.EditField(chi.URLParam(r, "id"), field, req.Value)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.editor.Save(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ToggleSection(w http.ResponseWriter, r *http.Request) {
	source, err := domain.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_source", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponseDTO{Source: source, Visible: h.editor.Toggle(source)})
}
