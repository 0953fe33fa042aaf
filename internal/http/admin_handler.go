package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/admin"
	"github.com/fjod/go_storefront/internal/form"
	"github.com/fjod/go_storefront/internal/validation"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	manager *admin.Manager
	timeout time.Duration
}

func NewAdminHandler(manager *admin.Manager, timeout time.Duration) *AdminHandler {
	return &AdminHandler{manager: manager, timeout: timeout}
}

type AddProductRequestDTO struct {
	Name  string `json:"namn"`
	Price string `json:"pris"`
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Products())
}

func (h *AdminHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.manager.AddProduct(ctx, req.Name, req.Price)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var upd admin.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.manager.UpdateProduct(ctx, chi.URLParam(r, "id"), upd); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.manager.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageState is what a re-rendered admin screen needs beyond the product
// list: the add form's input and errors, and the row whose edit failed.
type pageState struct {
	NewName  string
	NewPrice string
	NewErrs  validation.FieldErrors

	EditID    string
	EditName  string
	EditPrice string
	EditErrs  validation.FieldErrors

	Error string
}

type productRow struct {
	ID    string
	Name  template.HTML
	Price template.HTML
}

type adminPage struct {
	Rows  []productRow
	Name  template.HTML
	Price template.HTML
	Error string
}

var adminTmpl = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Produkter</title></head>
<body>
<h1>Produkter</h1>
{{if .Error}}<p style="color: red">{{.Error}}</p>{{end}}
{{range .Rows}}<div style="border-bottom: 1px solid #eee; padding: 0.5rem 0">
<form method="post" action="/admin/products/{{.ID}}">
{{.Name}}
{{.Price}}
<button type="submit">Spara</button>
</form>
<form method="post" action="/admin/products/{{.ID}}/delete">
<button type="submit">Ta bort</button>
</form>
</div>
{{else}}<p>Inga produkter</p>
{{end}}
<h2>Ny produkt</h2>
<form method="post" action="/admin/products">
{{.Name}}
{{.Price}}
<button type="submit">Lägg till</button>
</form>
</body>
</html>
`))

// Page renders the admin screen. Opening the page fetches the product list.
func (h *AdminHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var st pageState
	if err := h.manager.Load(ctx); err != nil {
		log.Printf("failed to load admin products: %v", err)
		st.Error = "Kunde inte hämta produkter"
	}
	h.renderPage(w, http.StatusOK, st)
}

// SubmitForm handles the add form. Validation errors re-render the form with
// the entered values and per-field messages.
func (h *AdminHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}
	st := pageState{
		NewName:  r.PostForm.Get(admin.KeyNewName),
		NewPrice: r.PostForm.Get(admin.KeyNewPrice),
	}

	product, err := h.manager.AddProduct(ctx, st.NewName, st.NewPrice)
	switch {
	case err == nil:
		log.Printf("admin %s added product %s", getSubject(r.Context()), product.ID)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case errors.As(err, &st.NewErrs):
		h.renderPage(w, http.StatusUnprocessableEntity, st)
	default:
		log.Printf("failed to add product from form: %v", err)
		st.Error = "Kunde inte spara produkten"
		h.renderPage(w, http.StatusBadGateway, st)
	}
}

// SubmitUpdate handles the form of one existing product. Only the fields
// present in the form are written.
func (h *AdminHandler) SubmitUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	st := pageState{EditID: chi.URLParam(r, "id")}
	var upd admin.Update
	if v, ok := r.PostForm[admin.KeyName]; ok && len(v) > 0 {
		st.EditName = v[0]
		upd.Name = &st.EditName
	}
	if v, ok := r.PostForm[admin.KeyPrice]; ok && len(v) > 0 {
		st.EditPrice = v[0]
		upd.Price = &st.EditPrice
	}

	err := h.manager.UpdateProduct(ctx, st.EditID, upd)
	switch {
	case err == nil:
		log.Printf("admin %s updated product %s", getSubject(r.Context()), st.EditID)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case errors.As(err, &st.EditErrs):
		h.renderPage(w, http.StatusUnprocessableEntity, st)
	case errors.Is(err, admin.ErrUnknownProduct):
		st = pageState{Error: "Produkten finns inte"}
		h.renderPage(w, http.StatusNotFound, st)
	default:
		log.Printf("failed to update product from form: %v", err)
		st.EditErrs = nil
		st.Error = "Kunde inte spara produkten"
		h.renderPage(w, http.StatusBadGateway, st)
	}
}

// SubmitDelete handles the delete button of one product.
func (h *AdminHandler) SubmitDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.manager.DeleteProduct(ctx, id); err != nil {
		log.Printf("failed to delete product from form: %v", err)
		h.renderPage(w, http.StatusBadGateway, pageState{Error: "Kunde inte ta bort produkten"})
		return
	}
	log.Printf("admin %s deleted product %s", getSubject(r.Context()), id)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func renderField(f form.TextField) template.HTML {
	html, err := f.HTML()
	if err != nil {
		log.Printf("failed to render field %s: %v", f.Name, err)
	}
	return html
}

func (h *AdminHandler) renderPage(w http.ResponseWriter, status int, st pageState) {
	products := h.manager.Products()
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		name := p.Name
		price := strconv.FormatFloat(p.Price, 'f', -1, 64)
		var errs validation.FieldErrors
		if p.ID == st.EditID {
			if st.EditName != "" || st.EditErrs[admin.KeyName] != "" {
				name = st.EditName
			}
			if st.EditPrice != "" || st.EditErrs[admin.KeyPrice] != "" {
				price = st.EditPrice
			}
			errs = st.EditErrs
		}
		rows = append(rows, productRow{
			ID:    p.ID,
			Name:  renderField(form.TextField{Label: "Namn", Name: admin.KeyName, Value: name, Error: errs[admin.KeyName]}),
			Price: renderField(form.TextField{Label: "Pris", Name: admin.KeyPrice, Value: price, Error: errs[admin.KeyPrice]}),
		})
	}

	page := adminPage{
		Rows: rows,
		Name: renderField(form.TextField{
			Label:       "Namn",
			Name:        admin.KeyNewName,
			Value:       st.NewName,
			Placeholder: "Produktnamn",
			Error:       st.NewErrs[admin.KeyNewName],
		}),
		Price: renderField(form.TextField{
			Label:       "Pris",
			Name:        admin.KeyNewPrice,
			Value:       st.NewPrice,
			Placeholder: "0.00",
			Error:       st.NewErrs[admin.KeyNewPrice],
		}),
		Error: st.Error,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := adminTmpl.Execute(w, page); err != nil {
		log.Printf("failed to render admin page: %v", err)
	}
}
