package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Admin          *AdminHandler
	Catalog        *CatalogHandler
	Cart           *CartHandler
	AdminJWTSecret string
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket feed outlives the request timeout.
	r.Get("/api/v1/cart/ws", cfg.Cart.Feed)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.Compress(5))

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
			})

			r.Group(func(r chi.Router) {
				r.Use(AdminAuth(cfg.AdminJWTSecret))

				r.Route("/admin/products", func(r chi.Router) {
					r.Get("/", cfg.Admin.ListProducts)
					r.Post("/", cfg.Admin.AddProduct)
					r.Patch("/{id}", cfg.Admin.UpdateProduct)
					r.Delete("/{id}", cfg.Admin.DeleteProduct)
				})

				r.Route("/catalog", func(r chi.Router) {
					r.Get("/", cfg.Catalog.View)
					r.Post("/products", cfg.Catalog.CreateProduct)
					r.Put("/products/{id}/fields/{field}", cfg.Catalog.EditField)
					r.Post("/products/{id}/save", cfg.Catalog.Save)
					r.Post("/sections/{source}/toggle", cfg.Catalog.ToggleSection)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(cfg.AdminJWTSecret))

			r.Get("/", cfg.Admin.Page)
			r.Post("/products", cfg.Admin.SubmitForm)
			r.Post("/products/{id}", cfg.Admin.SubmitUpdate)
			r.Post("/products/{id}/delete", cfg.Admin.SubmitDelete)
		})
	})

	return r
}
