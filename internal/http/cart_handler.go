package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/gorilla/websocket"
)

// CartService is the part of cart.Provider the handlers use.
type CartService interface {
	Items() []domain.CartItem
	Watch(ctx context.Context) <-chan []domain.CartItem
	ClearCart(ctx context.Context) error
}

type CartHandler struct {
	cart     CartService
	timeout  time.Duration
	upgrader websocket.Upgrader
}

func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type CartResponseDTO struct {
	Items []domain.CartItem `json:"items"`
	Count int               `json:"count"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items := h.cart.Items()
	respondJSON(w, http.StatusOK, CartResponseDTO{Items: items, Count: len(items)})
}

// ClearCart deletes every cart document. The cart list empties once the
// subscription observes the change.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.ClearCart(ctx); err != nil {
		log.Printf("request %s: clear cart failed: %v", getRequestID(r.Context()), err)
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Feed streams the cart list over a websocket: the current list first, then
// every replacement. Slow clients only receive the newest list.
func (h *CartHandler) Feed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for items := range h.cart.Watch(ctx) {
		conn.SetWriteDeadline(time.Now().Add(h.timeout))
		if err := conn.WriteJSON(CartResponseDTO{Items: items, Count: len(items)}); err != nil {
			log.Printf("websocket write failed: %v", err)
			return
		}
	}
}
