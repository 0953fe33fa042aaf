package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
)

const (
	Topic   = "checkout-outbox"
	GroupID = "storefront-cart"
)

// CartClearer empties the cart collection.
type CartClearer interface {
	ClearCart(ctx context.Context) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// checkoutEvent is the part of a checkout-completed message the poller needs.
type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	Status     string `json:"status"`
}

// Poller clears the cart whenever a checkout completes.
type Poller struct {
	cart   CartClearer
	reader messageReader
}

func NewPoller(cart CartClearer, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{cart: cart, reader: reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

func (p *Poller) getMessageAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	event, err := parseEvent(m.Value)
	if err != nil {
		log.Printf("error parsing message at offset %d: %v", m.Offset, err)
		return
	}
	if event.Status != "" && event.Status != "completed" {
		return
	}

	if err := p.cart.ClearCart(ctx); err != nil {
		log.Printf("failed to clear cart after checkout %s: %v", event.CheckoutID, err)
	}
}

func parseEvent(data []byte) (checkoutEvent, error) {
	var event checkoutEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, err
	}
	if event.CheckoutID == "" {
		return event, fmt.Errorf("missing checkout_id")
	}
	return event, nil
}
