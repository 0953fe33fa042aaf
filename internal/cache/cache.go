package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// CartCache keeps the last observed cart list per cart collection.
type CartCache interface {
	Get(ctx context.Context, collection string) ([]domain.CartItem, error)
	Set(ctx context.Context, collection string, items []domain.CartItem) error
	Delete(ctx context.Context, collection string) error
}

var ErrCacheMiss = errors.New("cache miss")
