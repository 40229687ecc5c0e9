package cache

import (
	"context"
	"errors"

	"github.com/fjod/bookcart/internal/domain"
)

// CartCache keeps read copies of carts. key identifies the cart owner, for
// example "token:abc" or "customer:42".
type CartCache interface {
	Get(ctx context.Context, key string) (*domain.Cart, error)
	Set(ctx context.Context, key string, cart *domain.Cart) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is used when no cache is configured; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, *domain.Cart) error { return nil }
func (Noop) Delete(context.Context, string) error { return nil }
