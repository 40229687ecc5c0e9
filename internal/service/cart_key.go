package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/repository"
)

// CartKey selects the cart an operation works on: a guest cart by its token, or
// the cart owned by a registered customer.
type CartKey interface {
	// String identifies the cart in logs and cache entries.
	String() string
	validate() error
	find(ctx context.Context, tx repository.Repositories) (*domain.Cart, error)
	create(ctx context.Context, tx repository.Repositories, now time.Time) (*domain.Cart, error)
}

type tokenKey string

// ByToken keys a guest cart. The token is opaque and matched verbatim.
func ByToken(token string) CartKey {
	return tokenKey(token)
}

func (k tokenKey) String() string { return "token:" + string(k) }

func (k tokenKey) validate() error {
	if strings.TrimSpace(string(k)) == "" {
		return domain.ErrInvalidToken
	}
	return nil
}

func (k tokenKey) find(ctx context.Context, tx repository.Repositories) (*domain.Cart, error) {
	return tx.Carts().FindByToken(ctx, string(k))
}

func (k tokenKey) create(ctx context.Context, tx repository.Repositories, now time.Time) (*domain.Cart, error) {
	return tx.Carts().Create(ctx, domain.NewTokenCart(string(k), now))
}

type customerKey int64

func ByCustomer(customerID int64) CartKey {
	return customerKey(customerID)
}

func (k customerKey) String() string { return "customer:" + strconv.FormatInt(int64(k), 10) }

func (k customerKey) validate() error {
	if k <= 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (k customerKey) find(ctx context.Context, tx repository.Repositories) (*domain.Cart, error) {
	return tx.Carts().FindByCustomer(ctx, int64(k))
}

func (k customerKey) create(ctx context.Context, tx repository.Repositories, now time.Time) (*domain.Cart, error) {
	if _, err := tx.Customers().FindByID(ctx, int64(k)); err != nil {
		return nil, err
	}
	return tx.Carts().Create(ctx, domain.NewCustomerCart(int64(k), now))
}

// getOrCreate returns the cart for key, creating an empty one on first use.
func getOrCreate(ctx context.Context, tx repository.Repositories, key CartKey, now time.Time) (*domain.Cart, error) {
	cart, err := key.find(ctx, tx)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, err
	}
	return key.create(ctx, tx, now)
}
