package service

import (
	"context"

	"github.com/fjod/bookcart/internal/domain"
)

func (s *CheckoutService) validateCart(ctx context.Context, run *checkoutRun) error {
	cart, err := run.key.find(ctx, run.tx)
	if err != nil {
		return err
	}
	if cart.IsEmpty() {
		return domain.ErrEmptyCart
	}
	run.cart = cart
	run.snapshot = cart.Snapshot()
	return nil
}
