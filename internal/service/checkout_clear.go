package service

import (
	"context"

	"github.com/fjod/bookcart/internal/domain"
)

func (s *CheckoutService) clearCart(ctx context.Context, run *checkoutRun) error {
	if err := run.transition(domain.CheckoutStatusClearingCart); err != nil {
		return err
	}

	for _, item := range run.cart.Clear() {
		if err := run.tx.CartItems().Delete(ctx, item.ID); err != nil {
			return err
		}
	}
	run.cart.UpdatedAt = run.now
	return run.tx.Carts().Save(ctx, run.cart)
}
