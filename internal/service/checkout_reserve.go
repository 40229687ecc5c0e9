package service

import (
	"context"

	"github.com/fjod/bookcart/internal/domain"
)

func (s *CheckoutService) reserveStock(ctx context.Context, run *checkoutRun) error {
	if err := run.transition(domain.CheckoutStatusReserving); err != nil {
		return err
	}

	for _, item := range run.snapshot.Items {
		book := run.books[item.BookID]
		if err := s.ledger.Reserve(book, item.Quantity); err != nil {
			return err
		}
		if err := run.tx.Books().Save(ctx, book); err != nil {
			return err
		}
	}
	return nil
}
