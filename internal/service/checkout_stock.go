package service

import (
	"cmp"
	"context"
	"slices"

	"github.com/fjod/bookcart/internal/domain"
)

// checkStock loads every book of the cart, locking it for the rest of the
// transaction, and verifies all lines before anything is reserved.
func (s *CheckoutService) checkStock(ctx context.Context, run *checkoutRun) error {
	if err := run.transition(domain.CheckoutStatusStockChecking); err != nil {
		return err
	}

	// lock books in id order so concurrent checkouts cannot deadlock
	ids := make([]int64, 0, len(run.snapshot.Items))
	for _, item := range run.snapshot.Items {
		ids = append(ids, item.BookID)
	}
	slices.SortFunc(ids, cmp.Compare[int64])

	run.books = make(map[int64]*domain.Book, len(ids))
	for _, id := range slices.Compact(ids) {
		book, err := run.tx.Books().FindByID(ctx, id)
		if err != nil {
			return err
		}
		run.books[id] = book
	}

	return s.ledger.CheckAll(run.snapshot.Items, run.books)
}
