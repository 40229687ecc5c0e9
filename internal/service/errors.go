package service

import (
	"errors"

	"github.com/fjod/bookcart/internal/domain"
)

var IllegalTransitionError = errors.New("illegal transition of checkout status")

// Reason is a short, stable label for err used in metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrCartNotFound):
		return "cart_not_found"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "customer_not_found"
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return "invoice_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return Reason(err)
}
