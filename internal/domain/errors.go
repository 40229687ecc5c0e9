package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidToken        = errors.New("invalid cart token")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 2147483647")
	ErrCartNotFound        = errors.New("cart not found")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrItemNotFound        = errors.New("item not found in cart")
	ErrBookNotFound        = errors.New("book not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("concurrent update detected, retry the operation")
)

// InsufficientStockError names the book that could not cover the requested quantity.
type InsufficientStockError struct {
	BookID    int64
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (book %d): requested %d, available %d",
		e.Title, e.BookID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError hides a storage failure from callers. The wrapped error is
// kept for logs only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence failure: " + e.Op
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsClientError reports whether err was caused by caller input rather than by the server.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidToken,
		ErrInvalidQuantity,
		ErrCartNotFound,
		ErrEmptyCart,
		ErrItemNotFound,
		ErrBookNotFound,
		ErrCustomerNotFound,
		ErrInvoiceNotFound,
		ErrInsufficientStock,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
