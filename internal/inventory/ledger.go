package inventory

import (
	"github.com/fjod/bookcart/internal/domain"
)

// Ledger is the only place where a book's available quantity changes.
// It mutates the in-memory book; persisting it is up to the caller's unit of work.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// CheckAvailability reports whether book can cover quantity.
func (l *Ledger) CheckAvailability(book domain.Book, quantity int) bool {
	return book.AvailableQuantity >= quantity
}

// Reserve decrements the available quantity. On failure the book is left untouched.
func (l *Ledger) Reserve(book *domain.Book, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if !l.CheckAvailability(*book, quantity) {
		return insufficient(*book, quantity)
	}
	book.AvailableQuantity -= quantity
	return nil
}

// CheckAll validates every line against the loaded books before anything is reserved.
// It returns the first line that cannot be covered.
func (l *Ledger) CheckAll(items []domain.CartItem, books map[int64]*domain.Book) error {
	for _, item := range items {
		book, ok := books[item.BookID]
		if !ok {
			return domain.ErrBookNotFound
		}
		if !l.CheckAvailability(*book, item.Quantity) {
			return insufficient(*book, item.Quantity)
		}
	}
	return nil
}

func insufficient(book domain.Book, requested int) error {
	return &domain.InsufficientStockError{
		BookID:    book.ID,
		Title:     book.Title,
		Requested: requested,
		Available: book.AvailableQuantity,
	}
}
