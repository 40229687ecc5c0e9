package repository

import (
	"context"
	"time"

	"github.com/fjod/bookcart/internal/domain"
)

// Repositories return domain sentinels (ErrCartNotFound, ErrBookNotFound, ...) for
// missing rows, domain.ErrConcurrencyConflict for lost races and a
// *domain.PersistenceError for anything else the storage layer reports.

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int64      `db:"id"`
	AggregateID string     `db:"aggregate_id"`
	EventType   string     `db:"event_type"`
	Payload     []byte     `db:"payload"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}

type BookRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	// Save persists AvailableQuantity if the stored version still matches book.Version,
	// then bumps book.Version.
	Save(ctx context.Context, book *domain.Book) error
}

type CartRepository interface {
	FindByToken(ctx context.Context, token string) (*domain.Cart, error)
	FindByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error)
	// Create inserts cart. If another request created a cart for the same key
	// first, that cart is returned instead.
	Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)
	// Save updates totals and timestamps only; items go through CartItemRepository.
	Save(ctx context.Context, cart *domain.Cart) error
}

type CartItemRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.CartItem, error)
	FindByCartAndBook(ctx context.Context, cartID, bookID int64) (*domain.CartItem, error)
	// Save inserts when item.ID is zero, updates otherwise.
	Save(ctx context.Context, item *domain.CartItem) error
	Delete(ctx context.Context, id int64) error
}

type InvoiceRepository interface {
	Save(ctx context.Context, invoice *domain.Invoice) error
	FindByID(ctx context.Context, id int64) (*domain.Invoice, error)
}

type InvoiceDetailRepository interface {
	Save(ctx context.Context, detail *domain.InvoiceDetail) error
}

type CustomerRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Customer, error)
}

type OutboxRepository interface {
	Append(ctx context.Context, event *OutboxEvent) error
	Unprocessed(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
}

type Repositories interface {
	Books() BookRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Invoices() InvoiceRepository
	InvoiceDetails() InvoiceDetailRepository
	Customers() CustomerRepository
	Outbox() OutboxRepository
}

// Store is the unit-of-work boundary. Repositories reached through the Store
// itself run outside any transaction; those passed to fn share one transaction
// that commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repositories
	RunInTx(ctx context.Context, fn func(tx Repositories) error) error
	Close() error
}
