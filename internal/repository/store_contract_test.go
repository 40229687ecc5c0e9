package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every store is expected to carry the demo catalog: books 1-5 and customers 1-2.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("CartsByToken", func(t *testing.T) { testCartsByToken(t, newStore(t)) })
	t.Run("CartsByCustomer", func(t *testing.T) { testCartsByCustomer(t, newStore(t)) })
	t.Run("CartItems", func(t *testing.T) { testCartItems(t, newStore(t)) })
	t.Run("RunInTxRollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("RunInTxCommit", func(t *testing.T) { testCommit(t, newStore(t)) })
	t.Run("Invoices", func(t *testing.T) { testInvoices(t, newStore(t)) })
	t.Run("Customers", func(t *testing.T) { testCustomers(t, newStore(t)) })
	t.Run("Outbox", func(t *testing.T) { testOutbox(t, newStore(t)) })
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testBooks(t *testing.T, s Store) {
	ctx := context.Background()

	book, err := s.Books().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", book.Title)
	assert.True(t, money("25.50").Equal(book.Price))
	assert.Equal(t, 10, book.AvailableQuantity)

	_, err = s.Books().FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	stale := *book
	book.AvailableQuantity = 7
	require.NoError(t, s.Books().Save(ctx, book))
	assert.Equal(t, stale.Version+1, book.Version)

	stale.AvailableQuantity = 1
	assert.ErrorIs(t, s.Books().Save(ctx, &stale), domain.ErrConcurrencyConflict)

	reloaded, err := s.Books().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.AvailableQuantity)
}

func testCartsByToken(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now()

	_, err := s.Carts().FindByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	created, err := s.Carts().Create(ctx, domain.NewTokenCart("tok-1", now))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	again, err := s.Carts().Create(ctx, domain.NewTokenCart("tok-1", now))
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	found, err := s.Carts().FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "tok-1", found.Token)
	assert.Nil(t, found.CustomerID)
	assert.Empty(t, found.Items)
	assert.True(t, found.Subtotal.IsZero())

	found.Subtotal = money("10.00")
	found.Total = money("11.50")
	require.NoError(t, s.Carts().Save(ctx, found))

	found, err = s.Carts().FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, money("11.50").Equal(found.Total))

	assert.ErrorIs(t, s.Carts().Save(ctx, &domain.Cart{ID: 12345}), domain.ErrCartNotFound)
}

func testCartsByCustomer(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Carts().FindByCustomer(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	created, err := s.Carts().Create(ctx, domain.NewCustomerCart(1, time.Now()))
	require.NoError(t, err)

	again, err := s.Carts().Create(ctx, domain.NewCustomerCart(1, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	found, err := s.Carts().FindByCustomer(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, found.CustomerID)
	assert.Equal(t, int64(1), *found.CustomerID)
	assert.Empty(t, found.Token)

	_, err = s.Carts().FindByCustomer(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func testCartItems(t *testing.T, s Store) {
	ctx := context.Background()
	cart, err := s.Carts().Create(ctx, domain.NewTokenCart("tok-items", time.Now()))
	require.NoError(t, err)

	first := &domain.CartItem{CartID: cart.ID, BookID: 2, Title: "DDIA", Quantity: 1, UnitPrice: money("42.00")}
	second := &domain.CartItem{CartID: cart.ID, BookID: 1, Title: "Go", Quantity: 2, UnitPrice: money("25.50")}
	require.NoError(t, s.CartItems().Save(ctx, first))
	require.NoError(t, s.CartItems().Save(ctx, second))
	require.NotZero(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	byBook, err := s.CartItems().FindByCartAndBook(ctx, cart.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byBook.ID)

	_, err = s.CartItems().FindByCartAndBook(ctx, cart.ID, 3)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	second.Quantity = 5
	require.NoError(t, s.CartItems().Save(ctx, second))

	loaded, err := s.CartItems().FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Quantity)
	assert.True(t, money("25.50").Equal(loaded.UnitPrice))

	withItems, err := s.Carts().FindByToken(ctx, "tok-items")
	require.NoError(t, err)
	require.Len(t, withItems.Items, 2)
	assert.Equal(t, first.ID, withItems.Items[0].ID)
	assert.Equal(t, second.ID, withItems.Items[1].ID)

	require.NoError(t, s.CartItems().Delete(ctx, first.ID))
	_, err = s.CartItems().FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.ErrorIs(t, s.CartItems().Delete(ctx, first.ID), domain.ErrItemNotFound)
}

func testRollback(t *testing.T, s Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(tx Repositories) error {
		cart, err := tx.Carts().Create(ctx, domain.NewTokenCart("tok-rollback", time.Now()))
		if err != nil {
			return err
		}
		if err := tx.CartItems().Save(ctx, &domain.CartItem{
			CartID: cart.ID, BookID: 1, Title: "Go", Quantity: 1, UnitPrice: money("25.50"),
		}); err != nil {
			return err
		}
		book, err := tx.Books().FindByID(ctx, 1)
		if err != nil {
			return err
		}
		book.AvailableQuantity = 0
		if err := tx.Books().Save(ctx, book); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Carts().FindByToken(ctx, "tok-rollback")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	book, err := s.Books().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, book.AvailableQuantity)
}

func testCommit(t *testing.T, s Store) {
	ctx := context.Background()

	err := s.RunInTx(ctx, func(tx Repositories) error {
		cart, err := tx.Carts().Create(ctx, domain.NewTokenCart("tok-commit", time.Now()))
		if err != nil {
			return err
		}
		return tx.CartItems().Save(ctx, &domain.CartItem{
			CartID: cart.ID, BookID: 3, Title: "Clean Architecture", Quantity: 2, UnitPrice: money("30.00"),
		})
	})
	require.NoError(t, err)

	cart, err := s.Carts().FindByToken(ctx, "tok-commit")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func testInvoices(t *testing.T, s Store) {
	ctx := context.Background()
	cart, err := s.Carts().Create(ctx, domain.NewCustomerCart(2, time.Now()))
	require.NoError(t, err)
	_, err = cart.AddItem(domain.Book{ID: 1, Title: "Go", Price: money("25.50")}, 5)
	require.NoError(t, err)

	issued := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	inv := domain.NewInvoice(domain.InvoiceNumber(issued), cart.Snapshot(), issued)

	err = s.RunInTx(ctx, func(tx Repositories) error {
		if err := tx.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		for i := range inv.Details {
			inv.Details[i].InvoiceID = inv.ID
			if err := tx.InvoiceDetails().Save(ctx, &inv.Details[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.NotZero(t, inv.ID)

	found, err := s.Invoices().FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "F-20250102030405", found.Number)
	assert.Equal(t, cart.ID, found.CartID)
	require.NotNil(t, found.CustomerID)
	assert.Equal(t, int64(2), *found.CustomerID)
	assert.Empty(t, found.Token)
	assert.True(t, money("127.50").Equal(found.Subtotal))
	assert.True(t, money("19.125").Equal(found.Tax))
	assert.True(t, money("146.625").Equal(found.Total))
	require.Len(t, found.Details, 1)
	assert.Equal(t, 5, found.Details[0].Quantity)
	assert.True(t, money("127.50").Equal(found.Details[0].LineTotal))

	_, err = s.Invoices().FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func testCustomers(t *testing.T, s Store) {
	ctx := context.Background()

	c, err := s.Customers().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", c.Name)

	_, err = s.Customers().FindByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func testOutbox(t *testing.T, s Store) {
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		require.NoError(t, s.Outbox().Append(ctx, &OutboxEvent{
			AggregateID: id,
			EventType:   "invoice.created",
			Payload:     []byte(`{"invoice_id":` + id + `}`),
			CreatedAt:   time.Now(),
		}))
	}

	events, err := s.Outbox().Unprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].AggregateID)
	assert.JSONEq(t, `{"invoice_id":1}`, string(events[0].Payload))

	require.NoError(t, s.Outbox().MarkProcessed(ctx, events[0].ID))

	events, err = s.Outbox().Unprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].AggregateID)

	limited, err := s.Outbox().Unprocessed(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, limited)
}
