package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLStore implements Store on Postgres or SQLite. Queries are written with '?'
// placeholders and rebound for the connected driver.
type SQLStore struct {
	db             *sqlx.DB
	driver         string
	migrationsPath string
}

func newSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, driver: db.DriverName()}
}

func (s *SQLStore) repos() *sqlRepos {
	return &sqlRepos{q: s.db, driver: s.driver}
}

func (s *SQLStore) Books() BookRepository { return s.repos().Books() }
func (s *SQLStore) Carts() CartRepository { return s.repos().Carts() }
func (s *SQLStore) CartItems() CartItemRepository { return s.repos().CartItems() }
func (s *SQLStore) Invoices() InvoiceRepository { return s.repos().Invoices() }
func (s *SQLStore) InvoiceDetails() InvoiceDetailRepository { return s.repos().InvoiceDetails() }
func (s *SQLStore) Customers() CustomerRepository { return s.repos().Customers() }
func (s *SQLStore) Outbox() OutboxRepository { return s.repos().Outbox() }

func (s *SQLStore) RunInTx(ctx context.Context, fn func(tx Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlRepos{q: tx, driver: s.driver, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapErr("commit transaction", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// mapErr turns driver errors into domain errors. Serialization failures and
// deadlocks are reported as a concurrency conflict the caller may retry.
func mapErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return domain.ErrConcurrencyConflict
		}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_BUSY {
		return domain.ErrConcurrencyConflict
	}
	return domain.NewPersistenceError(op, err)
}

type sqlRepos struct {
	q      sqlx.ExtContext
	driver string
	inTx   bool
}

func (r *sqlRepos) Books() BookRepository { return &sqlBooks{r} }
func (r *sqlRepos) Carts() CartRepository { return &sqlCarts{r} }
func (r *sqlRepos) CartItems() CartItemRepository { return &sqlItems{r} }
func (r *sqlRepos) Invoices() InvoiceRepository { return &sqlInvoices{r} }
func (r *sqlRepos) InvoiceDetails() InvoiceDetailRepository { return &sqlDetails{r} }
func (r *sqlRepos) Customers() CustomerRepository { return &sqlCustomers{r} }
func (r *sqlRepos) Outbox() OutboxRepository { return &sqlOutbox{r} }

// forUpdate locks the selected rows until the surrounding transaction ends.
// SQLite has no row locks; its single writer connection serializes instead.
func (r *sqlRepos) forUpdate() string {
	if r.inTx && r.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (r *sqlRepos) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, r.q, dest, r.q.Rebind(query), args...)
}

func (r *sqlRepos) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, r.q, dest, r.q.Rebind(query), args...)
}

func (r *sqlRepos) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Books

type sqlBooks struct{ *sqlRepos }

func (r *sqlBooks) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	err := r.get(ctx, &book,
		`SELECT id, title, price, available_quantity, version FROM books WHERE id = ?`+r.forUpdate(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, mapErr("find book", err)
	}
	return &book, nil
}

func (r *sqlBooks) Save(ctx context.Context, book *domain.Book) error {
	n, err := r.exec(ctx,
		`UPDATE books SET available_quantity = ?, version = version + 1 WHERE id = ? AND version = ?`,
		book.AvailableQuantity, book.ID, book.Version)
	if err != nil {
		return mapErr("save book", err)
	}
	if n == 0 {
		return domain.ErrConcurrencyConflict
	}
	book.Version++
	return nil
}

// Carts

const cartColumns = `id, COALESCE(token, '') AS token, customer_id, subtotal, total, created_at, updated_at`

type sqlCarts struct{ *sqlRepos }

func (r *sqlCarts) FindByToken(ctx context.Context, token string) (*domain.Cart, error) {
	return r.find(ctx, `SELECT `+cartColumns+` FROM carts WHERE token = ?`+r.forUpdate(), token)
}

func (r *sqlCarts) FindByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error) {
	return r.find(ctx, `SELECT `+cartColumns+` FROM carts WHERE customer_id = ?`+r.forUpdate(), customerID)
}

func (r *sqlCarts) find(ctx context.Context, query string, arg any) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.get(ctx, &cart, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, mapErr("find cart", err)
	}

	cart.Items = []domain.CartItem{}
	err = r.selectAll(ctx, &cart.Items,
		`SELECT id, cart_id, book_id, title, quantity, unit_price FROM cart_items WHERE cart_id = ? ORDER BY id`,
		cart.ID)
	if err != nil {
		return nil, mapErr("load cart items", err)
	}
	return &cart, nil
}

func (r *sqlCarts) Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	var id int64
	err := r.get(ctx, &id,
		`INSERT INTO carts (token, customer_id, subtotal, total, created_at, updated_at)
		 VALUES (NULLIF(?, ''), ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		cart.Token, cart.CustomerID, cart.Subtotal, cart.Total, cart.CreatedAt, cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// lost the race to a concurrent create for the same key
		if cart.CustomerID != nil {
			return r.FindByCustomer(ctx, *cart.CustomerID)
		}
		return r.FindByToken(ctx, cart.Token)
	}
	if err != nil {
		return nil, mapErr("create cart", err)
	}
	cart.ID = id
	return cart, nil
}

func (r *sqlCarts) Save(ctx context.Context, cart *domain.Cart) error {
	n, err := r.exec(ctx,
		`UPDATE carts SET subtotal = ?, total = ?, updated_at = ? WHERE id = ?`,
		cart.Subtotal, cart.Total, cart.UpdatedAt, cart.ID)
	if err != nil {
		return mapErr("save cart", err)
	}
	if n == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

// Cart items

const itemColumns = `id, cart_id, book_id, title, quantity, unit_price`

type sqlItems struct{ *sqlRepos }

func (r *sqlItems) FindByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	return r.find(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE id = ?`, id)
}

func (r *sqlItems) FindByCartAndBook(ctx context.Context, cartID, bookID int64) (*domain.CartItem, error) {
	return r.find(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE cart_id = ? AND book_id = ?`, cartID, bookID)
}

func (r *sqlItems) find(ctx context.Context, query string, args ...any) (*domain.CartItem, error) {
	var item domain.CartItem
	err := r.get(ctx, &item, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, mapErr("find cart item", err)
	}
	return &item, nil
}

func (r *sqlItems) Save(ctx context.Context, item *domain.CartItem) error {
	if item.ID == 0 {
		err := r.get(ctx, &item.ID,
			`INSERT INTO cart_items (cart_id, book_id, title, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?)
			 RETURNING id`,
			item.CartID, item.BookID, item.Title, item.Quantity, item.UnitPrice)
		if err != nil {
			return mapErr("insert cart item", err)
		}
		return nil
	}

	n, err := r.exec(ctx,
		`UPDATE cart_items SET title = ?, quantity = ?, unit_price = ? WHERE id = ?`,
		item.Title, item.Quantity, item.UnitPrice, item.ID)
	if err != nil {
		return mapErr("update cart item", err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *sqlItems) Delete(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	if err != nil {
		return mapErr("delete cart item", err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// Invoices

type sqlInvoices struct{ *sqlRepos }

func (r *sqlInvoices) Save(ctx context.Context, inv *domain.Invoice) error {
	err := r.get(ctx, &inv.ID,
		`INSERT INTO invoices (number, cart_id, token, customer_id, issued_at, subtotal, tax, total)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		 RETURNING id`,
		inv.Number, inv.CartID, inv.Token, inv.CustomerID, inv.IssuedAt, inv.Subtotal, inv.Tax, inv.Total)
	if err != nil {
		return mapErr("insert invoice", err)
	}
	return nil
}

func (r *sqlInvoices) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.get(ctx, &inv,
		`SELECT id, number, cart_id, COALESCE(token, '') AS token, customer_id, issued_at, subtotal, tax, total
		 FROM invoices WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, mapErr("find invoice", err)
	}

	inv.Details = []domain.InvoiceDetail{}
	err = r.selectAll(ctx, &inv.Details,
		`SELECT id, invoice_id, book_id, title, quantity, unit_price, line_total
		 FROM invoice_details WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, mapErr("load invoice details", err)
	}
	return &inv, nil
}

type sqlDetails struct{ *sqlRepos }

func (r *sqlDetails) Save(ctx context.Context, d *domain.InvoiceDetail) error {
	err := r.get(ctx, &d.ID,
		`INSERT INTO invoice_details (invoice_id, book_id, title, quantity, unit_price, line_total)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		d.InvoiceID, d.BookID, d.Title, d.Quantity, d.UnitPrice, d.LineTotal)
	if err != nil {
		return mapErr("insert invoice detail", err)
	}
	return nil
}

// Customers

type sqlCustomers struct{ *sqlRepos }

func (r *sqlCustomers) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.get(ctx, &c, `SELECT id, name, email FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, mapErr("find customer", err)
	}
	return &c, nil
}

// Outbox

type sqlOutbox struct{ *sqlRepos }

func (r *sqlOutbox) Append(ctx context.Context, e *OutboxEvent) error {
	err := r.get(ctx, &e.ID,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		e.AggregateID, e.EventType, string(e.Payload), e.CreatedAt)
	if err != nil {
		return mapErr("append outbox event", err)
	}
	return nil
}

func (r *sqlOutbox) Unprocessed(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	var events []*OutboxEvent
	err := r.selectAll(ctx, &events,
		`SELECT id, aggregate_id, event_type, payload, created_at, processed_at
		 FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, mapErr("fetch outbox events", err)
	}
	return events, nil
}

func (r *sqlOutbox) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, `UPDATE outbox_events SET processed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return mapErr("mark outbox event processed", err)
	}
	return nil
}
