package repository

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fjod/bookcart/internal/domain"
)

type memSeq struct {
	book, cart, item, invoice, detail, outbox int64
}

type memState struct {
	books     map[int64]domain.Book
	customers map[int64]domain.Customer
	carts     map[int64]domain.Cart
	items     map[int64]domain.CartItem
	invoices  map[int64]domain.Invoice
	details   map[int64]domain.InvoiceDetail
	outbox    map[int64]OutboxEvent
	seq       memSeq
}

func (st *memState) clone() *memState {
	return &memState{
		books:     maps.Clone(st.books),
		customers: maps.Clone(st.customers),
		carts:     maps.Clone(st.carts),
		items:     maps.Clone(st.items),
		invoices:  maps.Clone(st.invoices),
		details:   maps.Clone(st.details),
		outbox:    maps.Clone(st.outbox),
		seq:       st.seq,
	}
}

// MemoryStore implements Store in memory. Transactions are serialized by a single
// mutex and rolled back by restoring a snapshot taken when they start.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			books:     make(map[int64]domain.Book),
			customers: make(map[int64]domain.Customer),
			carts:     make(map[int64]domain.Cart),
			items:     make(map[int64]domain.CartItem),
			invoices:  make(map[int64]domain.Invoice),
			details:   make(map[int64]domain.InvoiceDetail),
			outbox:    make(map[int64]OutboxEvent),
		},
		now: time.Now,
	}
}

// SeedBooks stores books as given. A zero ID gets the next free one.
func (s *MemoryStore) SeedBooks(books ...domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range books {
		if b.ID == 0 {
			s.state.seq.book++
			b.ID = s.state.seq.book
		}
		s.state.seq.book = max(s.state.seq.book, b.ID)
		s.state.books[b.ID] = b
	}
}

func (s *MemoryStore) SeedCustomers(customers ...domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range customers {
		s.state.customers[c.ID] = c
	}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memRepos{s: s, inTx: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Books() BookRepository { return &memBooks{memRepos{s: s}} }
func (s *MemoryStore) Carts() CartRepository { return &memCarts{memRepos{s: s}} }
func (s *MemoryStore) CartItems() CartItemRepository { return &memItems{memRepos{s: s}} }
func (s *MemoryStore) Invoices() InvoiceRepository { return &memInvoices{memRepos{s: s}} }
func (s *MemoryStore) InvoiceDetails() InvoiceDetailRepository { return &memDetails{memRepos{s: s}} }
func (s *MemoryStore) Customers() CustomerRepository { return &memCustomers{memRepos{s: s}} }
func (s *MemoryStore) Outbox() OutboxRepository { return &memOutbox{memRepos{s: s}} }

// memRepos serves every repository. Outside a transaction each call takes the
// store lock itself; inside one the lock is already held by RunInTx.
type memRepos struct {
	s    *MemoryStore
	inTx bool
}

func (r *memRepos) Books() BookRepository { return &memBooks{*r} }
func (r *memRepos) Carts() CartRepository { return &memCarts{*r} }
func (r *memRepos) CartItems() CartItemRepository { return &memItems{*r} }
func (r *memRepos) Invoices() InvoiceRepository { return &memInvoices{*r} }
func (r *memRepos) InvoiceDetails() InvoiceDetailRepository { return &memDetails{*r} }
func (r *memRepos) Customers() CustomerRepository { return &memCustomers{*r} }
func (r *memRepos) Outbox() OutboxRepository { return &memOutbox{*r} }

func (r *memRepos) do(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.inTx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	return fn(r.s.state)
}

// Books

type memBooks struct{ memRepos }

func (r *memBooks) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	err := r.do(ctx, func(st *memState) error {
		b, ok := st.books[id]
		if !ok {
			return domain.ErrBookNotFound
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *memBooks) Save(ctx context.Context, book *domain.Book) error {
	return r.do(ctx, func(st *memState) error {
		stored, ok := st.books[book.ID]
		if !ok {
			return domain.ErrBookNotFound
		}
		if stored.Version != book.Version {
			return domain.ErrConcurrencyConflict
		}
		stored.AvailableQuantity = book.AvailableQuantity
		stored.Version++
		st.books[book.ID] = stored
		book.Version = stored.Version
		return nil
	})
}

// Carts

type memCarts struct{ memRepos }

func (r *memCarts) FindByToken(ctx context.Context, token string) (*domain.Cart, error) {
	return r.findCart(ctx, func(c domain.Cart) bool { return c.Token != "" && c.Token == token })
}

func (r *memCarts) FindByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error) {
	return r.findCart(ctx, func(c domain.Cart) bool { return c.CustomerID != nil && *c.CustomerID == customerID })
}

func (r *memCarts) findCart(ctx context.Context, match func(domain.Cart) bool) (*domain.Cart, error) {
	var cart *domain.Cart
	err := r.do(ctx, func(st *memState) error {
		found, ok := lookupCart(st, match)
		if !ok {
			return domain.ErrCartNotFound
		}
		cart = found
		return nil
	})
	return cart, err
}

func lookupCart(st *memState, match func(domain.Cart) bool) (*domain.Cart, bool) {
	for _, c := range st.carts {
		if !match(c) {
			continue
		}
		cart := c
		cart.Items = cartItems(st, c.ID)
		return &cart, true
	}
	return nil, false
}

func cartItems(st *memState, cartID int64) []domain.CartItem {
	items := []domain.CartItem{}
	for _, item := range st.items {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return items
}

func (r *memCarts) Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	var created *domain.Cart
	err := r.do(ctx, func(st *memState) error {
		existing, ok := lookupCart(st, func(c domain.Cart) bool {
			if cart.CustomerID != nil {
				return c.CustomerID != nil && *c.CustomerID == *cart.CustomerID
			}
			return c.Token != "" && c.Token == cart.Token
		})
		if ok {
			created = existing
			return nil
		}

		st.seq.cart++
		stored := cart.Snapshot()
		stored.ID = st.seq.cart
		stored.Items = nil
		st.carts[stored.ID] = stored

		cart.ID = stored.ID
		created = cart
		return nil
	})
	return created, err
}

func (r *memCarts) Save(ctx context.Context, cart *domain.Cart) error {
	return r.do(ctx, func(st *memState) error {
		if _, ok := st.carts[cart.ID]; !ok {
			return domain.ErrCartNotFound
		}
		stored := cart.Snapshot()
		stored.Items = nil
		st.carts[cart.ID] = stored
		return nil
	})
}

// Cart items

type memItems struct{ memRepos }

func (r *memItems) FindByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := r.do(ctx, func(st *memState) error {
		i, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		item = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *memItems) FindByCartAndBook(ctx context.Context, cartID, bookID int64) (*domain.CartItem, error) {
	var item *domain.CartItem
	err := r.do(ctx, func(st *memState) error {
		for _, i := range st.items {
			if i.CartID == cartID && i.BookID == bookID {
				found := i
				item = &found
				return nil
			}
		}
		return domain.ErrItemNotFound
	})
	return item, err
}

func (r *memItems) Save(ctx context.Context, item *domain.CartItem) error {
	return r.do(ctx, func(st *memState) error {
		if item.ID == 0 {
			st.seq.item++
			item.ID = st.seq.item
		} else if _, ok := st.items[item.ID]; !ok {
			return domain.ErrItemNotFound
		}
		st.items[item.ID] = *item
		return nil
	})
}

func (r *memItems) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *memState) error {
		if _, ok := st.items[id]; !ok {
			return domain.ErrItemNotFound
		}
		delete(st.items, id)
		return nil
	})
}

// Invoices

type memInvoices struct{ memRepos }

func (r *memInvoices) Save(ctx context.Context, invoice *domain.Invoice) error {
	return r.do(ctx, func(st *memState) error {
		st.seq.invoice++
		invoice.ID = st.seq.invoice
		stored := *invoice
		stored.Details = nil
		st.invoices[stored.ID] = stored
		return nil
	})
}

func (r *memInvoices) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.do(ctx, func(st *memState) error {
		inv, ok := st.invoices[id]
		if !ok {
			return domain.ErrInvoiceNotFound
		}
		invoice = inv
		invoice.Details = []domain.InvoiceDetail{}
		for _, d := range st.details {
			if d.InvoiceID == id {
				invoice.Details = append(invoice.Details, d)
			}
		}
		slices.SortFunc(invoice.Details, func(a, b domain.InvoiceDetail) int { return cmp.Compare(a.ID, b.ID) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

type memDetails struct{ memRepos }

func (r *memDetails) Save(ctx context.Context, detail *domain.InvoiceDetail) error {
	return r.do(ctx, func(st *memState) error {
		if _, ok := st.invoices[detail.InvoiceID]; !ok {
			return domain.ErrInvoiceNotFound
		}
		st.seq.detail++
		detail.ID = st.seq.detail
		st.details[detail.ID] = *detail
		return nil
	})
}

// Customers

type memCustomers struct{ memRepos }

func (r *memCustomers) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.do(ctx, func(st *memState) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Outbox

type memOutbox struct{ memRepos }

func (r *memOutbox) Append(ctx context.Context, event *OutboxEvent) error {
	return r.do(ctx, func(st *memState) error {
		st.seq.outbox++
		event.ID = st.seq.outbox
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.s.now()
		}
		st.outbox[event.ID] = *event
		return nil
	})
}

func (r *memOutbox) Unprocessed(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	var events []*OutboxEvent
	err := r.do(ctx, func(st *memState) error {
		for _, e := range st.outbox {
			if e.ProcessedAt == nil {
				ev := e
				events = append(events, &ev)
			}
		}
		slices.SortFunc(events, func(a, b *OutboxEvent) int { return cmp.Compare(a.ID, b.ID) })
		if len(events) > limit {
			events = events[:limit]
		}
		return nil
	})
	return events, err
}

func (r *memOutbox) MarkProcessed(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *memState) error {
		e, ok := st.outbox[id]
		if !ok {
			return nil
		}
		now := r.s.now()
		e.ProcessedAt = &now
		st.outbox[id] = e
		return nil
	})
}
