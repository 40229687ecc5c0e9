package service

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/shopspring/decimal"
)

func newSeededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	s := repository.NewMemoryStore()
	s.SeedBooks(
		domain.Book{ID: 1, Title: "The Go Programming Language", Price: decimal.RequireFromString("25.50"), AvailableQuantity: 10},
		domain.Book{ID: 2, Title: "Designing Data-Intensive Applications", Price: decimal.RequireFromString("42.00"), AvailableQuantity: 5},
		domain.Book{ID: 4, Title: "The Pragmatic Programmer", Price: decimal.RequireFromString("35.75"), AvailableQuantity: 3},
	)
	s.SeedCustomers(domain.Customer{ID: 1, Name: "Ana Torres", Email: "ana@example.com"})
	return s
}

// MockCache implements cache.CartCache in memory and records calls.
type MockCache struct {
	mu      sync.Mutex
	data    map[string]*domain.Cart
	GetErr  error
	Gets    int
	Sets    int
	Deleted []string
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]*domain.Cart)}
}

func (m *MockCache) Get(_ context.Context, key string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *MockCache) Set(_ context.Context, key string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	m.data[key] = cart
	return nil
}

func (m *MockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, key)
	delete(m.data, key)
	return nil
}

// FaultyStore wraps a store and fails chosen repository calls inside transactions.
type FaultyStore struct {
	repository.Store
	DetailSaveErr error
	BookSaveErr   error
	StaleItems    bool // token lookups drop the stored lines
	TxCalls       int
}

func (f *FaultyStore) RunInTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	f.TxCalls++
	return f.Store.RunInTx(ctx, func(tx repository.Repositories) error {
		return fn(&faultyRepos{Repositories: tx, f: f})
	})
}

type faultyRepos struct {
	repository.Repositories
	f *FaultyStore
}

func (r *faultyRepos) InvoiceDetails() repository.InvoiceDetailRepository {
	if r.f.DetailSaveErr != nil {
		return failingDetails{err: r.f.DetailSaveErr}
	}
	return r.Repositories.InvoiceDetails()
}

func (r *faultyRepos) Books() repository.BookRepository {
	if r.f.BookSaveErr != nil {
		return failingBookSave{BookRepository: r.Repositories.Books(), err: r.f.BookSaveErr}
	}
	return r.Repositories.Books()
}

func (r *faultyRepos) Carts() repository.CartRepository {
	if r.f.StaleItems {
		return staleCarts{CartRepository: r.Repositories.Carts()}
	}
	return r.Repositories.Carts()
}

type staleCarts struct{ repository.CartRepository }

func (c staleCarts) FindByToken(ctx context.Context, token string) (*domain.Cart, error) {
	cart, err := c.CartRepository.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	cart.Items = []domain.CartItem{}
	return cart, nil
}

type failingDetails struct{ err error }

func (d failingDetails) Save(context.Context, *domain.InvoiceDetail) error { return d.err }

type failingBookSave struct {
	repository.BookRepository
	err error
}

func (b failingBookSave) Save(context.Context, *domain.Book) error { return b.err }
