package repository

import (
	"github.com/fjod/bookcart/internal/domain"
	"github.com/shopspring/decimal"
)

// DemoBooks is the catalog loaded by the seed migration.
func DemoBooks() []domain.Book {
	return []domain.Book{
		{ID: 1, Title: "The Go Programming Language", Price: decimal.RequireFromString("25.50"), AvailableQuantity: 10},
		{ID: 2, Title: "Designing Data-Intensive Applications", Price: decimal.RequireFromString("42.00"), AvailableQuantity: 5},
		{ID: 3, Title: "Clean Architecture", Price: decimal.RequireFromString("30.00"), AvailableQuantity: 8},
		{ID: 4, Title: "The Pragmatic Programmer", Price: decimal.RequireFromString("35.75"), AvailableQuantity: 3},
		{ID: 5, Title: "Concurrency in Go", Price: decimal.RequireFromString("28.90"), AvailableQuantity: 0},
	}
}

func DemoCustomers() []domain.Customer {
	return []domain.Customer{
		{ID: 1, Name: "Ana Torres", Email: "ana@example.com"},
		{ID: 2, Name: "Luis Perez", Email: "luis@example.com"},
	}
}

// SeedDemo loads the same catalog the SQL seed migration inserts.
func (s *MemoryStore) SeedDemo() {
	s.SeedBooks(DemoBooks()...)
	s.SeedCustomers(DemoCustomers()...)
}
