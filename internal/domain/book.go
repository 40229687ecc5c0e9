package domain

import "github.com/shopspring/decimal"

// Book is owned by the catalog; the cart core only reads it and changes
// AvailableQuantity through the inventory ledger.
type Book struct {
	ID                int64           `json:"id" db:"id"`
	Title             string          `json:"title" db:"title"`
	Price             decimal.Decimal `json:"price" db:"price"`
	AvailableQuantity int             `json:"available_quantity" db:"available_quantity"`
	Version           int64           `json:"-" db:"version"`
}

type Customer struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}
