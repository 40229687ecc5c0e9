package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceNumberLayout renders yyyyMMddHHmmss. Two checkouts in the same second
// get the same number; invoices are identified by ID, not by Number.
const InvoiceNumberLayout = "20060102150405"

func InvoiceNumber(at time.Time) string {
	return "F-" + at.Format(InvoiceNumberLayout)
}

// Invoice is written once by checkout and never updated.
type Invoice struct {
	ID         int64           `json:"id" db:"id"`
	Number     string          `json:"number" db:"number"`
	CartID     int64           `json:"cart_id" db:"cart_id"`
	Token      string          `json:"token,omitempty" db:"token"`
	CustomerID *int64          `json:"customer_id,omitempty" db:"customer_id"`
	IssuedAt   time.Time       `json:"issued_at" db:"issued_at"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax        decimal.Decimal `json:"tax" db:"tax"`
	Total      decimal.Decimal `json:"total" db:"total"`
	Details    []InvoiceDetail `json:"details" db:"-"`
}

type InvoiceDetail struct {
	ID        int64           `json:"id" db:"id"`
	InvoiceID int64           `json:"invoice_id" db:"invoice_id"`
	BookID    int64           `json:"book_id" db:"book_id"`
	Title     string          `json:"title" db:"title"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
}

// NewInvoice builds an unsaved invoice from a cart snapshot. Details carry the
// snapshot quantities and unit prices, not the current book prices.
func NewInvoice(number string, snapshot Cart, issuedAt time.Time) *Invoice {
	inv := &Invoice{
		Number:     number,
		CartID:     snapshot.ID,
		Token:      snapshot.Token,
		CustomerID: snapshot.CustomerID,
		IssuedAt:   issuedAt,
		Subtotal:   snapshot.Subtotal,
		Tax:        snapshot.Tax(),
		Total:      snapshot.Total,
		Details:    make([]InvoiceDetail, 0, len(snapshot.Items)),
	}
	for _, item := range snapshot.Items {
		inv.Details = append(inv.Details, InvoiceDetail{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}
	return inv
}
