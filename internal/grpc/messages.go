package grpc

import (
	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const timeFormat string = "2006-01-02T15:04:05Z07:00"

// CartRef names a cart by guest token or by customer id. Exactly one must be set.
type CartRef struct {
	Token      string `json:"token,omitempty"`
	CustomerID int64  `json:"customer_id,omitempty"`
}

func (r CartRef) key() (service.CartKey, error) {
	if r.Token != "" && r.CustomerID != 0 {
		return nil, status.Error(codes.InvalidArgument, "set either token or customer_id, not both")
	}
	if r.CustomerID != 0 {
		return service.ByCustomer(r.CustomerID), nil
	}
	return service.ByToken(r.Token), nil
}

type CartRequest struct {
	Cart CartRef `json:"cart"`
}

type AddItemRequest struct {
	Cart     CartRef `json:"cart"`
	BookID   int64   `json:"book_id"`
	Quantity int32   `json:"quantity"`
}

type UpdateItemQuantityRequest struct {
	Cart     CartRef `json:"cart"`
	ItemID   int64   `json:"item_id"`
	Quantity int32   `json:"quantity"`
}

type RemoveItemRequest struct {
	Cart   CartRef `json:"cart"`
	ItemID int64   `json:"item_id"`
}

type GetInvoiceRequest struct {
	InvoiceID int64 `json:"invoice_id"`
}

type CartItem struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type Cart struct {
	ID         int64      `json:"id"`
	Token      string     `json:"token,omitempty"`
	CustomerID int64      `json:"customer_id,omitempty"`
	Items      []CartItem `json:"items"`
	Subtotal   string     `json:"subtotal"`
	Tax        string     `json:"tax"`
	Total      string     `json:"total"`
	UpdatedAt  string     `json:"updated_at"`
}

type CartResponse struct {
	Cart *Cart `json:"cart"`
}

type InvoiceLine struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type Invoice struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	CartID     int64         `json:"cart_id"`
	Token      string        `json:"token,omitempty"`
	CustomerID int64         `json:"customer_id,omitempty"`
	IssuedAt   string        `json:"issued_at"`
	Subtotal   string        `json:"subtotal"`
	Tax        string        `json:"tax"`
	Total      string        `json:"total"`
	Lines      []InvoiceLine `json:"lines"`
}

type InvoiceResponse struct {
	Invoice *Invoice `json:"invoice"`
}

func convertCart(c *domain.Cart) *Cart {
	cart := &Cart{
		ID:        c.ID,
		Token:     c.Token,
		Items:     make([]CartItem, len(c.Items)),
		Subtotal:  c.Subtotal.String(),
		Tax:       c.Tax().String(),
		Total:     c.Total.String(),
		UpdatedAt: c.UpdatedAt.Format(timeFormat),
	}
	if c.CustomerID != nil {
		cart.CustomerID = *c.CustomerID
	}
	for i, item := range c.Items {
		cart.Items[i] = CartItem{
			ID:        item.ID,
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  int32(item.Quantity),
			UnitPrice: item.UnitPrice.String(),
			LineTotal: item.LineTotal().String(),
		}
	}
	return cart
}

func convertInvoice(inv *domain.Invoice) *Invoice {
	out := &Invoice{
		ID:       inv.ID,
		Number:   inv.Number,
		CartID:   inv.CartID,
		Token:    inv.Token,
		IssuedAt: inv.IssuedAt.Format(timeFormat),
		Subtotal: inv.Subtotal.String(),
		Tax:      inv.Tax.String(),
		Total:    inv.Total.String(),
		Lines:    make([]InvoiceLine, len(inv.Details)),
	}
	if inv.CustomerID != nil {
		out.CustomerID = *inv.CustomerID
	}
	for i, d := range inv.Details {
		out.Lines[i] = InvoiceLine{
			BookID:    d.BookID,
			Title:     d.Title,
			Quantity:  int32(d.Quantity),
			UnitPrice: d.UnitPrice.String(),
			LineTotal: d.LineTotal.String(),
		}
	}
	return out
}
