package domain

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is applied on top of the cart subtotal.
var TaxRate = decimal.RequireFromString("0.15")

var taxMultiplier = decimal.NewFromInt(1).Add(TaxRate)

// MaxItemQuantity caps a single line so it fits the INTEGER quantity column.
const MaxItemQuantity = math.MaxInt32

type CartItem struct {
	ID        int64           `json:"id" db:"id"`
	CartID    int64           `json:"cart_id" db:"cart_id"`
	BookID    int64           `json:"book_id" db:"book_id"`
	Title     string          `json:"title" db:"title"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is keyed either by an opaque guest token or by the owning customer, never both.
// Subtotal and Total are derived from Items and recomputed after every mutation.
type Cart struct {
	ID         int64           `json:"id" db:"id"`
	Token      string          `json:"token,omitempty" db:"token"`
	CustomerID *int64          `json:"customer_id,omitempty" db:"customer_id"`
	Items      []CartItem      `json:"items" db:"-"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	Total      decimal.Decimal `json:"total" db:"total"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

func NewTokenCart(token string, now time.Time) *Cart {
	return &Cart{
		Token:     token,
		Items:     []CartItem{},
		Subtotal:  decimal.Zero,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewCustomerCart(customerID int64, now time.Time) *Cart {
	return &Cart{
		CustomerID: &customerID,
		Items:      []CartItem{},
		Subtotal:   decimal.Zero,
		Total:      decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddItem adds quantity copies of book. An existing line for the same book is
// incremented and its price snapshot refreshed; otherwise a new line is appended.
// The returned pointer is only valid until the next mutation of c.
func (c *Cart) AddItem(book Book, quantity int) (*CartItem, error) {
	if quantity <= 0 || quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	if i := c.indexOfBook(book.ID); i >= 0 {
		if c.Items[i].Quantity > MaxItemQuantity-quantity {
			return nil, ErrInvalidQuantity
		}
		c.Items[i].Quantity += quantity
		c.Items[i].UnitPrice = book.Price
		c.Items[i].Title = book.Title
		c.Recalculate()
		return &c.Items[i], nil
	}

	c.Items = append(c.Items, CartItem{
		CartID:    c.ID,
		BookID:    book.ID,
		Title:     book.Title,
		Quantity:  quantity,
		UnitPrice: book.Price,
	})
	c.Recalculate()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets the quantity of an item. A quantity of zero or less
// removes the line, which is then returned as removed.
func (c *Cart) UpdateItemQuantity(itemID int64, quantity int) (updated *CartItem, removed *CartItem, err error) {
	i := c.indexOfItem(itemID)
	if i < 0 {
		return nil, nil, ErrItemNotFound
	}
	if quantity > MaxItemQuantity {
		return nil, nil, ErrInvalidQuantity
	}

	if quantity <= 0 {
		gone := c.Items[i]
		c.Items = slices.Delete(c.Items, i, i+1)
		c.Recalculate()
		return nil, &gone, nil
	}

	c.Items[i].Quantity = quantity
	c.Recalculate()
	return &c.Items[i], nil, nil
}

func (c *Cart) RemoveItem(itemID int64) (*CartItem, error) {
	_, removed, err := c.UpdateItemQuantity(itemID, 0)
	return removed, err
}

// Clear empties the cart and returns the removed lines so the caller can delete them.
func (c *Cart) Clear() []CartItem {
	removed := c.Items
	c.Items = []CartItem{}
	c.Recalculate()
	return removed
}

func (c *Cart) Recalculate() {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	c.Subtotal = subtotal
	c.Total = subtotal.Mul(taxMultiplier)
}

func (c *Cart) Tax() decimal.Decimal {
	return c.Total.Sub(c.Subtotal)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a deep copy that later mutations of c do not affect.
func (c *Cart) Snapshot() Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	if c.CustomerID != nil {
		id := *c.CustomerID
		cp.CustomerID = &id
	}
	return cp
}

func (c *Cart) indexOfBook(bookID int64) int {
	return slices.IndexFunc(c.Items, func(item CartItem) bool { return item.BookID == bookID })
}

func (c *Cart) indexOfItem(itemID int64) int {
	return slices.IndexFunc(c.Items, func(item CartItem) bool { return item.ID == itemID })
}
