package http

import (
	"github.com/fjod/bookcart/internal/domain"
	"github.com/shopspring/decimal"
)

type AddItemRequestDTO struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ID        int64           `json:"id"`
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartDTO struct {
	ID         int64           `json:"id"`
	Token      string          `json:"token,omitempty"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Items      []CartItemDTO   `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
}

func toCartDTO(c *domain.Cart) CartDTO {
	dto := CartDTO{
		ID:         c.ID,
		Token:      c.Token,
		CustomerID: c.CustomerID,
		Items:      make([]CartItemDTO, 0, len(c.Items)),
		Subtotal:   c.Subtotal,
		Tax:        c.Tax(),
		Total:      c.Total,
	}
	for _, item := range c.Items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:        item.ID,
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}
	return dto
}
