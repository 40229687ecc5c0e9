package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/repository"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

const EventInvoiceCreated = "invoice.created"

type InvoiceCreatedEvent struct {
	InvoiceID  int64              `json:"invoice_id"`
	Number     string             `json:"number"`
	CartID     int64              `json:"cart_id"`
	Token      string             `json:"token,omitempty"`
	CustomerID *int64             `json:"customer_id,omitempty"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Tax        decimal.Decimal    `json:"tax"`
	Total      decimal.Decimal    `json:"total"`
	Items      []InvoiceEventItem `json:"items"`
	IssuedAt   time.Time          `json:"issued_at"`
}

type InvoiceEventItem struct {
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// issueInvoice writes the invoice header, one detail per line of the
// pre-checkout snapshot, and the outbox event announcing it.
func (s *CheckoutService) issueInvoice(ctx context.Context, run *checkoutRun) error {
	if err := run.transition(domain.CheckoutStatusInvoicing); err != nil {
		return err
	}

	inv := domain.NewInvoice(domain.InvoiceNumber(run.now), run.snapshot, run.now)
	if err := run.tx.Invoices().Save(ctx, inv); err != nil {
		return err
	}
	for i := range inv.Details {
		inv.Details[i].InvoiceID = inv.ID
		if err := run.tx.InvoiceDetails().Save(ctx, &inv.Details[i]); err != nil {
			return err
		}
	}

	event, err := newInvoiceCreatedEvent(inv, run.now)
	if err != nil {
		return err
	}
	if err := run.tx.Outbox().Append(ctx, event); err != nil {
		return err
	}

	run.invoice = inv
	return nil
}

func newInvoiceCreatedEvent(inv *domain.Invoice, now time.Time) (*repository.OutboxEvent, error) {
	payload := InvoiceCreatedEvent{
		InvoiceID:  inv.ID,
		Number:     inv.Number,
		CartID:     inv.CartID,
		Token:      inv.Token,
		CustomerID: inv.CustomerID,
		Subtotal:   inv.Subtotal,
		Tax:        inv.Tax,
		Total:      inv.Total,
		Items:      make([]InvoiceEventItem, 0, len(inv.Details)),
		IssuedAt:   inv.IssuedAt,
	}
	for _, d := range inv.Details {
		payload.Items = append(payload.Items, InvoiceEventItem{
			BookID:    d.BookID,
			Title:     d.Title,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			LineTotal: d.LineTotal,
		})
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice event: %w", err)
	}
	return &repository.OutboxEvent{
		AggregateID: strconv.FormatInt(inv.ID, 10),
		EventType:   EventInvoiceCreated,
		Payload:     data,
		CreatedAt:   now,
	}, nil
}
