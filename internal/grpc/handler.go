package grpc

import (
	"context"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CartService interface {
	GetOrCreateCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
	GetCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
	AddItem(ctx context.Context, key service.CartKey, bookID int64, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, key service.CartKey, itemID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, key service.CartKey, itemID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, key service.CartKey) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
}

type CartServiceHandler struct {
	carts    CartService
	checkout CheckoutService
}

func NewCartServiceHandler(carts CartService, checkout CheckoutService) *CartServiceHandler {
	return &CartServiceHandler{
		carts:    carts,
		checkout: checkout,
	}
}

var _ CartServiceServer = (*CartServiceHandler)(nil)

func (h *CartServiceHandler) cartCall(ctx context.Context, method string, ref CartRef, call func(service.CartKey) (*domain.Cart, error)) (*CartResponse, error) {
	key, err := ref.key()
	if err != nil {
		return nil, err
	}
	cart, err := call(key)
	if err != nil {
		return nil, toStatus(ctx, method, err)
	}
	return &CartResponse{Cart: convertCart(cart)}, nil
}

func (h *CartServiceHandler) GetOrCreateCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	return h.cartCall(ctx, "GetOrCreateCart", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.GetOrCreateCart(ctx, key)
	})
}

func (h *CartServiceHandler) GetCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	return h.cartCall(ctx, "GetCart", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.GetCart(ctx, key)
	})
}

func (h *CartServiceHandler) AddItem(ctx context.Context, req *AddItemRequest) (*CartResponse, error) {
	if req.BookID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "book_id must be greater than 0")
	}
	return h.cartCall(ctx, "AddItem", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.AddItem(ctx, key, req.BookID, int(req.Quantity))
	})
}

// UpdateItemQuantity removes the line when quantity is zero or less.
func (h *CartServiceHandler) UpdateItemQuantity(ctx context.Context, req *UpdateItemQuantityRequest) (*CartResponse, error) {
	return h.cartCall(ctx, "UpdateItemQuantity", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.UpdateItemQuantity(ctx, key, req.ItemID, int(req.Quantity))
	})
}

func (h *CartServiceHandler) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*CartResponse, error) {
	return h.cartCall(ctx, "RemoveItem", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.RemoveItem(ctx, key, req.ItemID)
	})
}

func (h *CartServiceHandler) ClearCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	return h.cartCall(ctx, "ClearCart", req.Cart, func(key service.CartKey) (*domain.Cart, error) {
		return h.carts.ClearCart(ctx, key)
	})
}

func (h *CartServiceHandler) Checkout(ctx context.Context, req *CartRequest) (*InvoiceResponse, error) {
	key, err := req.Cart.key()
	if err != nil {
		return nil, err
	}
	invoice, err := h.checkout.Checkout(ctx, key)
	if err != nil {
		return nil, toStatus(ctx, "Checkout", err)
	}
	return &InvoiceResponse{Invoice: convertInvoice(invoice)}, nil
}

func (h *CartServiceHandler) GetInvoice(ctx context.Context, req *GetInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := h.checkout.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, toStatus(ctx, "GetInvoice", err)
	}
	return &InvoiceResponse{Invoice: convertInvoice(invoice)}, nil
}
