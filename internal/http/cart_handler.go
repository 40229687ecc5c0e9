package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CartService interface {
	GetOrCreateCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
	GetCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
	AddItem(ctx context.Context, key service.CartKey, bookID int64, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, key service.CartKey, itemID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, key service.CartKey, itemID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, key service.CartKey) (*domain.Cart, error)
}

// keyFunc resolves which cart a request addresses. It writes the error
// response itself and returns ok=false when the request names no valid cart.
type keyFunc func(w http.ResponseWriter, r *http.Request) (service.CartKey, bool)

type CartHandler struct {
	carts   CartService
	key     keyFunc
	timeout time.Duration
}

func NewGuestCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, key: guestKey, timeout: timeout}
}

func NewCustomerCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, key: customerKey, timeout: timeout}
}

func guestKey(w http.ResponseWriter, r *http.Request) (service.CartKey, bool) {
	return service.ByToken(r.URL.Query().Get("token")), true
}

func customerKey(w http.ResponseWriter, r *http.Request) (service.CartKey, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customer_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be an integer")
		return nil, false
	}
	return service.ByCustomer(id), true
}

// POST /cart
// Guest callers without a token get a freshly minted one.
func (h *CartHandler) GetOrCreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var key service.CartKey
	if chi.URLParam(r, "customer_id") == "" && r.URL.Query().Get("token") == "" {
		key = service.ByToken(uuid.NewString())
	} else {
		var ok bool
		if key, ok = h.key(w, r); !ok {
			return
		}
	}

	cart, err := h.carts.GetOrCreateCart(ctx, key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(ctx, key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// POST /cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.BookID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book_id must be positive")
		return
	}

	cart, err := h.carts.AddItem(ctx, key, req.BookID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartDTO(cart))
}

// PUT /cart/items/{item_id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, key, itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// DELETE /cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, key, itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.ClearCart(ctx, key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return 0, false
	}
	return itemID, true
}
