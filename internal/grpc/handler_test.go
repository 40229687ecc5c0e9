package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/inventory"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/fjod/bookcart/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, h CartServiceServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(h)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func startSeededServer(t *testing.T) (*Client, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.SeedDemo()
	h := NewCartServiceHandler(
		service.NewCartService(store, nil, nil),
		service.NewCheckoutService(store, nil, inventory.NewLedger(), nil),
	)
	return startServer(t, h), store
}

func TestCheckoutScenario(t *testing.T) {
	client, store := startSeededServer(t)
	ctx := context.Background()
	guest := CartRef{Token: "grpc-guest"}

	resp, err := client.AddItem(ctx, &AddItemRequest{Cart: guest, BookID: 1, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "51", resp.Cart.Subtotal)
	assert.Equal(t, "58.65", resp.Cart.Total)

	resp, err = client.AddItem(ctx, &AddItemRequest{Cart: guest, BookID: 1, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, int32(5), resp.Cart.Items[0].Quantity)
	assert.Equal(t, "127.5", resp.Cart.Subtotal)
	assert.Equal(t, "146.625", resp.Cart.Total)

	inv, err := client.Checkout(ctx, &CartRequest{Cart: guest})
	require.NoError(t, err)
	assert.Equal(t, "146.625", inv.Invoice.Total)
	assert.Equal(t, "grpc-guest", inv.Invoice.Token)
	require.Len(t, inv.Invoice.Lines, 1)
	assert.Regexp(t, `^F-\d{14}$`, inv.Invoice.Number)

	got, err := client.GetInvoice(ctx, &GetInvoiceRequest{InvoiceID: inv.Invoice.ID})
	require.NoError(t, err)
	assert.Equal(t, inv.Invoice.Number, got.Invoice.Number)

	cart, err := client.GetCart(ctx, &CartRequest{Cart: guest})
	require.NoError(t, err)
	assert.Empty(t, cart.Cart.Items)

	book, err := store.Books().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, book.AvailableQuantity)
}

func TestCustomerCartOperations(t *testing.T) {
	client, _ := startSeededServer(t)
	ctx := context.Background()
	customer := CartRef{CustomerID: 2}

	created, err := client.GetOrCreateCart(ctx, &CartRequest{Cart: customer})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.Cart.CustomerID)

	resp, err := client.AddItem(ctx, &AddItemRequest{Cart: customer, BookID: 2, Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Cart.Items[0].ID

	resp, err = client.UpdateItemQuantity(ctx, &UpdateItemQuantityRequest{Cart: customer, ItemID: itemID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "126", resp.Cart.Subtotal)

	resp, err = client.RemoveItem(ctx, &RemoveItemRequest{Cart: customer, ItemID: itemID})
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)

	_, err = client.AddItem(ctx, &AddItemRequest{Cart: customer, BookID: 3, Quantity: 1})
	require.NoError(t, err)
	resp, err = client.ClearCart(ctx, &CartRequest{Cart: customer})
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)
	assert.Equal(t, created.Cart.ID, resp.Cart.ID)
}

func TestErrorCodes(t *testing.T) {
	client, _ := startSeededServer(t)
	ctx := context.Background()

	_, err := client.AddItem(ctx, &AddItemRequest{Cart: CartRef{Token: "short"}, BookID: 5, Quantity: 1})
	require.NoError(t, err)
	_, err = client.GetOrCreateCart(ctx, &CartRequest{Cart: CartRef{Token: "empty"}})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"blank token", func() error {
			_, err := client.GetCart(ctx, &CartRequest{Cart: CartRef{Token: "   "}})
			return err
		}, codes.InvalidArgument},
		{"token and customer", func() error {
			_, err := client.GetCart(ctx, &CartRequest{Cart: CartRef{Token: "a", CustomerID: 1}})
			return err
		}, codes.InvalidArgument},
		{"zero quantity", func() error {
			_, err := client.AddItem(ctx, &AddItemRequest{Cart: CartRef{Token: "a"}, BookID: 1, Quantity: 0})
			return err
		}, codes.InvalidArgument},
		{"missing book id", func() error {
			_, err := client.AddItem(ctx, &AddItemRequest{Cart: CartRef{Token: "a"}, Quantity: 1})
			return err
		}, codes.InvalidArgument},
		{"unknown book", func() error {
			_, err := client.AddItem(ctx, &AddItemRequest{Cart: CartRef{Token: "a"}, BookID: 42, Quantity: 1})
			return err
		}, codes.NotFound},
		{"unknown customer", func() error {
			_, err := client.GetCart(ctx, &CartRequest{Cart: CartRef{CustomerID: 77}})
			return err
		}, codes.NotFound},
		{"unknown item", func() error {
			_, err := client.RemoveItem(ctx, &RemoveItemRequest{Cart: CartRef{Token: "a"}, ItemID: 999})
			return err
		}, codes.NotFound},
		{"unknown invoice", func() error {
			_, err := client.GetInvoice(ctx, &GetInvoiceRequest{InvoiceID: 999})
			return err
		}, codes.NotFound},
		{"empty cart", func() error {
			_, err := client.Checkout(ctx, &CartRequest{Cart: CartRef{Token: "empty"}})
			return err
		}, codes.FailedPrecondition},
		{"insufficient stock", func() error {
			_, err := client.Checkout(ctx, &CartRequest{Cart: CartRef{Token: "short"}})
			return err
		}, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}
}

// failingCheckout returns err from every call.
type failingCheckout struct {
	err error
}

func (f failingCheckout) Checkout(context.Context, service.CartKey) (*domain.Invoice, error) {
	return nil, f.err
}

func (f failingCheckout) GetInvoice(context.Context, int64) (*domain.Invoice, error) {
	return nil, f.err
}

func TestCheckout_ConflictAndInternal(t *testing.T) {
	ctx := context.Background()

	client := startServer(t, NewCartServiceHandler(nil, failingCheckout{err: domain.ErrConcurrencyConflict}))
	_, err := client.Checkout(ctx, &CartRequest{Cart: CartRef{Token: "t"}})
	assert.Equal(t, codes.Aborted, status.Code(err))

	cause := domain.NewPersistenceError("save invoice", errors.New("disk full"))
	client = startServer(t, NewCartServiceHandler(nil, failingCheckout{err: cause}))
	_, err = client.Checkout(ctx, &CartRequest{Cart: CartRef{Token: "t"}})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}

// panickingCheckout blows up inside the handler.
type panickingCheckout struct{ failingCheckout }

func (panickingCheckout) Checkout(context.Context, service.CartKey) (*domain.Invoice, error) {
	panic("boom")
}

func TestRecoverInterceptor(t *testing.T) {
	client := startServer(t, NewCartServiceHandler(nil, panickingCheckout{}))

	_, err := client.Checkout(context.Background(), &CartRequest{Cart: CartRef{Token: "t"}})

	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestCodec_RoundTrip(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&AddItemRequest{Cart: CartRef{Token: "x"}, BookID: 1, Quantity: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart":{"token":"x"},"book_id":1,"quantity":2}`, string(data))
	assert.Equal(t, "json", c.Name())
}
