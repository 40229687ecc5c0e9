package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls bookcart.v1.CartService over an existing connection using the
// JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrCreateCart(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "GetOrCreateCart", in, opts)
}

func (c *Client) GetCart(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "GetCart", in, opts)
}

func (c *Client) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "AddItem", in, opts)
}

func (c *Client) UpdateItemQuantity(ctx context.Context, in *UpdateItemQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "UpdateItemQuantity", in, opts)
}

func (c *Client) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "RemoveItem", in, opts)
}

func (c *Client) ClearCart(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "ClearCart", in, opts)
}

func (c *Client) Checkout(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*InvoiceResponse, error) {
	return invoke[InvoiceResponse](ctx, c.cc, "Checkout", in, opts)
}

func (c *Client) GetInvoice(ctx context.Context, in *GetInvoiceRequest, opts ...grpc.CallOption) (*InvoiceResponse, error) {
	return invoke[InvoiceResponse](ctx, c.cc, "GetInvoice", in, opts)
}
