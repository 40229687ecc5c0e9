package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "bookcart.v1.CartService"

// CartServiceServer is the server API for bookcart.v1.CartService.
type CartServiceServer interface {
	GetOrCreateCart(context.Context, *CartRequest) (*CartResponse, error)
	GetCart(context.Context, *CartRequest) (*CartResponse, error)
	AddItem(context.Context, *AddItemRequest) (*CartResponse, error)
	UpdateItemQuantity(context.Context, *UpdateItemQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*CartResponse, error)
	ClearCart(context.Context, *CartRequest) (*CartResponse, error)
	Checkout(context.Context, *CartRequest) (*InvoiceResponse, error)
	GetInvoice(context.Context, *GetInvoiceRequest) (*InvoiceResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrCreateCart", Handler: unaryHandler("GetOrCreateCart", CartServiceServer.GetOrCreateCart)},
		{MethodName: "GetCart", Handler: unaryHandler("GetCart", CartServiceServer.GetCart)},
		{MethodName: "AddItem", Handler: unaryHandler("AddItem", CartServiceServer.AddItem)},
		{MethodName: "UpdateItemQuantity", Handler: unaryHandler("UpdateItemQuantity", CartServiceServer.UpdateItemQuantity)},
		{MethodName: "RemoveItem", Handler: unaryHandler("RemoveItem", CartServiceServer.RemoveItem)},
		{MethodName: "ClearCart", Handler: unaryHandler("ClearCart", CartServiceServer.ClearCart)},
		{MethodName: "Checkout", Handler: unaryHandler("Checkout", CartServiceServer.Checkout)},
		{MethodName: "GetInvoice", Handler: unaryHandler("GetInvoice", CartServiceServer.GetInvoice)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookcart/v1/cart_service",
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(CartServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
