package orderrpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "storefront.v1.OrderAdmin"

	GetOrderMethod          = "/" + ServiceName + "/GetOrder"
	ListOrdersMethod        = "/" + ServiceName + "/ListOrders"
	UpdateOrderStatusMethod = "/" + ServiceName + "/UpdateOrderStatus"
)

type OrderAdminServer interface {
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*UpdateOrderStatusResponse, error)
}

func RegisterOrderAdminServer(s grpc.ServiceRegistrar, srv OrderAdminServer) {
	s.RegisterService(&OrderAdminServiceDesc, srv)
}

var OrderAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
		{MethodName: "UpdateOrderStatus", Handler: updateOrderStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/order_admin",
}

func getOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetOrderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).GetOrder(ctx, req.(*GetOrderRequest))
	})
}

func listOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListOrdersMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).ListOrders(ctx, req.(*ListOrdersRequest))
	})
}

func updateOrderStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateOrderStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).UpdateOrderStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UpdateOrderStatusMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).UpdateOrderStatus(ctx, req.(*UpdateOrderStatusRequest))
	})
}

// OrderAdminClient calls the service with the JSON codec selected.
type OrderAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderAdminClient(cc grpc.ClientConnInterface) *OrderAdminClient {
	return &OrderAdminClient{cc: cc}
}

func (c *OrderAdminClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *OrderAdminClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	out := new(GetOrderResponse)
	if err := c.invoke(ctx, GetOrderMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	if err := c.invoke(ctx, ListOrdersMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*UpdateOrderStatusResponse, error) {
	out := new(UpdateOrderStatusResponse)
	if err := c.invoke(ctx, UpdateOrderStatusMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
