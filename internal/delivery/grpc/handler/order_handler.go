package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/auth"
	"storefront/internal/delivery/grpc/orderrpc"
	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/usecase"
)

type OrderHandler struct {
	orderUseCase *usecase.OrderUseCase
}

func NewOrderHandler(orderUseCase *usecase.OrderUseCase) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
	}
}

func (h *OrderHandler) GetOrder(ctx context.Context, req *orderrpc.GetOrderRequest) (*orderrpc.GetOrderResponse, error) {
	order, err := h.orderUseCase.GetOrder(ctx, auth.FromContext(ctx), req.OrderID)
	if err != nil {
		return nil, h.mapErrorToStatus(err)
	}

	return &orderrpc.GetOrderResponse{Order: h.domainToRPC(order)}, nil
}

func (h *OrderHandler) ListOrders(ctx context.Context, req *orderrpc.ListOrdersRequest) (*orderrpc.ListOrdersResponse, error) {
	orders, err := h.orderUseCase.ListUserOrders(ctx, auth.FromContext(ctx), req.UserID)
	if err != nil {
		return nil, h.mapErrorToStatus(err)
	}

	resp := &orderrpc.ListOrdersResponse{Orders: make([]*orderrpc.Order, len(orders))}
	for i, order := range orders {
		resp.Orders[i] = h.domainToRPC(order)
	}
	return resp, nil
}

func (h *OrderHandler) UpdateOrderStatus(ctx context.Context, req *orderrpc.UpdateOrderStatusRequest) (*orderrpc.UpdateOrderStatusResponse, error) {
	order, err := h.orderUseCase.UpdateOrderStatus(ctx, auth.FromContext(ctx), req.OrderID, req.Status)
	if err != nil {
		return nil, h.mapErrorToStatus(err)
	}

	return &orderrpc.UpdateOrderStatusResponse{Order: h.domainToRPC(order)}, nil
}

func (h *OrderHandler) domainToRPC(order *entities.Order) *orderrpc.Order {
	items := make([]*orderrpc.Item, len(order.Items))
	for i, item := range order.Items {
		items[i] = &orderrpc.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  int32(item.Quantity),
			UnitPrice: item.UnitPrice.String(),
		}
	}

	out := &orderrpc.Order{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Items:         items,
		Total:         order.Total.String(),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TransactionID: order.TransactionID,
		GatewayRef:    order.GatewayRef,
		Backordered:   order.Backordered,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if order.PaidAt != nil {
		out.PaidAt = order.PaidAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *OrderHandler) mapErrorToStatus(err error) error {
	switch {
	case errors.Is(err, usecase.ErrStatusRequiresPaid):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, usecase.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repositories.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, repositories.ErrOrderAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, usecase.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, usecase.ErrForbidden):
		return status.Error(codes.PermissionDenied, "access denied")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
