package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/auth"
	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
)

const (
	EventOrderCreated  = "order.created"
	EventOrderPaid     = "order.paid"
	EventPaymentFailed = "order.payment_failed"
)

const publishTimeout = 10 * time.Second

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, subject string, order *entities.Order) error
	Close()
}

type ItemInput struct {
	ProductID string
	Quantity  int
	// Price is optional; when given it must match the catalog.
	Price *decimal.Decimal
}

type CreateOrderInput struct {
	Items    []ItemInput
	Customer entities.CustomerInfo
	Total    decimal.Decimal
}

type OrderUseCase struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	publisher   EventPublisher
	metrics     *metrics.Registry
	logger      *logger.Logger
	now         func() time.Time
}

func NewOrderUseCase(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	publisher EventPublisher,
	metrics *metrics.Registry,
	logger *logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateOrder prices the cart from the catalog and stores a pending order.
// caller may be nil for guest checkout.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, caller *auth.Identity, in CreateOrderInput) (*entities.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !in.Customer.Complete() {
		return nil, ErrIncompleteCustomer
	}
	if !in.Total.IsPositive() {
		return nil, ErrInvalidTotal
	}

	items := make([]entities.Item, len(in.Items))
	products := make(map[string]*entities.Product, len(in.Items))
	for i, line := range in.Items {
		if line.ProductID == "" {
			return nil, fmt.Errorf("%w: item %d has no product", ErrInvalidItem, i)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has invalid quantity", ErrInvalidItem, i)
		}
		if line.Price != nil && line.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has invalid price", ErrInvalidItem, i)
		}

		product, err := uc.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: product %s not found", ErrProductUnavailable, line.ProductID)
			}
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %q", ErrProductUnavailable, product.Name)
		}
		if line.Price != nil && !line.Price.Equal(product.Price) {
			return nil, fmt.Errorf("%w: item %d price %s does not match catalog price %s",
				ErrInvalidItem, i, line.Price, product.Price)
		}

		products[product.ID] = product
		items[i] = entities.Item{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		}
	}

	now := uc.now()
	order := &entities.Order{
		ID:            uuid.New().String(),
		Items:         items,
		Customer:      in.Customer,
		Total:         in.Total,
		Status:        entities.StatusPending,
		PaymentStatus: entities.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if caller != nil {
		order.UserID = caller.UserID
	}

	if sum := order.ItemsTotal(); !sum.Equal(in.Total) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrTotalMismatch, sum, in.Total)
	}

	// Lines for the same product draw on one stock count.
	productIDs, wanted := order.Quantities()
	for _, productID := range productIDs {
		product := products[productID]
		if !product.Available(wanted[productID]) {
			return nil, fmt.Errorf("%w: %q has %d left", ErrInsufficientStock, product.Name, product.StockQty)
		}
	}

	if err := uc.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	uc.logger.Info("Order created",
		"order_id", order.ID,
		"guest", order.IsGuest(),
		"total", order.Total.String())
	uc.metrics.OrderCreated()
	publishAsync(uc.publisher, uc.logger, EventOrderCreated, order)

	return order, nil
}

// GetOrder returns an order to its owner or an admin. Guest orders are
// readable by anyone holding the id.
func (uc *OrderUseCase) GetOrder(ctx context.Context, caller *auth.Identity, orderID string) (*entities.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.IsGuest() || caller.IsAdmin() {
		return order, nil
	}
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if !order.OwnedBy(caller.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (uc *OrderUseCase) ListOrders(ctx context.Context, caller *auth.Identity) ([]*entities.Order, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	orders, err := uc.orderRepo.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListUserOrders lists another user's orders. Only admins may look past
// their own; an empty userID means the caller.
func (uc *OrderUseCase) ListUserOrders(ctx context.Context, caller *auth.Identity, userID string) ([]*entities.Order, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if userID == "" || userID == caller.UserID {
		return uc.ListOrders(ctx, caller)
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	orders, err := uc.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus is the administrative transition. It may move status
// anywhere except to paid while payment has not settled.
func (uc *OrderUseCase) UpdateOrderStatus(ctx context.Context, caller *auth.Identity, orderID, status string) (*entities.Order, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !entities.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order for update: %w", err)
	}

	newStatus := entities.OrderStatus(status)
	if newStatus == entities.StatusPaid && order.PaymentStatus != entities.PaymentPaid {
		return nil, ErrStatusRequiresPaid
	}

	updated, err := uc.orderRepo.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	uc.logger.Info("Order status changed by admin",
		"order_id", orderID,
		"from", order.Status,
		"to", newStatus,
		"admin", caller.UserID)

	return updated, nil
}

// publishAsync fires an event without holding up the request. Publishing is
// best effort; failures are logged only.
func publishAsync(publisher EventPublisher, log *logger.Logger, subject string, order *entities.Order) {
	if publisher == nil {
		return
	}

	snapshot := order.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := publisher.PublishOrderEvent(ctx, subject, snapshot); err != nil {
			log.Warn("Failed to publish order event",
				"subject", subject,
				"order_id", snapshot.ID,
				"error", err)
		}
	}()
}
