package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/infrastructure/logger"
)

var (
	customer = entities.CustomerInfo{
		Name:    "Sita Sharma",
		Email:   "sita@example.com",
		Phone:   "9800000000",
		Address: "Lalitpur",
	}
	buyer = &auth.Identity{UserID: "user123", Role: "user"}
	admin = &auth.Identity{UserID: "admin1", Role: auth.RoleAdmin}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func catalog(mockProducts *MockProductRepository) {
	mockProducts.On("GetByID", mock.Anything, "prod1").
		Return(&entities.Product{ID: "prod1", Name: "Tea", Price: dec("10"), StockQty: 5, IsActive: true}, nil)
	mockProducts.On("GetByID", mock.Anything, "prod2").
		Return(&entities.Product{ID: "prod2", Name: "Honey", Price: dec("5"), StockQty: 1, IsActive: true}, nil)
	mockProducts.On("GetByID", mock.Anything, "retired").
		Return(&entities.Product{ID: "retired", Name: "Old Mug", Price: dec("3"), StockQty: 9, IsActive: false}, nil)
	mockProducts.On("GetByID", mock.Anything, "ghost").
		Return((*entities.Product)(nil), repositories.ErrProductNotFound)
}

func newOrderUseCase(repo *MockOrderRepository, products *MockProductRepository, publisher EventPublisher) *OrderUseCase {
	return NewOrderUseCase(repo, products, publisher, nil, logger.Discard())
}

func TestOrderUseCase_CreateOrder(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductRepository)
	mockEvents := new(MockEventPublisher)
	catalog(mockProducts)

	useCase := newOrderUseCase(mockRepo, mockProducts, mockEvents)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Order")).
		Return(nil).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*entities.Order)
			assert.Equal(t, entities.StatusPending, order.Status)
			assert.Equal(t, entities.PaymentPending, order.PaymentStatus)
			assert.True(t, order.Total.Equal(dec("25")))
			assert.Equal(t, "user123", order.UserID)
			assert.Len(t, order.Items, 2)
		})

	mockEvents.On("PublishOrderEvent", mock.Anything, EventOrderCreated, mock.AnythingOfType("*entities.Order")).
		Return(nil).
		Run(func(args mock.Arguments) {
			wg.Done()
		})

	order, err := useCase.CreateOrder(ctx, buyer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: "prod1", Quantity: 2},
			{ProductID: "prod2", Quantity: 1, Price: price("5.00")},
		},
		Customer: customer,
		Total:    dec("25"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "Tea", order.Items[0].Name)
	assert.True(t, order.Items[0].UnitPrice.Equal(dec("10")))
	assert.Empty(t, order.TransactionID)

	wg.Wait()

	mockRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)
}

func TestOrderUseCase_CreateOrder_GuestCheckout(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductRepository)
	catalog(mockProducts)

	useCase := newOrderUseCase(mockRepo, mockProducts, nil)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Order")).Return(nil)

	order, err := useCase.CreateOrder(context.Background(), nil, CreateOrderInput{
		Items:    []ItemInput{{ProductID: "prod1", Quantity: 1}},
		Customer: customer,
		Total:    dec("10"),
	})

	require.NoError(t, err)
	assert.True(t, order.IsGuest())
	mockRepo.AssertExpectations(t)
}

func TestOrderUseCase_CreateOrder_EventErrorNotFatal(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductRepository)
	mockEvents := new(MockEventPublisher)
	catalog(mockProducts)

	useCase := newOrderUseCase(mockRepo, mockProducts, mockEvents)

	var wg sync.WaitGroup
	wg.Add(1)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Order")).Return(nil)
	mockEvents.On("PublishOrderEvent", mock.Anything, EventOrderCreated, mock.AnythingOfType("*entities.Order")).
		Return(errors.New("nats connection failed")).
		Run(func(args mock.Arguments) {
			wg.Done()
		})

	order, err := useCase.CreateOrder(context.Background(), buyer, CreateOrderInput{
		Items:    []ItemInput{{ProductID: "prod1", Quantity: 1}},
		Customer: customer,
		Total:    dec("10"),
	})

	assert.NoError(t, err)
	assert.NotNil(t, order)

	wg.Wait()

	mockRepo.AssertExpectations(t)
	mockEvents.AssertExpectations(t)
}

func TestOrderUseCase_CreateOrder_InvalidInput(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductRepository)
	mockEvents := new(MockEventPublisher)
	catalog(mockProducts)

	useCase := newOrderUseCase(mockRepo, mockProducts, mockEvents)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateOrderInput
		wantErr error
		wantMsg string
	}{
		{
			name:    "empty items",
			in:      CreateOrderInput{Customer: customer, Total: dec("10")},
			wantErr: ErrValidation,
			wantMsg: "items list cannot be empty",
		},
		{
			name: "missing customer phone",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 1}},
				Customer: entities.CustomerInfo{Name: "a", Email: "b", Address: "c"},
				Total:    dec("10"),
			},
			wantErr: ErrValidation,
			wantMsg: "customer info",
		},
		{
			name: "non-positive total",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 1}},
				Customer: customer,
				Total:    dec("0"),
			},
			wantErr: ErrValidation,
			wantMsg: "total amount must be positive",
		},
		{
			name: "invalid quantity",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 0}},
				Customer: customer,
				Total:    dec("10"),
			},
			wantErr: ErrValidation,
			wantMsg: "invalid item: item 0 has invalid quantity",
		},
		{
			name: "negative price",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 1, Price: price("-10")}},
				Customer: customer,
				Total:    dec("10"),
			},
			wantErr: ErrValidation,
			wantMsg: "invalid item: item 0 has invalid price",
		},
		{
			name: "price disagrees with catalog",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 1, Price: price("1")}},
				Customer: customer,
				Total:    dec("1"),
			},
			wantErr: ErrValidation,
			wantMsg: "does not match catalog price",
		},
		{
			name: "total does not match items",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod1", Quantity: 2}},
				Customer: customer,
				Total:    dec("15"),
			},
			wantErr: ErrTotalMismatch,
			wantMsg: "expected 20, got 15",
		},
		{
			name: "unknown product",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "ghost", Quantity: 1}},
				Customer: customer,
				Total:    dec("1"),
			},
			wantErr: ErrProductUnavailable,
			wantMsg: "ghost",
		},
		{
			name: "inactive product",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "retired", Quantity: 1}},
				Customer: customer,
				Total:    dec("3"),
			},
			wantErr: ErrProductUnavailable,
			wantMsg: "Old Mug",
		},
		{
			name: "not enough stock",
			in: CreateOrderInput{
				Items:    []ItemInput{{ProductID: "prod2", Quantity: 2}},
				Customer: customer,
				Total:    dec("10"),
			},
			wantErr: ErrInsufficientStock,
			wantMsg: "Honey",
		},
		{
			name: "same product split across lines exceeds stock",
			in: CreateOrderInput{
				Items: []ItemInput{
					{ProductID: "prod2", Quantity: 1},
					{ProductID: "prod1", Quantity: 1},
					{ProductID: "prod2", Quantity: 1},
				},
				Customer: customer,
				Total:    dec("20"),
			},
			wantErr: ErrInsufficientStock,
			wantMsg: "Honey",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := useCase.CreateOrder(ctx, buyer, tt.in)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)

			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			mockEvents.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderUseCase_GetOrder_Access(t *testing.T) {
	owned := &entities.Order{ID: "owned", UserID: "user123", Status: entities.StatusPending}
	guest := &entities.Order{ID: "guest", Status: entities.StatusPending}

	tests := []struct {
		name    string
		caller  *auth.Identity
		order   *entities.Order
		wantErr error
	}{
		{name: "owner", caller: buyer, order: owned},
		{name: "admin", caller: admin, order: owned},
		{name: "guest order anonymous", caller: nil, order: guest},
		{name: "guest order signed in", caller: buyer, order: guest},
		{name: "someone else", caller: &auth.Identity{UserID: "other"}, order: owned, wantErr: ErrForbidden},
		{name: "anonymous", caller: nil, order: owned, wantErr: ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockRepo.On("GetByID", mock.Anything, tt.order.ID).Return(tt.order, nil)

			useCase := newOrderUseCase(mockRepo, new(MockProductRepository), nil)
			order, err := useCase.GetOrder(context.Background(), tt.caller, tt.order.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.order, order)
		})
	}
}

func TestOrderUseCase_GetOrder_NotFound(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	useCase := newOrderUseCase(mockRepo, new(MockProductRepository), nil)

	mockRepo.On("GetByID", mock.Anything, "non-existent").Return((*entities.Order)(nil), repositories.ErrOrderNotFound)

	order, err := useCase.GetOrder(context.Background(), buyer, "non-existent")

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, order)
	assert.Contains(t, err.Error(), "order not found")
	mockRepo.AssertExpectations(t)
}

func TestOrderUseCase_ListOrders(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	useCase := newOrderUseCase(mockRepo, new(MockProductRepository), nil)

	_, err := useCase.ListOrders(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	mine := []*entities.Order{{ID: "b"}, {ID: "a"}}
	mockRepo.On("ListByUser", mock.Anything, "user123").Return(mine, nil)

	orders, err := useCase.ListOrders(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, mine, orders)
}

func TestOrderUseCase_ListUserOrders(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	useCase := newOrderUseCase(mockRepo, new(MockProductRepository), nil)

	theirs := []*entities.Order{{ID: "c", UserID: "user456"}}
	mine := []*entities.Order{{ID: "a", UserID: "user123"}}
	mockRepo.On("ListByUser", mock.Anything, "user456").Return(theirs, nil)
	mockRepo.On("ListByUser", mock.Anything, "user123").Return(mine, nil)

	_, err := useCase.ListUserOrders(context.Background(), nil, "user456")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = useCase.ListUserOrders(context.Background(), buyer, "user456")
	assert.ErrorIs(t, err, ErrForbidden)

	orders, err := useCase.ListUserOrders(context.Background(), buyer, "")
	require.NoError(t, err)
	assert.Equal(t, mine, orders)

	orders, err = useCase.ListUserOrders(context.Background(), admin, "user456")
	require.NoError(t, err)
	assert.Equal(t, theirs, orders)
}

func TestOrderUseCase_UpdateOrderStatus(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockEvents := new(MockEventPublisher)
	useCase := newOrderUseCase(mockRepo, new(MockProductRepository), mockEvents)

	existing := &entities.Order{ID: "test-order", UserID: "user123", Status: entities.StatusPaid, PaymentStatus: entities.PaymentPaid}
	shipped := existing.Clone()
	shipped.Status = entities.StatusShipped

	mockRepo.On("GetByID", mock.Anything, "test-order").Return(existing, nil)
	mockRepo.On("UpdateStatus", mock.Anything, "test-order", entities.StatusShipped).Return(shipped, nil)

	order, err := useCase.UpdateOrderStatus(context.Background(), admin, "test-order", "shipped")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusShipped, order.Status)
	mockRepo.AssertExpectations(t)
	mockEvents.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUseCase_UpdateOrderStatus_Rejected(t *testing.T) {
	unpaid := &entities.Order{ID: "unpaid", Status: entities.StatusPending, PaymentStatus: entities.PaymentPending}

	tests := []struct {
		name    string
		caller  *auth.Identity
		orderID string
		status  string
		wantErr error
	}{
		{name: "anonymous", caller: nil, orderID: "unpaid", status: "shipped", wantErr: ErrUnauthenticated},
		{name: "not admin", caller: buyer, orderID: "unpaid", status: "shipped", wantErr: ErrForbidden},
		{name: "invalid status", caller: admin, orderID: "unpaid", status: "INVALID_STATUS", wantErr: ErrInvalidStatus},
		{name: "missing id", caller: admin, orderID: "", status: "shipped", wantErr: ErrInvalidOrderID},
		{name: "paid before payment", caller: admin, orderID: "unpaid", status: "paid", wantErr: ErrStatusRequiresPaid},
		{name: "unknown order", caller: admin, orderID: "non-existent", status: "shipped", wantErr: ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockRepo.On("GetByID", mock.Anything, "unpaid").Return(unpaid, nil).Maybe()
			mockRepo.On("GetByID", mock.Anything, "non-existent").Return((*entities.Order)(nil), repositories.ErrOrderNotFound).Maybe()

			useCase := newOrderUseCase(mockRepo, new(MockProductRepository), nil)
			_, err := useCase.UpdateOrderStatus(context.Background(), tt.caller, tt.orderID, tt.status)

			assert.ErrorIs(t, err, tt.wantErr)
			mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
