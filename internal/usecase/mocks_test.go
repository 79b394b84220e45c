package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront/internal/domain/entities"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) order(args mock.Arguments) (*entities.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entities.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*entities.Order, error) {
	return m.order(m.Called(ctx, orderID))
}

func (m *MockOrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*entities.Order, error) {
	return m.order(m.Called(ctx, transactionID))
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID string, status entities.OrderStatus) (*entities.Order, error) {
	return m.order(m.Called(ctx, orderID, status))
}

func (m *MockOrderRepository) AssignTransaction(ctx context.Context, orderID, transactionID string) error {
	args := m.Called(ctx, orderID, transactionID)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, orderID, transactionID, gatewayRef string, at time.Time) (*entities.Order, error) {
	return m.order(m.Called(ctx, orderID, transactionID, gatewayRef, at))
}

func (m *MockOrderRepository) MarkPaymentFailed(ctx context.Context, orderID, transactionID string) (*entities.Order, error) {
	return m.order(m.Called(ctx, orderID, transactionID))
}

func (m *MockOrderRepository) RecordVerificationFailure(ctx context.Context, orderID, transactionID, gatewayRef, reason string) error {
	args := m.Called(ctx, orderID, transactionID, gatewayRef, reason)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkStockApplied(ctx context.Context, orderID string, backordered []string) error {
	args := m.Called(ctx, orderID, backordered)
	return args.Error(0)
}

func (m *MockOrderRepository) ListNeedingReconciliation(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entities.Order, error) {
	args := m.Called(ctx, olderThan, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Order), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, productID string) (*entities.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, productID string, quantity int, orderID string) (bool, error) {
	args := m.Called(ctx, productID, quantity, orderID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishOrderEvent(ctx context.Context, subject string, order *entities.Order) error {
	args := m.Called(ctx, subject, order)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() {
	m.Called()
}
