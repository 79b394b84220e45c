package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
)

type OrderRepositoryMemory struct {
	mu     sync.RWMutex
	orders map[string]*entities.Order
	// transaction id -> order id
	byTransaction map[string]string
}

func NewOrderRepositoryMemory() *OrderRepositoryMemory {
	return &OrderRepositoryMemory{
		orders:        make(map[string]*entities.Order),
		byTransaction: make(map[string]string),
	}
}

func (r *OrderRepositoryMemory) Create(ctx context.Context, order *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return repositories.ErrOrderAlreadyExists
	}

	r.orders[order.ID] = order.Clone()
	if order.TransactionID != "" {
		r.byTransaction[order.TransactionID] = order.ID
	}
	return nil
}

func (r *OrderRepositoryMemory) GetByID(ctx context.Context, orderID string) (*entities.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[orderID]
	if !exists {
		return nil, repositories.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepositoryMemory) GetByTransactionID(ctx context.Context, transactionID string) (*entities.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, exists := r.byTransaction[transactionID]
	if !exists {
		return nil, repositories.ErrOrderNotFound
	}
	return r.orders[orderID].Clone(), nil
}

func (r *OrderRepositoryMemory) ListByUser(ctx context.Context, userID string) ([]*entities.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			result = append(result, order.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *OrderRepositoryMemory) UpdateStatus(ctx context.Context, orderID string, status entities.OrderStatus) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return nil, repositories.ErrOrderNotFound
	}

	order.Status = status
	order.UpdatedAt = time.Now()
	return order.Clone(), nil
}

func (r *OrderRepositoryMemory) AssignTransaction(ctx context.Context, orderID, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repositories.ErrOrderNotFound
	}
	if order.PaymentStatus != entities.PaymentPending {
		return repositories.ErrPaymentNotPending
	}

	if order.TransactionID != "" {
		delete(r.byTransaction, order.TransactionID)
	}
	order.TransactionID = transactionID
	order.VerificationAttempts = 0
	order.LastVerificationError = ""
	order.GatewayRef = ""
	order.UpdatedAt = time.Now()
	r.byTransaction[transactionID] = orderID
	return nil
}

// guard resolves the order for a payment transition. Callers hold r.mu.
func (r *OrderRepositoryMemory) guard(orderID, transactionID string) (*entities.Order, error) {
	order, exists := r.orders[orderID]
	if !exists {
		return nil, repositories.ErrOrderNotFound
	}
	if order.TransactionID == "" || order.TransactionID != transactionID {
		return nil, repositories.ErrTransactionMismatch
	}
	if order.PaymentStatus != entities.PaymentPending {
		return nil, repositories.ErrPaymentNotPending
	}
	return order, nil
}

func (r *OrderRepositoryMemory) MarkPaid(ctx context.Context, orderID, transactionID, gatewayRef string, at time.Time) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.guard(orderID, transactionID)
	if err != nil {
		return nil, err
	}

	paidAt := at
	order.PaymentStatus = entities.PaymentPaid
	order.Status = entities.StatusPaid
	order.PaidAt = &paidAt
	order.UpdatedAt = at
	if gatewayRef != "" {
		order.GatewayRef = gatewayRef
	}
	return order.Clone(), nil
}

func (r *OrderRepositoryMemory) MarkPaymentFailed(ctx context.Context, orderID, transactionID string) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.guard(orderID, transactionID)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = entities.PaymentFailed
	order.UpdatedAt = time.Now()
	return order.Clone(), nil
}

func (r *OrderRepositoryMemory) RecordVerificationFailure(ctx context.Context, orderID, transactionID, gatewayRef, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.guard(orderID, transactionID)
	if err != nil {
		return err
	}

	order.VerificationAttempts++
	order.LastVerificationError = reason
	if gatewayRef != "" {
		order.GatewayRef = gatewayRef
	}
	order.UpdatedAt = time.Now()
	return nil
}

func (r *OrderRepositoryMemory) MarkStockApplied(ctx context.Context, orderID string, backordered []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repositories.ErrOrderNotFound
	}

	order.StockApplied = true
	order.Backordered = append([]string(nil), backordered...)
	order.UpdatedAt = time.Now()
	return nil
}

func (r *OrderRepositoryMemory) ListNeedingReconciliation(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entities.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.Order
	for _, order := range r.orders {
		if !order.UpdatedAt.Before(olderThan) {
			continue
		}
		awaitingVerification := order.PaymentStatus == entities.PaymentPending &&
			order.VerificationAttempts > 0 &&
			(maxAttempts <= 0 || order.VerificationAttempts < maxAttempts)
		unapplied := order.PaymentStatus == entities.PaymentPaid && !order.StockApplied
		if awaitingVerification || unapplied {
			result = append(result, order.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
