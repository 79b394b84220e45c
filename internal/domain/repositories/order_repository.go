package repositories

import (
	"context"
	"time"

	"storefront/internal/domain/entities"
)

type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order) error
	GetByID(ctx context.Context, orderID string) (*entities.Order, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*entities.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status entities.OrderStatus) (*entities.Order, error)

	// AssignTransaction stores a fresh transaction id while payment is still
	// pending. Returns ErrPaymentNotPending otherwise.
	AssignTransaction(ctx context.Context, orderID, transactionID string) error

	// MarkPaid is the compare-and-swap at the heart of finalization: it moves
	// payment pending -> paid (and status to paid) only when transactionID is
	// the stored one. The loser gets ErrTransactionMismatch or
	// ErrPaymentNotPending.
	MarkPaid(ctx context.Context, orderID, transactionID, gatewayRef string, at time.Time) (*entities.Order, error)

	// MarkPaymentFailed moves payment pending -> failed under the same guard.
	MarkPaymentFailed(ctx context.Context, orderID, transactionID string) (*entities.Order, error)

	RecordVerificationFailure(ctx context.Context, orderID, transactionID, gatewayRef, reason string) error
	MarkStockApplied(ctx context.Context, orderID string, backordered []string) error

	// ListNeedingReconciliation returns orders whose payment is pending with
	// at least one but fewer than maxAttempts failed verifications (no cap
	// when maxAttempts is 0), or paid without stock applied, last touched
	// before olderThan. Oldest first.
	ListNeedingReconciliation(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entities.Order, error)
}

var (
	ErrOrderNotFound       = &RepositoryError{"order not found"}
	ErrOrderAlreadyExists  = &RepositoryError{"order already exists"}
	ErrTransactionMismatch = &RepositoryError{"transaction id does not match order"}
	ErrPaymentNotPending   = &RepositoryError{"order payment is no longer pending"}
)

type RepositoryError struct {
	message string
}

func (e *RepositoryError) Error() string {
	return e.message
}
