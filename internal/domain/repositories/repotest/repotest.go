// Package repotest holds behaviour checks every repository implementation
// must pass.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
)

func newOrder(id, userID string, createdAt time.Time) *entities.Order {
	return &entities.Order{
		ID:     id,
		UserID: userID,
		Items: []entities.Item{
			{ProductID: "tea", Name: "Tea", Quantity: 2, UnitPrice: decimal.RequireFromString("100.25")},
		},
		Customer:      entities.CustomerInfo{Name: "Asha", Email: "asha@example.com", Phone: "9800000000", Address: "Patan"},
		Total:         decimal.RequireFromString("200.5"),
		Status:        entities.StatusPending,
		PaymentStatus: entities.PaymentPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// OrderRepository runs the order store checks against fresh stores from newRepo.
func OrderRepository(t *testing.T, newRepo func(t *testing.T) repositories.OrderRepository) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		order := newOrder("order-1", "user123", base)
		require.NoError(t, repo.Create(ctx, order))

		got, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "user123", got.UserID)
		assert.True(t, got.Total.Equal(order.Total))
		require.Len(t, got.Items, 1)
		assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("100.25")))
		assert.Equal(t, order.Customer, got.Customer)

		assert.ErrorIs(t, repo.Create(ctx, order), repositories.ErrOrderAlreadyExists)

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
	})

	t.Run("list by user newest first", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("old", "user123", base)))
		require.NoError(t, repo.Create(ctx, newOrder("new", "user123", base.Add(time.Minute))))
		require.NoError(t, repo.Create(ctx, newOrder("other", "user456", base)))

		orders, err := repo.ListByUser(ctx, "user123")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "new", orders[0].ID)
		assert.Equal(t, "old", orders[1].ID)
	})

	t.Run("latest transaction wins", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))

		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-1"))
		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-2"))

		got, err := repo.GetByTransactionID(ctx, "tx-2")
		require.NoError(t, err)
		assert.Equal(t, "order-1", got.ID)

		_, err = repo.GetByTransactionID(ctx, "tx-1")
		assert.ErrorIs(t, err, repositories.ErrOrderNotFound)

		_, err = repo.MarkPaid(ctx, "order-1", "tx-1", "", time.Now())
		assert.ErrorIs(t, err, repositories.ErrTransactionMismatch)

		assert.ErrorIs(t, repo.AssignTransaction(ctx, "missing", "tx-3"), repositories.ErrOrderNotFound)
	})

	t.Run("mark paid is a one-way swap", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))
		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-1"))

		paidAt := time.Now().Truncate(time.Millisecond)
		paid, err := repo.MarkPaid(ctx, "order-1", "tx-1", "REF-1", paidAt)
		require.NoError(t, err)
		assert.Equal(t, entities.PaymentPaid, paid.PaymentStatus)
		assert.Equal(t, entities.StatusPaid, paid.Status)
		assert.Equal(t, "REF-1", paid.GatewayRef)
		require.NotNil(t, paid.PaidAt)
		assert.True(t, paid.PaidAt.Equal(paidAt))

		_, err = repo.MarkPaid(ctx, "order-1", "tx-1", "REF-2", time.Now())
		assert.ErrorIs(t, err, repositories.ErrPaymentNotPending)
		_, err = repo.MarkPaymentFailed(ctx, "order-1", "tx-1")
		assert.ErrorIs(t, err, repositories.ErrPaymentNotPending)
		assert.ErrorIs(t, repo.AssignTransaction(ctx, "order-1", "tx-2"), repositories.ErrPaymentNotPending)

		got, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "REF-1", got.GatewayRef)
	})

	t.Run("concurrent mark paid has one winner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))
		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-1"))

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := repo.MarkPaid(ctx, "order-1", "tx-1", fmt.Sprintf("REF-%d", i), time.Now()); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
	})

	t.Run("payment failure is terminal", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))
		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-1"))

		failed, err := repo.MarkPaymentFailed(ctx, "order-1", "tx-1")
		require.NoError(t, err)
		assert.Equal(t, entities.PaymentFailed, failed.PaymentStatus)
		assert.Equal(t, entities.StatusPending, failed.Status)

		_, err = repo.MarkPaid(ctx, "order-1", "tx-1", "", time.Now())
		assert.ErrorIs(t, err, repositories.ErrPaymentNotPending)
	})

	t.Run("status update leaves payment alone", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))

		updated, err := repo.UpdateStatus(ctx, "order-1", entities.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, entities.StatusCancelled, updated.Status)
		assert.Equal(t, entities.PaymentPending, updated.PaymentStatus)

		_, err = repo.UpdateStatus(ctx, "missing", entities.StatusShipped)
		assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
	})

	t.Run("reconciliation candidates", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"untouched", "retrying", "exhausted", "paid-unapplied", "paid-applied"} {
			require.NoError(t, repo.Create(ctx, newOrder(id, "", base)))
			require.NoError(t, repo.AssignTransaction(ctx, id, "tx-"+id))
		}

		require.NoError(t, repo.RecordVerificationFailure(ctx, "retrying", "tx-retrying", "REF-R", "status unavailable"))
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.RecordVerificationFailure(ctx, "exhausted", "tx-exhausted", "", "status unavailable"))
		}
		for _, id := range []string{"paid-unapplied", "paid-applied"} {
			_, err := repo.MarkPaid(ctx, id, "tx-"+id, "", time.Now())
			require.NoError(t, err)
		}
		require.NoError(t, repo.MarkStockApplied(ctx, "paid-applied", []string{"tea"}))

		retrying, err := repo.GetByID(ctx, "retrying")
		require.NoError(t, err)
		assert.Equal(t, 1, retrying.VerificationAttempts)
		assert.Equal(t, "REF-R", retrying.GatewayRef)

		applied, err := repo.GetByID(ctx, "paid-applied")
		require.NoError(t, err)
		assert.True(t, applied.StockApplied)
		assert.Equal(t, []string{"tea"}, applied.Backordered)

		ids := func(orders []*entities.Order) []string {
			out := make([]string, len(orders))
			for i, o := range orders {
				out[i] = o.ID
			}
			return out
		}

		later := time.Now().Add(time.Hour)
		orders, err := repo.ListNeedingReconciliation(ctx, later, 3, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"retrying", "paid-unapplied"}, ids(orders))

		orders, err = repo.ListNeedingReconciliation(ctx, later, 0, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"retrying", "exhausted", "paid-unapplied"}, ids(orders))

		orders, err = repo.ListNeedingReconciliation(ctx, later, 0, 1)
		require.NoError(t, err)
		assert.Len(t, orders, 1)

		orders, err = repo.ListNeedingReconciliation(ctx, base, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, orders)

		assert.ErrorIs(t, repo.MarkStockApplied(ctx, "missing", nil), repositories.ErrOrderNotFound)
	})

	t.Run("new transaction resets verification history", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newOrder("order-1", "", base)))
		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-1"))
		require.NoError(t, repo.RecordVerificationFailure(ctx, "order-1", "tx-1", "REF-1", "status unavailable"))

		require.NoError(t, repo.AssignTransaction(ctx, "order-1", "tx-2"))

		got, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "tx-2", got.TransactionID)
		assert.Zero(t, got.VerificationAttempts)
		assert.Empty(t, got.LastVerificationError)
		assert.Empty(t, got.GatewayRef)

		orders, err := repo.ListNeedingReconciliation(ctx, time.Now().Add(time.Hour), 0, 0)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

// ProductRepository runs the catalog checks. seed must store the product as given.
func ProductRepository(t *testing.T, newRepo func(t *testing.T) (repositories.ProductRepository, func(*entities.Product))) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		repo, seed := newRepo(t)
		seed(&entities.Product{ID: "tea", Name: "Tea", Price: decimal.RequireFromString("99.99"), StockQty: 3, IsActive: true})

		p, err := repo.GetByID(ctx, "tea")
		require.NoError(t, err)
		assert.Equal(t, "Tea", p.Name)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("99.99")))
		assert.True(t, p.IsActive)

		_, err = repo.GetByID(ctx, "coffee")
		assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	})

	t.Run("decrement once per order", func(t *testing.T) {
		repo, seed := newRepo(t)
		seed(&entities.Product{ID: "tea", Name: "Tea", Price: decimal.NewFromInt(10), StockQty: 5, IsActive: true})

		applied, err := repo.DecrementStock(ctx, "tea", 2, "order-1")
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.DecrementStock(ctx, "tea", 2, "order-1")
		require.NoError(t, err)
		assert.False(t, applied)

		_, err = repo.DecrementStock(ctx, "tea", 4, "order-2")
		assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

		applied, err = repo.DecrementStock(ctx, "tea", 3, "order-3")
		require.NoError(t, err)
		assert.True(t, applied)

		p, err := repo.GetByID(ctx, "tea")
		require.NoError(t, err)
		assert.Equal(t, 0, p.StockQty)

		_, err = repo.DecrementStock(ctx, "coffee", 1, "order-4")
		assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		repo, seed := newRepo(t)
		seed(&entities.Product{ID: "mug", Name: "Mug", Price: decimal.NewFromInt(10), StockQty: 3, IsActive: true})

		var sold int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				applied, err := repo.DecrementStock(ctx, "mug", 1, fmt.Sprintf("order-%d", i))
				if err == nil && applied {
					atomic.AddInt32(&sold, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(3), sold)
		p, err := repo.GetByID(ctx, "mug")
		require.NoError(t, err)
		assert.Equal(t, 0, p.StockQty)
	})
}
