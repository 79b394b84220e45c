package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/domain/repositories/repotest"
)

func TestOrderRepositoryMemory(t *testing.T) {
	repotest.OrderRepository(t, func(t *testing.T) repositories.OrderRepository {
		return NewOrderRepositoryMemory()
	})
}

func TestProductRepositoryMemory(t *testing.T) {
	repotest.ProductRepository(t, func(t *testing.T) (repositories.ProductRepository, func(*entities.Product)) {
		repo := NewProductRepositoryMemory()
		return repo, repo.Upsert
	})
}

func TestOrderRepositoryMemory_ReturnsCopies(t *testing.T) {
	repo := NewOrderRepositoryMemory()
	order := &entities.Order{ID: "order-1", Items: []entities.Item{{ProductID: "tea", Quantity: 1}}}
	require.NoError(t, repo.Create(context.Background(), order))

	order.Items[0].Quantity = 99
	got, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)

	got.Items[0].Quantity = 42
	again, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestLoadProductsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"tea","name":"Tea","price":"12.50","stockQty":4,"isActive":true}]`), 0o600))

	products, err := LoadProductsFile(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "tea", products[0].ID)
	assert.Equal(t, "12.5", products[0].Price.String())

	require.NoError(t, os.WriteFile(path, []byte(`{"id":"tea"}`), 0o600))
	_, err = LoadProductsFile(path)
	assert.ErrorContains(t, err, "failed to parse catalog file")
}
