package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
)

type ProductRepositoryMemory struct {
	mu       sync.RWMutex
	products map[string]*entities.Product
	// product id -> orders whose quantities were already taken off stock
	committed map[string]map[string]struct{}
}

func NewProductRepositoryMemory(products ...*entities.Product) *ProductRepositoryMemory {
	r := &ProductRepositoryMemory{
		products:  make(map[string]*entities.Product),
		committed: make(map[string]map[string]struct{}),
	}
	for _, p := range products {
		r.Upsert(p)
	}
	return r
}

// LoadProductsFile reads a JSON array of products, used to seed the catalog.
func LoadProductsFile(path string) ([]*entities.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []*entities.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return products, nil
}

func (r *ProductRepositoryMemory) Upsert(product *entities.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := *product
	r.products[p.ID] = &p
}

func (r *ProductRepositoryMemory) GetByID(ctx context.Context, productID string) (*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[productID]
	if !exists {
		return nil, repositories.ErrProductNotFound
	}

	p := *product
	return &p, nil
}

func (r *ProductRepositoryMemory) DecrementStock(ctx context.Context, productID string, quantity int, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, exists := r.products[productID]
	if !exists {
		return false, repositories.ErrProductNotFound
	}
	if _, done := r.committed[productID][orderID]; done {
		return false, nil
	}
	if product.StockQty < quantity {
		return false, repositories.ErrInsufficientStock
	}

	product.StockQty -= quantity
	if r.committed[productID] == nil {
		r.committed[productID] = make(map[string]struct{})
	}
	r.committed[productID][orderID] = struct{}{}
	return true, nil
}
