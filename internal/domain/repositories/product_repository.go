package repositories

import (
	"context"

	"storefront/internal/domain/entities"
)

type ProductRepository interface {
	GetByID(ctx context.Context, productID string) (*entities.Product, error)

	// DecrementStock subtracts quantity in one conditional update, at most
	// once per orderID. applied is false when orderID was already committed.
	DecrementStock(ctx context.Context, productID string, quantity int, orderID string) (applied bool, err error)
}

var (
	ErrProductNotFound   = &RepositoryError{"product not found"}
	ErrInsufficientStock = &RepositoryError{"insufficient stock"}
)
