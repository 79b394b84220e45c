package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/infrastructure/logger"
)

// committedOrdersWindow bounds the per-product list of orders already taken
// off stock. Resumed finalizations happen within minutes, far inside it.
const committedOrdersWindow = 500

type ProductRepositoryMongo struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewProductRepositoryMongo(ctx context.Context, db *mongo.Database, logger *logger.Logger) (*ProductRepositoryMongo, error) {
	collection := db.Collection("products")

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product index: %w", err)
	}

	return &ProductRepositoryMongo{
		collection: collection,
		logger:     logger,
	}, nil
}

func (r *ProductRepositoryMongo) GetByID(ctx context.Context, productID string) (*entities.Product, error) {
	var doc ProductDocument
	err := r.collection.FindOne(ctx, bson.M{"product_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return toProductEntity(&doc)
}

// Upsert writes catalog fields and leaves committed_orders untouched.
func (r *ProductRepositoryMongo) Upsert(ctx context.Context, product *entities.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"product_id": doc.ProductID},
		bson.M{"$set": bson.M{
			"name":      doc.Name,
			"price":     doc.Price,
			"stock_qty": doc.StockQty,
			"is_active": doc.IsActive,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

func (r *ProductRepositoryMongo) DecrementStock(ctx context.Context, productID string, quantity int, orderID string) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"product_id":       productID,
			"stock_qty":        bson.M{"$gte": quantity},
			"committed_orders": bson.M{"$ne": orderID},
		},
		bson.M{
			"$inc": bson.M{"stock_qty": -quantity},
			"$push": bson.M{"committed_orders": bson.M{
				"$each":  bson.A{orderID},
				"$slice": -committedOrdersWindow,
			}},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if result.ModifiedCount == 1 {
		return true, nil
	}

	var doc ProductDocument
	err = r.collection.FindOne(ctx, bson.M{"product_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, repositories.ErrProductNotFound
		}
		return false, fmt.Errorf("failed to find product: %w", err)
	}

	for _, committed := range doc.CommittedOrders {
		if committed == orderID {
			r.logger.Info("Stock already committed for order",
				"product_id", productID,
				"order_id", orderID)
			return false, nil
		}
	}

	return false, repositories.ErrInsufficientStock
}
