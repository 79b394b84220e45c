package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/infrastructure/logger"
)

type OrderRepositoryMongo struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewOrderRepositoryMongo(ctx context.Context, db *mongo.Database, logger *logger.Logger) (*OrderRepositoryMongo, error) {
	collection := db.Collection("orders")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Only orders that have started a payment carry a transaction id.
			Keys: bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"transaction_id": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "payment_status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order indexes: %w", err)
	}

	return &OrderRepositoryMongo{
		collection: collection,
		logger:     logger,
	}, nil
}

func (r *OrderRepositoryMongo) Create(ctx context.Context, order *entities.Order) error {
	doc, err := toOrderDocument(order)
	if err != nil {
		return err
	}

	_, err = r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrOrderAlreadyExists
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *OrderRepositoryMongo) GetByID(ctx context.Context, orderID string) (*entities.Order, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *OrderRepositoryMongo) GetByTransactionID(ctx context.Context, transactionID string) (*entities.Order, error) {
	return r.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (r *OrderRepositoryMongo) findOne(ctx context.Context, filter bson.M) (*entities.Order, error) {
	var doc OrderDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return toOrderEntity(&doc)
}

func (r *OrderRepositoryMongo) ListByUser(ctx context.Context, userID string) ([]*entities.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *OrderRepositoryMongo) ListNeedingReconciliation(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entities.Order, error) {
	attempts := bson.M{"$gt": 0}
	if maxAttempts > 0 {
		attempts["$lt"] = maxAttempts
	}

	filter := bson.M{
		"updated_at": bson.M{"$lt": olderThan},
		"$or": bson.A{
			bson.M{"payment_status": string(entities.PaymentPending), "verification_attempts": attempts},
			bson.M{"payment_status": string(entities.PaymentPaid), "stock_applied": false},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *OrderRepositoryMongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []OrderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*entities.Order, len(docs))
	for i := range docs {
		order, err := toOrderEntity(&docs[i])
		if err != nil {
			return nil, err
		}
		orders[i] = order
	}
	return orders, nil
}

func (r *OrderRepositoryMongo) UpdateStatus(ctx context.Context, orderID string, status entities.OrderStatus) (*entities.Order, error) {
	var doc OrderDocument
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"order_id": orderID},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	r.logger.Info("Order status updated",
		"order_id", orderID,
		"new_status", status)

	return toOrderEntity(&doc)
}

func (r *OrderRepositoryMongo) AssignTransaction(ctx context.Context, orderID, transactionID string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"order_id": orderID, "payment_status": string(entities.PaymentPending)},
		// A new transaction starts its verification history from scratch.
		bson.M{
			"$set": bson.M{
				"transaction_id":        transactionID,
				"verification_attempts": 0,
				"updated_at":            time.Now(),
			},
			"$unset": bson.M{"last_verification_error": "", "gateway_ref": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to assign transaction: %w", err)
	}

	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, orderID); err != nil {
			return err
		}
		return repositories.ErrPaymentNotPending
	}

	return nil
}

func (r *OrderRepositoryMongo) MarkPaid(ctx context.Context, orderID, transactionID, gatewayRef string, at time.Time) (*entities.Order, error) {
	set := bson.M{
		"payment_status": string(entities.PaymentPaid),
		"status":         string(entities.StatusPaid),
		"paid_at":        at,
		"updated_at":     at,
	}
	if gatewayRef != "" {
		set["gateway_ref"] = gatewayRef
	}

	return r.transition(ctx, orderID, transactionID, bson.M{"$set": set})
}

func (r *OrderRepositoryMongo) MarkPaymentFailed(ctx context.Context, orderID, transactionID string) (*entities.Order, error) {
	return r.transition(ctx, orderID, transactionID, bson.M{"$set": bson.M{
		"payment_status": string(entities.PaymentFailed),
		"updated_at":     time.Now(),
	}})
}

func (r *OrderRepositoryMongo) RecordVerificationFailure(ctx context.Context, orderID, transactionID, gatewayRef, reason string) error {
	set := bson.M{
		"last_verification_error": reason,
		"updated_at":              time.Now(),
	}
	if gatewayRef != "" {
		set["gateway_ref"] = gatewayRef
	}

	_, err := r.transition(ctx, orderID, transactionID, bson.M{
		"$set": set,
		"$inc": bson.M{"verification_attempts": 1},
	})
	return err
}

// transition applies update only while the order's payment is pending under
// transactionID. A single FindOneAndUpdate keeps the check and the write atomic.
func (r *OrderRepositoryMongo) transition(ctx context.Context, orderID, transactionID string, update bson.M) (*entities.Order, error) {
	filter := bson.M{
		"order_id":       orderID,
		"transaction_id": transactionID,
		"payment_status": string(entities.PaymentPending),
	}

	var doc OrderDocument
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return toOrderEntity(&doc)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update payment state: %w", err)
	}

	current, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.TransactionID != transactionID {
		return nil, repositories.ErrTransactionMismatch
	}
	return nil, repositories.ErrPaymentNotPending
}

func (r *OrderRepositoryMongo) MarkStockApplied(ctx context.Context, orderID string, backordered []string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"order_id": orderID},
		bson.M{"$set": bson.M{
			"stock_applied": true,
			"backordered":   backordered,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark stock applied: %w", err)
	}

	if result.MatchedCount == 0 {
		return repositories.ErrOrderNotFound
	}

	return nil
}
