package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain/entities"
)

type OrderDocument struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty"`
	OrderID               string               `bson:"order_id"`
	UserID                string               `bson:"user_id,omitempty"`
	Items                 []ItemDocument       `bson:"items"`
	Customer              CustomerDocument     `bson:"customer"`
	Total                 primitive.Decimal128 `bson:"total"`
	Status                string               `bson:"status"`
	PaymentStatus         string               `bson:"payment_status"`
	TransactionID         string               `bson:"transaction_id,omitempty"`
	GatewayRef            string               `bson:"gateway_ref,omitempty"`
	VerificationAttempts  int                  `bson:"verification_attempts"`
	LastVerificationError string               `bson:"last_verification_error,omitempty"`
	StockApplied          bool                 `bson:"stock_applied"`
	Backordered           []string             `bson:"backordered,omitempty"`
	PaidAt                *time.Time           `bson:"paid_at,omitempty"`
	CreatedAt             time.Time            `bson:"created_at"`
	UpdatedAt             time.Time            `bson:"updated_at"`
}

type ItemDocument struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name,omitempty"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
}

type CustomerDocument struct {
	Name    string `bson:"name"`
	Email   string `bson:"email"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
}

type ProductDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	StockQty  int                  `bson:"stock_qty"`
	IsActive  bool                 `bson:"is_active"`
	// Recent orders already taken off stock; bounded with $slice.
	CommittedOrders []string `bson:"committed_orders,omitempty"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("amount %s does not fit Decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored amount %s is not a number: %w", v, err)
	}
	return d, nil
}

func toOrderDocument(order *entities.Order) (*OrderDocument, error) {
	total, err := toDecimal128(order.Total)
	if err != nil {
		return nil, err
	}

	doc := &OrderDocument{
		OrderID:               order.ID,
		UserID:                order.UserID,
		Total:                 total,
		Status:                string(order.Status),
		PaymentStatus:         string(order.PaymentStatus),
		TransactionID:         order.TransactionID,
		GatewayRef:            order.GatewayRef,
		VerificationAttempts:  order.VerificationAttempts,
		LastVerificationError: order.LastVerificationError,
		StockApplied:          order.StockApplied,
		Backordered:           order.Backordered,
		PaidAt:                order.PaidAt,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
		Customer: CustomerDocument{
			Name:    order.Customer.Name,
			Email:   order.Customer.Email,
			Phone:   order.Customer.Phone,
			Address: order.Customer.Address,
		},
		Items: make([]ItemDocument, len(order.Items)),
	}

	for i, item := range order.Items {
		price, err := toDecimal128(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ProductID, err)
		}
		doc.Items[i] = ItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
	}

	return doc, nil
}

func toOrderEntity(doc *OrderDocument) (*entities.Order, error) {
	items := make([]entities.Item, len(doc.Items))
	for i, item := range doc.Items {
		price, err := fromDecimal128(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order %s item %s: %w", doc.OrderID, item.ProductID, err)
		}
		items[i] = entities.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
	}

	total, err := fromDecimal128(doc.Total)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", doc.OrderID, err)
	}

	return &entities.Order{
		ID:                    doc.OrderID,
		UserID:                doc.UserID,
		Items:                 items,
		Total:                 total,
		Status:                entities.OrderStatus(doc.Status),
		PaymentStatus:         entities.PaymentStatus(doc.PaymentStatus),
		TransactionID:         doc.TransactionID,
		GatewayRef:            doc.GatewayRef,
		VerificationAttempts:  doc.VerificationAttempts,
		LastVerificationError: doc.LastVerificationError,
		StockApplied:          doc.StockApplied,
		Backordered:           doc.Backordered,
		PaidAt:                doc.PaidAt,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
		Customer: entities.CustomerInfo{
			Name:    doc.Customer.Name,
			Email:   doc.Customer.Email,
			Phone:   doc.Customer.Phone,
			Address: doc.Customer.Address,
		},
	}, nil
}

func toProductDocument(product *entities.Product) (*ProductDocument, error) {
	price, err := toDecimal128(product.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, err)
	}
	return &ProductDocument{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     price,
		StockQty:  product.StockQty,
		IsActive:  product.IsActive,
	}, nil
}

func toProductEntity(doc *ProductDocument) (*entities.Product, error) {
	price, err := fromDecimal128(doc.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", doc.ProductID, err)
	}
	return &entities.Product{
		ID:       doc.ProductID,
		Name:     doc.Name,
		Price:    price,
		StockQty: doc.StockQty,
		IsActive: doc.IsActive,
	}, nil
}
