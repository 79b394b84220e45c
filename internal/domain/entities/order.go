package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusPaid       OrderStatus = "paid"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Order struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"user,omitempty"`
	Items                 []Item          `json:"items"`
	Customer              CustomerInfo    `json:"customerInfo"`
	Total                 decimal.Decimal `json:"total"`
	Status                OrderStatus     `json:"status"`
	PaymentStatus         PaymentStatus   `json:"paymentStatus"`
	TransactionID         string          `json:"transactionId,omitempty"`
	GatewayRef            string          `json:"gatewayRef,omitempty"`
	VerificationAttempts  int             `json:"verificationAttempts,omitempty"`
	LastVerificationError string          `json:"-"`
	StockApplied          bool            `json:"stockApplied"`
	Backordered           []string        `json:"backordered,omitempty"`
	PaidAt                *time.Time      `json:"paidAt,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

type Item struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c CustomerInfo) Complete() bool {
	return c.Name != "" && c.Email != "" && c.Phone != "" && c.Address != ""
}

// LineTotal is the snapshotted price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line totals of the order as it was priced at checkout.
func (o *Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Quantities aggregates quantities per product, preserving first-seen order.
func (o *Order) Quantities() ([]string, map[string]int) {
	var ids []string
	qty := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		if _, seen := qty[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		qty[item.ProductID] += item.Quantity
	}
	return ids, qty
}

func (o *Order) OwnedBy(userID string) bool {
	return o.UserID != "" && o.UserID == userID
}

func (o *Order) IsGuest() bool {
	return o.UserID == ""
}

// Clone returns a deep copy so stores never hand out shared slices.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.Backordered = append([]string(nil), o.Backordered...)
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		c.PaidAt = &paidAt
	}
	return &c
}

func ValidStatus(status string) bool {
	switch OrderStatus(status) {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
