package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/entities"
)

func TestNewOrderEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("NPT", 5*3600+45*60))
	order := &entities.Order{
		ID:            "o-1",
		UserID:        "u-1",
		Total:         decimal.RequireFromString("450.50"),
		Status:        entities.StatusPaid,
		PaymentStatus: entities.PaymentPaid,
		TransactionID: "shop-o-1-1",
		Backordered:   []string{"mug"},
	}

	raw, err := json.Marshal(NewOrderEvent("order.paid", order, at))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "order.paid", got["type"])
	assert.Equal(t, "450.5", got["total"])
	assert.Equal(t, "paid", got["payment_status"])
	assert.Equal(t, "2024-03-01T04:45:00Z", got["occurred_at"])
	assert.Equal(t, []interface{}{"mug"}, got["backordered"])
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishOrderEvent(context.Background(), "order.created", &entities.Order{}))
	p.Close()
}
