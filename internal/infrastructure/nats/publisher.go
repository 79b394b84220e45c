package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"storefront/internal/domain/entities"
	"storefront/internal/infrastructure/logger"
)

type NatsPublisher struct {
	nc     *nats.Conn
	logger *logger.Logger
}

// OrderEvent is the payload of every order.* subject.
type OrderEvent struct {
	Type          string   `json:"type"`
	OrderID       string   `json:"order_id"`
	UserID        string   `json:"user_id,omitempty"`
	Total         string   `json:"total"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Backordered   []string `json:"backordered,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}

func NewOrderEvent(subject string, order *entities.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          subject,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total.String(),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TransactionID: order.TransactionID,
		Backordered:   order.Backordered,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

func NewNatsPublisher(url string, logger *logger.Logger) (*NatsPublisher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var nc *nats.Conn
	var err error

	for i := 0; i < 3; i++ {
		nc, err = nats.Connect(url,
			nats.Name("storefront"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				logger.Warn("NATS disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
			}),
		)

		if err == nil {
			logger.Info("Connected to NATS", "url", url)
			return &NatsPublisher{nc: nc, logger: logger}, nil
		}

		logger.Warn("Failed to connect to NATS", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		case <-time.After(2 * time.Second):
			continue
		}
	}

	return nil, fmt.Errorf("failed to connect to NATS after retries: %w", err)
}

func (p *NatsPublisher) PublishOrderEvent(ctx context.Context, subject string, order *entities.Order) error {
	data, err := json.Marshal(NewOrderEvent(subject, order, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-ctx.Done():
			p.logger.Warn("Context cancelled while publishing to NATS", "subject", subject)
			return ctx.Err()
		default:
		}

		if err := p.nc.Publish(subject, data); err != nil {
			p.logger.Warn("Failed to publish to NATS", "subject", subject, "attempt", i+1, "error", err)
			sleep(ctx, time.Second)
			continue
		}

		if err := p.nc.FlushTimeout(2 * time.Second); err != nil {
			p.logger.Warn("Failed to flush NATS connection", "subject", subject, "error", err)
			continue
		}

		p.logger.Info("Published order event", "subject", subject, "order_id", order.ID)
		return nil
	}

	p.logger.Error("Failed to publish event to NATS after retries", "subject", subject, "order_id", order.ID)
	return fmt.Errorf("failed to publish %s after retries", subject)
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (p *NatsPublisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
		p.logger.Info("NATS connection closed")
	}
}

// NoopPublisher stands in when NATS is not configured or unreachable.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(ctx context.Context, subject string, order *entities.Order) error {
	return nil
}

func (NoopPublisher) Close() {}
