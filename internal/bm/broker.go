package bm

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Exchange is the topic exchange every service publishes to.
	Exchange = "gride_topic"

	RoutingTransferCompleted = "wallet.transfer.completed"
	RoutingPayoutRequested   = "wallet.payout.requested"
	RoutingAdjustmentApplied = "wallet.adjustment.applied"
	RoutingDriverNotify      = "notification.driver"

	QueueDriverNotifications = "driver_notifications"
)

// ConsumeOptions tunes a queue subscription.
type ConsumeOptions struct {
	Prefetch     int  // unacked deliveries held by the consumer
	AutoAck      bool // acknowledge on delivery
	QueueDurable bool // queue survives broker restart
}

// IBroker is the message broker used by the services.
type IBroker interface {
	// PublishJSON publishes msg as JSON to the exchange with the routing key.
	PublishJSON(ctx context.Context, exchange, routingKey string, msg any) error

	// Consume declares queueName, binds it to Exchange with bindingKey and
	// streams its deliveries until ctx is done.
	Consume(ctx context.Context, queueName, bindingKey string, opts ConsumeOptions) (<-chan amqp.Delivery, error)

	IsAlive() bool
	Close() error
}

// DriverNotification is the body published on RoutingDriverNotify.
type DriverNotification struct {
	DriverID  string    `json:"driver_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
