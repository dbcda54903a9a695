package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gride/internal/bm"
	"gride/internal/mylogger"
	"gride/internal/realtime-service/core/myerrors"
	"gride/internal/realtime-service/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	prefetch = 20

	// ResubscribeInterval is the pause between subscription attempts after
	// the delivery stream ends.
	ResubscribeInterval = 5 * time.Second
)

// Notifications feeds driver notifications from the broker into the
// notification service.
type Notifications struct {
	ctx     context.Context
	wg      *sync.WaitGroup
	log     mylogger.Logger
	broker  bm.IBroker
	service ports.INotificationService
	retry   time.Duration
}

func New(ctx context.Context, wg *sync.WaitGroup, log mylogger.Logger, broker bm.IBroker, service ports.INotificationService) *Notifications {
	return &Notifications{
		ctx:     ctx,
		wg:      wg,
		log:     log,
		broker:  broker,
		service: service,
		retry:   ResubscribeInterval,
	}
}

// Run subscribes to the driver notification queue and returns once the
// worker is started. The worker subscribes again whenever the delivery
// stream ends, until ctx is done.
func (n *Notifications) Run() error {
	ch, err := n.subscribe()
	if err != nil {
		return err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			n.work(ch)
			if ch = n.resubscribe(); ch == nil {
				return
			}
		}
	}()
	return nil
}

func (n *Notifications) subscribe() (<-chan amqp.Delivery, error) {
	ch, err := n.broker.Consume(n.ctx, bm.QueueDriverNotifications, bm.RoutingDriverNotify, bm.ConsumeOptions{
		Prefetch:     prefetch,
		QueueDurable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", bm.QueueDriverNotifications, err)
	}
	return ch, nil
}

// resubscribe retries the subscription every retry interval. It returns nil
// once ctx is done.
func (n *Notifications) resubscribe() <-chan amqp.Delivery {
	log := n.log.Action("resubscribe_notifications")
	t := time.NewTicker(n.retry)
	defer t.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return nil
		case <-t.C:
			ch, err := n.subscribe()
			if err == nil {
				log.Info("notification consumer resubscribed")
				return ch
			}
			log.Warn("cannot resubscribe", "error", err.Error())
		}
	}
}

func (n *Notifications) work(ch <-chan amqp.Delivery) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n.settle(msg, n.Handle(n.ctx, msg.Body))
		case <-n.ctx.Done():
			return
		}
	}
}

// Handle decodes one message body and dispatches it.
func (n *Notifications) Handle(ctx context.Context, body []byte) error {
	var msg bm.DriverNotification
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}
	return n.service.Dispatch(ctx, msg)
}

// settle acks handled messages, drops malformed ones and retries others once.
func (n *Notifications) settle(msg amqp.Delivery, err error) {
	log := n.log.Action("settle_notification")

	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack(false)
	case errors.Is(err, myerrors.ErrValidation):
		log.Warn("dropping malformed notification", "error", err.Error())
		ackErr = msg.Nack(false, false)
	default:
		log.Error("notification dispatch failed", err, "redelivered", msg.Redelivered)
		ackErr = msg.Nack(false, !msg.Redelivered)
	}
	if ackErr != nil {
		log.Debug("cannot settle delivery", "error", ackErr.Error())
	}
}
