package bm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gride/internal/config"
	"gride/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnInterval = 5 * time.Second

var ErrClosed = errors.New("amqp closed")

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMqconfig
	log          mylogger.Logger
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	closed       bool
	mu           *sync.Mutex
}

var _ IBroker = (*RabbitMQ)(nil)

func New(ctx context.Context, rabbitmqCfg config.RabbitMqconfig, log mylogger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx: ctx,
		cfg: rabbitmqCfg,
		log: log,
		mu:  &sync.Mutex{},
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("rabbit connect: %w", err)
	}
	return r, nil
}

func (r *RabbitMQ) PublishJSON(ctx context.Context, exchange, routingKey string, msg any) error {
	if !r.IsAlive() {
		r.log.Action("publish").Error("amqp not alive", ErrClosed)
		go r.reconnect(r.ctx)
		return ErrClosed
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pubctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return ch.PublishWithContext(pubctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (r *RabbitMQ) Consume(ctx context.Context, queueName, bindingKey string, opts ConsumeOptions) (<-chan amqp.Delivery, error) {
	if !r.IsAlive() {
		return nil, ErrClosed
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	if _, err := ch.QueueDeclare(
		queueName,
		opts.QueueDurable,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queueName, bindingKey, Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	if opts.Prefetch > 0 {
		if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("qos: %w", err)
		}
	}
	deliveries, err := ch.Consume(
		queueName,
		"",           // consumer tag
		opts.AutoAck, // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	out := make(chan amqp.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Port, r.cfg.VHost,
	)
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	r.mu.Lock()
	old := r.conn
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	if old != nil && !old.IsClosed() {
		_ = old.Close()
	}

	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)), ch.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// watch starts a reconnect once the connection or channel drops. A graceful
// Close delivers no error and ends the watch.
func (r *RabbitMQ) watch(connClosed, chClosed <-chan *amqp.Error) {
	var reason *amqp.Error
	select {
	case reason = <-connClosed:
	case reason = <-chClosed:
	case <-r.ctx.Done():
		return
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed || reason == nil {
		return
	}

	r.log.Action("mb_connection_lost").Warn("amqp connection lost", "reason", reason.Error())
	r.reconnect(r.ctx)
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnInterval)
	defer t.Stop()
	l := r.log.Action("mb_reconnecting")

	for {
		select {
		case <-t.C:
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return
			}
			if err := r.connect(); err == nil {
				l.Action("mb_reconnection_completed").Info("reconnected")
				return
			}
			l.Info("reconnect failed")
		case <-ctx.Done():
			return
		}
	}
}
