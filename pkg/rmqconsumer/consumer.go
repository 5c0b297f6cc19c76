// Package rmqconsumer tails the user lifecycle events published by the
// registry API and writes each one to the log.
package rmqconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-registry-api/config"
)

// can scale depends on a parallel worker count
const preFetchCount = 1

// routing key -> action name
var actions = []struct{ key, action string }{
	{"user.created", "UserCreated"},
	{"user.updated", "UserUpdated"},
	{"user.deactivated", "UserDeactivated"},
}

var errUnknownKey = errors.New("unknown routing key")

// event is the subset of the published envelope the consumer reads.
type event struct {
	ID     string `json:"event_id"`
	Action string `json:"event_action"`
	UserID int64  `json:"user_id"`
}

type Consumer struct {
	cfg        config.MQ
	log        *zap.Logger
	conn       *amqp091.Connection
	chConsume  *amqp091.Channel
	chDelivery <-chan amqp091.Delivery
}

func New(cfg config.MQ, logger *zap.Logger) *Consumer {
	return &Consumer{
		cfg: cfg,
		log: logger,
	}
}

func (c *Consumer) Connect(dsn string) error {
	conn, err := amqp091.Dial(dsn)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	c.conn, c.chConsume = conn, ch

	c.log.Info("rabbitmq consumer connected successfully")

	return nil
}

func (c *Consumer) Init() error {
	if c.chConsume == nil {
		return errors.New("rabbitmq consumer is not connected")
	}
	if err := c.chConsume.ExchangeDeclare(
		c.cfg.Exchange,
		c.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := c.chConsume.QueueDeclare(
		c.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, a := range actions {
		if err := c.chConsume.QueueBind(
			c.cfg.QueueName,
			a.key,
			c.cfg.Exchange,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("queue bind %s: %w", a.key, err)
		}
	}

	if err := c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries, err := c.chConsume.Consume(
		c.cfg.QueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.chDelivery = deliveries

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("starting delivery worker")

	defer func() {
		c.log.Info("delivery worker gracefully stopped")
	}()

	for {
		select {
		case msg, ok := <-c.chDelivery:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			if err := c.delivery(msg); err != nil {
				c.log.Error("mq read message error", zap.Error(err))
				// a malformed event will not get better on redelivery
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) Close() {
	if c.chConsume != nil {
		_ = c.chConsume.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) delivery(msg amqp091.Delivery) error {
	action, ok := actionOf(msg.RoutingKey)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownKey, msg.RoutingKey)
	}

	var e event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		return fmt.Errorf("decode %s event: %w", msg.RoutingKey, err)
	}

	c.log.Info("user event",
		zap.String("action", action),
		zap.String("event_id", e.ID),
		zap.Int64("user_id", e.UserID),
		zap.ByteString("body", msg.Body),
	)

	return nil
}

func actionOf(key string) (string, bool) {
	for _, a := range actions {
		if a.key == key {
			return a.action, true
		}
	}
	return "", false
}
