package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-registry-api/config"
	"user-registry-api/internal/domain/user"
)

var errNotConnected = errors.New("rabbitmq publisher is not connected")

// RoutingKeys are the keys user events are published and bound with.
var RoutingKeys = []string{
	string(user.EventCreated),
	string(user.EventUpdated),
	string(user.EventDeactivated),
}

type RabbitMQ struct {
	cfg   config.MQ
	log   *zap.Logger
	mu    sync.Mutex
	conn  *amqp091.Connection
	pubCh *amqp091.Channel
}

func New(cfg config.MQ, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: logger,
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "userregistryapi",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	conn, err := amqp091.DialConfig(dsn, amqpCfg)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	r.conn, r.pubCh = conn, ch

	r.log.Info("rabbitmq connected successfully")

	return nil
}

// Init declares the exchange and the durable queue and binds every user
// event routing key to it.
func (r *RabbitMQ) Init() error {
	if r.pubCh == nil {
		return errNotConnected
	}
	if err := r.pubCh.ExchangeDeclare(
		r.cfg.Exchange,
		r.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := r.pubCh.QueueDeclare(
		r.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	for _, rk := range RoutingKeys {
		if err = r.pubCh.QueueBind(q.Name, rk, r.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", rk, err)
		}
	}

	return nil
}

// PublishUserEvent sends e synchronously. It never retries.
func (r *RabbitMQ) PublishUserEvent(ctx context.Context, e user.Event) error {
	pub, err := newPublishing(uuid.New(), e)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubCh == nil {
		return errNotConnected
	}

	return r.pubCh.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		string(e.Kind),
		false,
		false,
		pub,
	)
}

func (r *RabbitMQ) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubCh != nil {
		_ = r.pubCh.Close()
		r.pubCh = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func newPublishing(id uuid.UUID, e user.Event) (amqp091.Publishing, error) {
	b, err := json.Marshal(newEnvelope(id, e))
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal user event: %w", err)
	}

	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    id.String(),
		Timestamp:    e.At,
		Type:         string(e.Kind),
		Body:         b,
	}, nil
}
