// Package rabbitmq публикует события outbox в topic exchange RabbitMQ.
package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/messaging"
)

const (
	DefaultExchange = "littlelemon.orders"
	dlqSuffix       = ".dlq"

	publishTimeout = 10 * time.Second

	headerOutboxID       = "x-outbox-id"
	headerOriginExchange = "x-original-exchange"
)

// channel — часть *amqp.Channel, которую использует паблишер.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher отправляет сообщения в exchange. Канал AMQP не потокобезопасен, публикация идёт под мьютексом.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *log.Entry
}

// Dial подключается к брокеру и объявляет основной и DLQ exchange.
func Dial(url, exchange string, logger *log.Entry) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	p, err := newPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *log.Entry) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = log.WithField("component", "rabbitmq-publisher")
	}

	for _, name := range []string{exchange, exchange + dlqSuffix} {
		if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Exchange возвращает имя основного exchange.
func (p *Publisher) Exchange() string {
	return p.exchange
}

// Publish отправляет событие с routing key, равным типу события.
func (p *Publisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	return p.publish(ctx, p.exchange, event, nil)
}

// DLQ возвращает паблишер в dead letter exchange на том же канале.
func (p *Publisher) DLQ() domain.OutboxPublisher {
	return dlqPublisher{p: p}
}

type dlqPublisher struct {
	p *Publisher
}

func (d dlqPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	return d.p.publish(ctx, d.p.exchange+dlqSuffix, event, amqp.Table{headerOriginExchange: d.p.exchange})
}

func (p *Publisher) publish(ctx context.Context, exchange string, event domain.OutboxMessage, extra amqp.Table) error {
	now := time.Now().UTC()
	body, err := messaging.Encode(event, now)
	if err != nil {
		return err
	}

	headers := amqp.Table{headerOutboxID: event.ID}
	for k, v := range extra {
		headers[k] = v
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.EventType,
		Timestamp:    now,
		Headers:      headers,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, exchange, event.EventType, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"exchange":    exchange,
			"routing_key": event.EventType,
			"outbox_id":   event.ID,
		}).Error("failed to publish message to rabbitmq")
		return fmt.Errorf("%w: %w", domain.ErrOutboxPublish, err)
	}

	p.logger.WithFields(log.Fields{
		"exchange":     exchange,
		"routing_key":  event.EventType,
		"message_size": len(body),
	}).Debug("message published to rabbitmq")
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	var firstErr error
	if err := p.ch.Close(); err != nil {
		firstErr = fmt.Errorf("close rabbitmq channel: %w", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return firstErr
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
