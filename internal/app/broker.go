package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/littlelemon/internal/messaging/rabbitmq"
)

// eventPublishers — паблишеры outbox-воркера. Для брокера none оба nil.
type eventPublishers struct {
	events domain.OutboxPublisher
	dlq    domain.OutboxPublisher
	close  func()
}

func initEventPublishers(cfg Config, logger *log.Entry) (*eventPublishers, error) {
	switch cfg.EventsBroker {
	case EventsBrokerNone, "":
		logger.Info("events broker is disabled; order events stay in the outbox")
		return &eventPublishers{close: func() {}}, nil
	case EventsBrokerKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, logger.WithField("component", "kafka-producer"))
		if err != nil {
			return nil, err
		}
		logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		return &eventPublishers{
			events: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:    kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic, cfg.KafkaTopic),
			close: func() {
				if err := producer.Close(); err != nil {
					logger.WithError(err).Warn("failed to close kafka producer")
					return
				}
				logger.Info("kafka producer closed")
			},
		}, nil
	case EventsBrokerRabbitMQ:
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger.WithField("component", "rabbitmq-publisher"))
		if err != nil {
			return nil, err
		}
		logger.WithField("exchange", publisher.Exchange()).Info("rabbitmq publisher initialized")
		return &eventPublishers{
			events: publisher,
			dlq:    publisher.DLQ(),
			close: func() {
				if err := publisher.Close(); err != nil {
					logger.WithError(err).Warn("failed to close rabbitmq publisher")
					return
				}
				logger.Info("rabbitmq publisher closed")
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported events broker %q", cfg.EventsBroker)
	}
}

// enabled сообщает, настроен ли брокер; без него события остаются в outbox.
func (p *eventPublishers) enabled() bool {
	return p != nil && p.events != nil
}
