package kafka

// Topics для Kafka
const (
	TopicOrderEvents     = "littlelemon.order.events"
	TopicDeadLetterQueue = "littlelemon.order.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)
