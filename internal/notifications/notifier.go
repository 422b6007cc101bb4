// Package notifications dispatches fire-and-forget order notifications.
// Delivery is best-effort: failures are logged by callers, never
// propagated into the transactional core.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Notifier is the dispatch contract consumed by the order engine's
// post-commit hooks.
type Notifier interface {
	Notify(ctx context.Context, kind string, orderID uuid.UUID) error
}

// message is the wire shape published to the notifications topic.
type message struct {
	Kind    string    `json:"kind"`
	OrderID uuid.UUID `json:"order_id"`
	At      time.Time `json:"at"`
}

// KafkaNotifier publishes notifications to a Kafka topic.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on the given
// brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaNotifier{writer: writer, logger: logger}
}

// Notify publishes one notification message keyed by order id.
func (n *KafkaNotifier) Notify(ctx context.Context, kind string, orderID uuid.UUID) error {
	payload, err := json.Marshal(message{Kind: kind, OrderID: orderID, At: time.Now()})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID.String()),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error { return n.writer.Close() }

// NopNotifier discards notifications; used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, uuid.UUID) error { return nil }
