package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces notifications to a Kafka topic.
// It implements notify.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one notification keyed by device serial, so every alert
// for a device lands on the same partition in order.
func (w *Writer) Notify(ctx context.Context, n domain.Notification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	w.logger.Debug("notification produced", "topic", w.writer.Topic, "notification_id", n.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts a Notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	out, err := domain.SerializeNotification(n)
	if err != nil {
		return kafkago.Message{}, err
	}
	msg := kafkago.Message{Key: out.Key, Value: out.Value}
	for _, key := range headerOrder {
		if v, ok := out.Headers[key]; ok {
			msg.Headers = append(msg.Headers, kafkago.Header{Key: key, Value: []byte(v)})
		}
	}
	return msg, nil
}

// headerOrder fixes header order on the wire; the map has none.
var headerOrder = []string{"severity", "event", "notification_id", "created_at"}
