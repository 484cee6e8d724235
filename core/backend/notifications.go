package backend

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/items/core"
	"github.com/relabs-tech/items/core/logger"
)

// KafkaNotifier publishes item change notifications to a kafka topic.
// The message value is the item as JSON, the message key is the resource
// followed by the operation, e.g. "item/update".
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier publishing to the given brokers
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Notify implements core.Notifier. Notifications are best effort, a failed
// write is logged but does not fail the request that caused it.
func (n *KafkaNotifier) Notify(resource string, operation core.Operation, payload []byte) {
	err := n.writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(resource + "/" + string(operation)),
			Value: payload,
		})
	if err != nil {
		logger.Default().WithError(err).Errorln("cannot publish notification for", resource, operation)
	}
}

// Close closes the underlying kafka writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
