package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// StatusChangedEventType is sent in the event-type header of every message
const StatusChangedEventType = "credit_application.status_changed"

// KafkaConfig holds Kafka connection parameters
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaStatusPublisher publishes status events keyed by application id, so
// events of one application stay ordered within a partition.
type KafkaStatusPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaStatusPublisher creates a publisher writing to cfg.Topic
func NewKafkaStatusPublisher(cfg KafkaConfig) *KafkaStatusPublisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafkago.RequireAll,
	}
	return newKafkaStatusPublisher(w, cfg.Topic)
}

func newKafkaStatusPublisher(w messageWriter, topic string) *KafkaStatusPublisher {
	return &KafkaStatusPublisher{writer: w, topic: topic}
}

// PublishStatusEvent implements domain.StatusEventPublisher
func (p *KafkaStatusPublisher) PublishStatusEvent(ctx context.Context, event *domain.StatusEvent) error {
	msg, err := statusMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaStatusPublisher) Close() error {
	return p.writer.Close()
}

func statusMessage(event *domain.StatusEvent) (kafkago.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode status event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(int64(event.ApplicationID), 10)),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-id", Value: []byte(event.ID.String())},
			{Key: "event-type", Value: []byte(StatusChangedEventType)},
			{Key: "status", Value: []byte(event.Record.Status)},
		},
		Time: event.CreatedAt,
	}, nil
}
