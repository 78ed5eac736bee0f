package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Kafka message header names
const (
	HeaderEventType     = "event_type"
	HeaderSchemaVersion = "schema_version"
)

// MessageWriter is the part of *kafka.Writer the forwarder needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriterConfig configures NewKafkaWriter
type KafkaWriterConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewKafkaWriter builds a synchronous writer that hashes message keys onto partitions,
// so every event of one aggregate lands on the same partition in order
func NewKafkaWriter(cfg KafkaWriterConfig) *kafka.Writer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// KafkaEventForwarder is a wildcard bus subscriber that copies every domain event onto a
// kafka topic, keyed by aggregate id. Handle writes synchronously, so subscribe it behind
// an event.AsyncHandler to keep broker latency out of requests.
type KafkaEventForwarder struct {
	writer     MessageWriter
	serializer *event.EventSerializer
	logger     *zap.Logger
}

// NewKafkaEventForwarder creates a forwarder. A nil serializer gets one with every domain event registered.
func NewKafkaEventForwarder(writer MessageWriter, serializer *event.EventSerializer, logger *zap.Logger) *KafkaEventForwarder {
	if serializer == nil {
		serializer = event.NewEventSerializer()
		event.RegisterAllEvents(serializer)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaEventForwarder{
		writer:     writer,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns nil: the forwarder receives every event
func (f *KafkaEventForwarder) EventTypes() []string {
	return nil
}

// Handle writes the event envelope to the topic
func (f *KafkaEventForwarder) Handle(ctx context.Context, e shared.DomainEvent) error {
	value, err := f.serializer.Serialize(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.AggregateID().String()),
		Value: value,
		Time:  e.OccurredAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.EventType())},
			{Key: HeaderSchemaVersion, Value: []byte(strconv.Itoa(e.SchemaVersion()))},
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(&msg.Headers))

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to kafka: %w", e.EventType(), err)
	}
	f.logger.Debug("event forwarded to kafka",
		zap.String("event_type", e.EventType()),
		zap.String("event_id", e.EventID().String()),
	)
	return nil
}

// Close flushes and closes the writer
func (f *KafkaEventForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaEventForwarder)(nil)

// headerCarrier adapts kafka headers to the otel propagation carrier
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}
