package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher hands grading events to whatever transport is configured.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *Event) error
	Close() error
}

type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// Message metadata keys set on every published event.
const (
	MetadataEventType = "event_type"
	MetadataSource    = "source"
	MetadataVersion   = "version"
	MetadataEmittedAt = "emitted_at"
)

// watermillPublisher turns events into watermill messages on a single topic
type watermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

func (p *watermillPublisher) PublishEvent(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata = message.Metadata{
		MetadataEventType: string(event.Type),
		MetadataSource:    event.Source,
		MetadataVersion:   event.Version,
		MetadataEmittedAt: event.Timestamp.Format(time.RFC3339),
	}

	log := p.logger.With("event_id", event.ID, "event_type", event.Type, "topic", p.topicName)
	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		log.Error("grading event not delivered", "error", err)
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	log.Debug("grading event delivered")
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}

// KafkaEventPublisher writes events to a Kafka topic through watermill.
type KafkaEventPublisher struct {
	watermillPublisher
}

func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect kafka publisher to %v: %w", config.KafkaBrokers, err)
	}

	return &KafkaEventPublisher{watermillPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}}, nil
}

// InMemoryEventPublisher publishes on a watermill go channel so that
// in-process consumers can subscribe without a broker.
type InMemoryEventPublisher struct {
	watermillPublisher
	pubSub *gochannel.GoChannel
}

func NewInMemoryEventPublisher(topicName string, logger *slog.Logger) *InMemoryEventPublisher {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(logger))

	return &InMemoryEventPublisher{
		watermillPublisher: watermillPublisher{
			publisher: pubSub,
			logger:    logger,
			topicName: topicName,
		},
		pubSub: pubSub,
	}
}

// Subscribe returns the raw message stream of the publisher's topic.
// Consumers must Ack every message.
func (p *InMemoryEventPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubSub.Subscribe(ctx, p.topicName)
}

// DecodeEvent reads the envelope of a published message. Data is left as a
// generic JSON value.
func DecodeEvent(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", msg.UUID, err)
	}
	return &event, nil
}

// MockEventPublisher records events in memory. It backs disabled event
// delivery and the service tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []Event
	Logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]Event, 0),
		Logger: logger,
	}
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, event *Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	m.Logger.Debug("grading event recorded", "event_id", event.ID, "event_type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a snapshot of what was recorded so far.
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.Events))
	copy(out, m.Events)
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.Events = m.Events[:0]
	m.mu.Unlock()
}
