package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Publisher publishes domain events to the message broker
type Publisher interface {
	PublishQuizSubmitted(ctx context.Context, event QuizSubmittedEvent) error
	PublishSubmissionReset(ctx context.Context, event SubmissionResetEvent) error
	Close() error
}

type watermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher. When no brokers
// are configured it falls back to an in-process channel publisher so
// the service still runs in development.
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *slog.Logger) (Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(brokers) == 0 {
		logger.Warn("No Kafka brokers configured, using in-process event publisher")
		return &watermillPublisher{
			publisher:   gochannel.NewGoChannel(gochannel.Config{}, wmLogger),
			topicPrefix: topicPrefix,
			logger:      logger,
		}, nil
	}

	kafkaPublisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &watermillPublisher{
		publisher:   kafkaPublisher,
		topicPrefix: topicPrefix,
		logger:      logger,
	}, nil
}

func (p *watermillPublisher) PublishQuizSubmitted(ctx context.Context, event QuizSubmittedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	return p.publish(ctx, TopicQuizSubmitted, event.EventID, event)
}

func (p *watermillPublisher) PublishSubmissionReset(ctx context.Context, event SubmissionResetEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	return p.publish(ctx, TopicSubmissionReset, event.EventID, event)
}

func (p *watermillPublisher) publish(ctx context.Context, topic, eventID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(eventID, data)
	msg.SetContext(ctx)

	fullTopic := topic
	if p.topicPrefix != "" {
		fullTopic = p.topicPrefix + "." + topic
	}

	if err := p.publisher.Publish(fullTopic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullTopic, err)
	}

	p.logger.Debug("Published event", "topic", fullTopic, "event_id", eventID)
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}
