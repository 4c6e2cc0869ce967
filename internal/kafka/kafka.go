// Package kafka wraps segmentio/kafka-go with a CloudEvents-style envelope
// shared by the service's producers and consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CloudEvent is the envelope wrapping every message the service produces.
type CloudEvent struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// NewCloudEvent wraps a payload in a CloudEvent envelope.
func NewCloudEvent(source, eventType string, data interface{}) (CloudEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return CloudEvent{
		ID:              uuid.New().String(),
		Source:          source,
		SpecVersion:     "1.0",
		Type:            eventType,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

// ParseCloudEvent decodes a raw message into a CloudEvent envelope.
func ParseCloudEvent(raw []byte) (CloudEvent, error) {
	var event CloudEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return CloudEvent{}, fmt.Errorf("failed to parse cloud event: %w", err)
	}
	return event, nil
}

// ParseData unmarshals the event payload into the given value.
func (e CloudEvent) ParseData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Producer publishes CloudEvents to Kafka topics.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a Producer for the given brokers.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{writer: writer, logger: logger}
}

// PublishEvent publishes a CloudEvent to the given topic, keyed by event ID.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event CloudEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(event.ID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.Type, topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", event.Type),
		zap.String("event_id", event.ID),
	)
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads messages from a topic within a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	logger *zap.Logger
}

// NewConsumer creates a Consumer for the given brokers, group and topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Consume reads messages until the context is cancelled, invoking the
// handler for each. Handler errors are logged and the message is retried on
// the next fetch only if the handler returned before the commit.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, msg kafkago.Message) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("message handler failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
