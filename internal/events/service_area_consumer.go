package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dropme-cab/service-rides/internal/domain/trip"
	"github.com/dropme-cab/service-rides/internal/kafka"
)

// ServiceAreaConsumer listens to admin service-area updates and swaps the
// active eligibility rules without a restart.
type ServiceAreaConsumer struct {
	consumer *kafka.Consumer
	rules    *trip.RuleSet
	logger   *zap.Logger
}

// NewServiceAreaConsumer creates a new ServiceAreaConsumer.
func NewServiceAreaConsumer(
	brokers []string,
	groupID string,
	rules *trip.RuleSet,
	logger *zap.Logger,
) *ServiceAreaConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicServiceArea, logger)
	return &ServiceAreaConsumer{
		consumer: consumer,
		rules:    rules,
		logger:   logger,
	}
}

// Start begins consuming service-area events. This blocks until the context is cancelled.
func (c *ServiceAreaConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ServiceAreaConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ServiceAreaConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from service-area topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if cloudEvent.Type != ServiceAreaUpdated {
		c.logger.Debug("ignoring unhandled service-area event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var evt ServiceAreaUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse ServiceAreaUpdatedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.rules.Replace(trip.RulesConfig{
		OutstationThresholdKm: evt.OutstationThresholdKm,
		Area: trip.AreaConfig{
			AllowedCities: evt.AllowedCities,
			AllowedStates: evt.AllowedStates,
		},
		OutstationDisallowed: evt.OutstationDisallowed,
	})

	c.logger.Info("service-area rules updated",
		zap.Float64("outstation_threshold_km", evt.OutstationThresholdKm),
		zap.String("allowed_cities", evt.AllowedCities),
		zap.String("allowed_states", evt.AllowedStates),
	)
	return nil
}
