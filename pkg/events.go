package pkg

import (
	"log/slog"

	"github.com/SAP-F-2025/enrollment-service/internal/config"
	"github.com/SAP-F-2025/enrollment-service/internal/events"
)

// NewEventPublisher selects Kafka when brokers are configured
func NewEventPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, using in-memory event publisher")
		return events.NewInMemoryEventPublisher(logger), nil
	}

	publisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Kafka event publisher initialized", "brokers", cfg.KafkaBrokers)
	return publisher, nil
}
