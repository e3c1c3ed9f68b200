package bootstrap

import (
	"context"
	"fmt"

	"funnel/internal/broker"
	"funnel/internal/config"
	"funnel/internal/logger"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker wires the event bus producer. When no brokers are configured the
// bus is disabled and a no-op producer is installed instead.
func (b *Base) InitBroker() error {
	if len(b.Config.Broker.Kafka.Brokers) == 0 {
		b.Logger.Info("No Kafka brokers configured, event bus disabled")
		b.Producer = broker.NoopProducer{}
		return nil
	}

	b.Producer = broker.NewKafkaProducer(b.Config.Broker.Kafka, b.Logger)
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
