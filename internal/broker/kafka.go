package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/pkg/metrics"
	"funnel/pkg/models"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.EventEnvelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		metrics.BusPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(msg.ID),
			Value: body,
			Time:  time.Now(),
		},
	)

	if err != nil {
		metrics.BusPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.BusPublishTotal.WithLabelValues("success").Inc()
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NoopProducer stands in when no brokers are configured; the bus leg of the
// fanout is simply skipped.
type NoopProducer struct{}

func (NoopProducer) Publish(ctx context.Context, topic string, msg models.EventEnvelope) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
