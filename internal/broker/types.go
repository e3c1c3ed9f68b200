package broker

import (
	"context"
	"funnel/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.EventEnvelope) error
	Close() error
}
