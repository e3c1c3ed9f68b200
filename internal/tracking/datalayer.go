package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"funnel/internal/constants"
)

// DataLayer accumulates flattened events per visitor in a capped Redis list
// with a rolling session TTL. Newest entries first.
type DataLayer struct {
	client     *redis.Client
	cap        int
	sessionTTL time.Duration
}

func NewDataLayer(client *redis.Client, cap int, sessionTTL time.Duration) *DataLayer {
	return &DataLayer{
		client:     client,
		cap:        cap,
		sessionTTL: sessionTTL,
	}
}

func (d *DataLayer) Push(ctx context.Context, visitorID string, entry map[string]any) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal data layer entry: %w", err)
	}

	key := constants.KeyPrefixDataLayer + visitorID

	pipe := d.client.TxPipeline()
	pipe.LPush(ctx, key, body)
	pipe.LTrim(ctx, key, 0, int64(d.cap-1))
	pipe.Expire(ctx, key, d.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push data layer entry: %w", err)
	}

	return nil
}

func (d *DataLayer) Entries(ctx context.Context, visitorID string) ([]map[string]any, error) {
	raw, err := d.client.LRange(ctx, constants.KeyPrefixDataLayer+visitorID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read data layer: %w", err)
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		var entry map[string]any
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
