package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"funnel/internal/constants"
)

// SessionEventCache keeps the CRM projection of the latest event of each
// kind in a session-scoped Redis hash, so a later lead submission can attach
// everything the visitor did before converting.
type SessionEventCache struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewSessionEventCache(client *redis.Client, sessionTTL time.Duration) *SessionEventCache {
	return &SessionEventCache{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

// Store overwrites the cached projection for the event's kind.
func (c *SessionEventCache) Store(ctx context.Context, visitorID string, kind EventKind, props map[string]string) error {
	body, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to marshal event properties: %w", err)
	}

	key := constants.KeyPrefixCRMEvents + visitorID

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, string(kind), body)
	pipe.Expire(ctx, key, c.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store event properties: %w", err)
	}

	return nil
}

// EventProperties merges the cached projections of all kinds into a single
// flat property map.
func (c *SessionEventCache) EventProperties(ctx context.Context, visitorID string) (map[string]string, error) {
	entries, err := c.client.HGetAll(ctx, constants.KeyPrefixCRMEvents+visitorID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event properties: %w", err)
	}

	merged := map[string]string{}
	for _, raw := range entries {
		var props map[string]string
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			continue
		}
		for key, value := range props {
			merged[key] = value
		}
	}

	return merged, nil
}

// Clear drops the cached projections for a visitor.
func (c *SessionEventCache) Clear(ctx context.Context, visitorID string) error {
	if err := c.client.Del(ctx, constants.KeyPrefixCRMEvents+visitorID).Err(); err != nil {
		return fmt.Errorf("failed to clear event properties: %w", err)
	}
	return nil
}
