package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel/internal/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultEventsTopic, cfg.Broker.Kafka.EventsTopic)
	assert.Equal(t, constants.DefaultAttributionWindowDays, cfg.Attribution.WindowDays)
	assert.Equal(t, constants.DefaultSessionTTL, cfg.Attribution.SessionTTL)
	assert.Equal(t, constants.DefaultDataLayerCap, cfg.Tracking.DataLayerCap)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeoutSeconds)
}
