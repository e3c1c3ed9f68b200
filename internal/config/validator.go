package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Database.Redis); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateAttribution(cfg.Attribution); err != nil {
		errors = append(errors, err)
	}

	if err := validateTracking(cfg.Tracking); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

// validateBroker: the event bus is optional. No brokers means the bus leg
// of the fanout is disabled, not a startup failure.
func validateBroker(cfg BrokerConfig) error {
	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.EventsTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.events_topic",
			Message: "events topic is required when brokers are configured",
		}
	}

	return nil
}

func validateAttribution(cfg AttributionConfig) error {
	if cfg.WindowDays <= 0 {
		return &ValidationError{
			Field:   "attribution.window_days",
			Message: fmt.Sprintf("attribution window must be positive, got %d", cfg.WindowDays),
		}
	}

	if cfg.SessionTTL <= 0 {
		return &ValidationError{
			Field:   "attribution.session_ttl",
			Message: "session TTL must be positive",
		}
	}

	return nil
}

func validateTracking(cfg TrackingConfig) error {
	if cfg.DataLayerCap <= 0 {
		return &ValidationError{
			Field:   "tracking.data_layer_cap",
			Message: fmt.Sprintf("data layer cap must be positive, got %d", cfg.DataLayerCap),
		}
	}

	return nil
}
