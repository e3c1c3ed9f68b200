package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"funnel/internal/constants"
)

// LoadConfig builds the configuration from an optional YAML file plus
// environment variables. Every provider identifier ships with a fallback
// default so the funnel keeps working against the production accounts when
// no environment is supplied.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigType("yaml")
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", "10s")
	viper.SetDefault("server.write_timeout_seconds", "10s")

	viper.SetDefault("database.redis.host", "localhost")
	viper.SetDefault("database.redis.port", 6379)
	viper.SetDefault("database.redis.db", 0)

	viper.SetDefault("broker.kafka.events_topic", constants.DefaultEventsTopic)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("attribution.window_days", constants.DefaultAttributionWindowDays)
	viper.SetDefault("attribution.session_ttl", constants.DefaultSessionTTL)

	viper.SetDefault("tracking.source", "funnel-service")
	viper.SetDefault("tracking.data_layer_cap", constants.DefaultDataLayerCap)
	viper.SetDefault("tracking.gtm_id", "GTM-5N39QMDC")

	viper.SetDefault("providers.http_timeout_seconds", "10s")

	viper.SetDefault("providers.hubspot.base_url", "https://api.hsforms.com")
	viper.SetDefault("providers.hubspot.portal_id", "146982667")
	viper.SetDefault("providers.hubspot.form1_id", "3a3fb4e1-de3c-40ad-a09e-d0cd988cebc3")
	viper.SetDefault("providers.hubspot.form2_id", "d2217c9d-3259-4524-a5a3-0ef6a7a3b2fe")

	viper.SetDefault("providers.brevo.base_url", "https://api.brevo.com")
	viper.SetDefault("providers.brevo.default_list_id", 2)

	viper.SetDefault("providers.meta_pixel.base_url", "https://graph.facebook.com/v19.0")
	viper.SetDefault("providers.meta_pixel.pixel_id", "4277236155853060")

	viper.SetDefault("providers.google_analytics.base_url", "https://www.google-analytics.com")
	viper.SetDefault("providers.google_analytics.measurement_id", "G-CC9W51TKC8")

	viper.SetDefault("providers.scheduling.base_url", "https://calendly.com/4blocksdevs/30min")
	viper.SetDefault("providers.scheduling.extra_params", map[string]string{"primary_color": "9ED95D"})

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "60s")
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 3)
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.events_topic", "BROKER_KAFKA_EVENTS_TOPIC")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("attribution.window_days", "ATTRIBUTION_WINDOW_DAYS")
	viper.BindEnv("attribution.session_ttl", "ATTRIBUTION_SESSION_TTL")

	viper.BindEnv("tracking.gtm_id", "GTM_ID")

	viper.BindEnv("providers.hubspot.portal_id", "HUBSPOT_PORTAL_ID")
	viper.BindEnv("providers.hubspot.form1_id", "HUBSPOT_FORM_ID")
	viper.BindEnv("providers.hubspot.form2_id", "HUBSPOT_FORM_ID_2")

	viper.BindEnv("providers.brevo.api_key", "BREVO_API_KEY")
	viper.BindEnv("providers.brevo.default_list_id", "BREVO_LIST_ID")

	viper.BindEnv("providers.meta_pixel.pixel_id", "META_PIXEL_ID")
	viper.BindEnv("providers.meta_pixel.access_token", "META_CAPI_ACCESS_TOKEN")

	viper.BindEnv("providers.google_analytics.measurement_id", "GA_MEASUREMENT_ID")
	viper.BindEnv("providers.google_analytics.api_secret", "GA_API_SECRET")

	viper.BindEnv("providers.scheduling.base_url", "SCHEDULING_URL")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
