package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Attribution    AttributionConfig
	Tracking       TrackingConfig
	Providers      ProvidersConfig
	RateLimit      RateLimitConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	EventsTopic string   `mapstructure:"events_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttributionConfig bounds how long captured campaign attribution survives.
// WindowDays is the retention of the long-lived record; SessionTTL is the
// rolling lifetime of the session-scoped copy and of all visitor-session
// state (event cache, data layer).
type AttributionConfig struct {
	WindowDays int           `mapstructure:"window_days"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type TrackingConfig struct {
	Source       string `mapstructure:"source"`
	DataLayerCap int    `mapstructure:"data_layer_cap"`
	GTMID        string `mapstructure:"gtm_id"`
}

type ProvidersConfig struct {
	HTTPTimeoutSeconds time.Duration         `mapstructure:"http_timeout_seconds"`
	HubSpot            HubSpotConfig         `mapstructure:"hubspot"`
	Brevo              BrevoConfig           `mapstructure:"brevo"`
	MetaPixel          MetaPixelConfig       `mapstructure:"meta_pixel"`
	GoogleAnalytics    GoogleAnalyticsConfig `mapstructure:"google_analytics"`
	Scheduling         SchedulingConfig      `mapstructure:"scheduling"`
}

// SchedulingConfig points at the booking page embedded on the thank-you
// view. ExtraParams are carried on every decorated link (the embed's theme
// color, for one).
type SchedulingConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	ExtraParams map[string]string `mapstructure:"extra_params"`
}

type HubSpotConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PortalID string `mapstructure:"portal_id"`
	Form1ID  string `mapstructure:"form1_id"`
	Form2ID  string `mapstructure:"form2_id"`
}

type BrevoConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	DefaultListID int    `mapstructure:"default_list_id"`
}

type MetaPixelConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	PixelID     string `mapstructure:"pixel_id"`
	AccessToken string `mapstructure:"access_token"`
}

type GoogleAnalyticsConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	MeasurementID string `mapstructure:"measurement_id"`
	APISecret     string `mapstructure:"api_secret"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
