package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"funnel/internal/attribution"
	"funnel/internal/brevo"
	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/crm"
	"funnel/internal/lead"
	"funnel/internal/logger"
	"funnel/internal/sink"
	"funnel/internal/tracking"
	"funnel/pkg/bootstrap"
	"funnel/pkg/circuitbreaker"
	"funnel/pkg/health"
	"funnel/pkg/metrics"
	"funnel/pkg/middleware"
	"funnel/pkg/ratelimit"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	base        *bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redisClient *redis.Client
	server      *http.Server
	router      *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.redisClient = redisClient

	if err := a.base.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		metrics.RegisterRateLimitMetrics()
		a.logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	metrics.RegisterFunnelMetrics()
	metrics.RegisterLeadMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	httpClient := &http.Client{Timeout: a.config.Providers.HTTPTimeoutSeconds}

	attribStore := attribution.NewStore(attribution.NewRepository(a.redisClient), a.config.Attribution, a.logger)
	dataLayer := tracking.NewDataLayer(a.redisClient, a.config.Tracking.DataLayerCap, a.config.Attribution.SessionTTL)
	eventCache := tracking.NewSessionEventCache(a.redisClient, a.config.Attribution.SessionTTL)

	tracker := tracking.NewTracker(
		attribStore,
		a.adPixelSink(httpClient),
		a.analyticsSink(httpClient),
		sink.NewCrmPropertySink(eventCache),
		a.base.Producer,
		dataLayer,
		a.config.Tracking,
		a.config.Broker.Kafka.EventsTopic,
		a.logger,
	)

	crmClient := crm.NewClient(a.config.Providers.HubSpot, httpClient, a.breaker("hubspot"), a.logger)
	marketingClient := brevo.NewClient(a.config.Providers.Brevo, httpClient, a.breaker("brevo"), a.logger)
	leadService := lead.NewService(crmClient, marketingClient, attribStore, eventCache, a.logger)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.VisitorIDMiddleware())

	attribution.NewHandler(attribStore, dataLayer, a.config.Providers.Scheduling, a.logger).RegisterRoutes(v1)
	tracking.NewHandler(tracker, leadService, a.logger).RegisterRoutes(v1)
	lead.NewHandler(leadService, a.logger).RegisterRoutes(v1)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redisClient))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

// adPixelSink returns the Conversions API sink when a token is configured,
// otherwise a noop so the fanout keeps its shape.
func (a *App) adPixelSink(httpClient *http.Client) tracking.AdPixelSink {
	cfg := a.config.Providers.MetaPixel
	if cfg.AccessToken == "" || cfg.PixelID == "" {
		a.logger.Infow("Ad pixel sink disabled, no access token configured")
		return sink.NoopAdPixelSink{}
	}
	return sink.NewMetaPixelSink(cfg, httpClient, a.breaker("meta_pixel"), a.logger)
}

func (a *App) analyticsSink(httpClient *http.Client) tracking.AnalyticsSink {
	cfg := a.config.Providers.GoogleAnalytics
	if cfg.APISecret == "" || cfg.MeasurementID == "" {
		a.logger.Infow("Analytics sink disabled, no api secret configured")
		return sink.NoopAnalyticsSink{}
	}
	return sink.NewAnalyticsSink(cfg, httpClient, a.breaker("analytics"), a.logger)
}

func (a *App) breaker(name string) *circuitbreaker.Wrapper {
	if !a.config.CircuitBreaker.Enabled {
		return nil
	}
	cbCfg := a.config.CircuitBreaker
	return circuitbreaker.NewWrapper(circuitbreaker.Config{
		Name:        name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cbCfg.MinRequests && failureRatio >= cbCfg.FailureRatio
		},
	})
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	errs = append(errs, a.base.ShutdownBroker()...)
	errs = append(errs, a.dbConnector.ShutdownDatabases(a.redisClient)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
