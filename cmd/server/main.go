package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/groceryfinder/price-monitor/config"
	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/catalog"
	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/handlers"
	"github.com/groceryfinder/price-monitor/internal/middleware"
	"github.com/groceryfinder/price-monitor/internal/monitor"
	"github.com/groceryfinder/price-monitor/internal/pricing"
	"github.com/groceryfinder/price-monitor/internal/source"
	"github.com/groceryfinder/price-monitor/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting price monitor")

	ctx := context.Background()
	cleanup, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer cleanup(ctx)

	clk := clock.System()

	store := pricing.NewStore(pricing.StoreConfig{
		TTL:       cfg.Monitor.CacheTTL,
		Retention: cfg.Monitor.RetentionWindow,
	}, clk)

	alertMgr := alerts.NewManager(alerts.Config{
		ChangeThreshold: cfg.Monitor.ChangeAlertThreshold,
	}, clk, logger, func(a alerts.Alert, p pricing.PricePoint) {
		logger.Info().
			Str("alert_id", a.ID).
			Str("owner_id", a.OwnerID).
			Float64("target_price", a.TargetPrice).
			Float64("price", p.EffectivePrice()).
			Msg("Price alert delivered")
	})

	src := source.NewSimulated(source.SimulatedConfig{
		SaleRate:        cfg.Source.SaleRate,
		InStockRate:     cfg.Source.InStockRate,
		UnavailableRate: cfg.Source.UnavailableRate,
		DriftPct:        cfg.Source.DriftPct,
	}, clk, cfg.Source.Seed)

	mon := monitor.New(store, alertMgr, src, clk, logger, monitor.Config{
		RefreshInterval:      cfg.Monitor.RefreshInterval,
		FetchTimeout:         cfg.Monitor.FetchTimeout,
		TrendWindow:          cfg.Monitor.TrendWindow,
		PredictionHorizon:    cfg.Monitor.PredictionHorizon,
		MaxConcurrentFetches: cfg.Monitor.MaxConcurrentFetches,
	})
	mon.Start()
	defer mon.Stop()

	if cfg.Monitor.PrewatchCatalog {
		for _, s := range catalog.Stores() {
			for _, item := range catalog.Items() {
				mon.Watch(s.ID, item.ID)
			}
		}
		logger.Info().Int("keys", len(mon.Watched())).Msg("Prewatching catalog pairs")
	}

	handlers.Init(mon, alertMgr)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)
	router.Use(middleware.RateLimitMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := router.Group("/internal")
	internal.Use(middleware.ServiceRateLimitMiddleware(50, 100))
	{
		internal.GET("/health", handlers.HealthCheck)

		prices := internal.Group("/prices")
		{
			prices.POST("", handlers.RecordPrice)
			prices.GET("/:storeId/:itemId", handlers.GetLatestPrice)
			prices.GET("/:storeId/:itemId/history", handlers.GetPriceHistory)
			prices.GET("/:storeId/:itemId/stats", handlers.GetPriceStats)
		}

		analysis := internal.Group("/analysis")
		{
			analysis.GET("/:storeId/:itemId/trend", handlers.GetTrend)
			analysis.GET("/:storeId/:itemId/prediction", handlers.GetPrediction)
			analysis.GET("/:storeId/:itemId/recommendation", handlers.GetRecommendation)
		}

		alertRoutes := internal.Group("/alerts")
		{
			alertRoutes.POST("", handlers.CreateAlert)
			alertRoutes.GET("", handlers.ListAlerts)
			alertRoutes.GET("/:id", handlers.GetAlert)
			alertRoutes.DELETE("/:id", handlers.DeleteAlert)
			alertRoutes.PATCH("/:id", handlers.SetAlertActive)
		}

		watch := internal.Group("/watch")
		{
			watch.POST("", handlers.Watch)
			watch.GET("", handlers.ListWatched)
			watch.DELETE("/:storeId/:itemId", handlers.Unwatch)
		}

		internal.GET("/stores", handlers.ListStores)

		items := internal.Group("/items")
		{
			items.GET("/search", handlers.SearchItems)
			items.GET("/:itemId/compare", handlers.CompareItemPrices)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	mon.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "price-monitor").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
