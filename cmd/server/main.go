// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/imi-licensing/internal/chain"
	"github.com/javajoker/imi-licensing/internal/config"
	"github.com/javajoker/imi-licensing/internal/database"
	"github.com/javajoker/imi-licensing/internal/i18n"
	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/metrics"
	"github.com/javajoker/imi-licensing/internal/middleware"
	"github.com/javajoker/imi-licensing/internal/registry"
	"github.com/javajoker/imi-licensing/internal/router"
	"github.com/javajoker/imi-licensing/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := newLogger(cfg.Log)
	logrus.SetFormatter(logger.Formatter)
	logrus.SetLevel(logger.Level)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logger.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Storage: postgres when enabled, otherwise state lives in memory
	var (
		db     *gorm.DB
		store  services.StateStore
		outbox services.IntentOutbox
	)
	if cfg.Database.Enabled {
		db, err = database.Initialize(cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer database.Close(db)

		if err := database.RunMigrations(db); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		if err := database.SeedSettings(db, cfg.Contract.PlatformFee); err != nil {
			logger.WithError(err).Fatal("Failed to seed contract settings")
		}

		gormStore := services.NewGormStore(db)
		store, outbox = gormStore, gormStore
	} else {
		logger.Warn("Database disabled, contract state is kept in memory")
		memoryStore := services.NewMemoryStore()
		store, outbox = memoryStore, memoryStore
	}

	reg, err := newRegistry(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize registry")
	}

	clock, err := newClock(cfg.Contract)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize block clock")
	}

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	licensingService, err := services.NewLicensingService(ctx, services.LicensingServiceConfig{
		Registry:    reg,
		Store:       store,
		Owner:       licensing.Principal(cfg.Contract.Owner),
		PlatformFee: cfg.Contract.PlatformFee,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize licensing service")
	}

	// Settle value intents in the background
	var gateway services.PaymentGateway = services.LoggingGateway{Logger: logger}
	if cfg.Payment.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.Currency)
	} else {
		logger.Warn("Stripe key not configured, intents are settled without moving funds")
	}
	custody := services.NewCustodyService(outbox, gateway, cfg.Payment.SettleBatchSize, m, logger)
	go custody.Run(ctx, cfg.Payment.SettleInterval)

	archive, err := services.NewArchiveService(licensingService, cfg.AWS, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize snapshot archive")
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	defer limiter.Stop()

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:      cfg,
		Licensing:   licensingService,
		Clock:       clock,
		Intents:     outbox,
		Archive:     archive,
		Metrics:     m,
		RateLimiter: limiter,
		Logger:      logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"owner":    cfg.Contract.Owner,
			"registry": cfg.Registry.Mode,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop settlement before draining connections
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newRegistry(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (licensing.Registry, error) {
	switch cfg.Registry.Mode {
	case "database":
		return registry.NewDatabase(db, logger), nil
	case "allow_all":
		logger.Warn("Registry running in allow_all mode")
		return registry.AllowAll(), nil
	default:
		static, err := registry.LoadStatic(cfg.Registry.File)
		if err != nil {
			return nil, err
		}
		return static, nil
	}
}

// newClock derives block heights from wall time when an interval is set.
// Without one the height stays at zero.
func newClock(cfg config.ContractConfig) (chain.Clock, error) {
	if cfg.BlockInterval == 0 {
		return chain.NewManual(0), nil
	}
	genesis := cfg.BlockGenesis
	if genesis.IsZero() {
		genesis = time.Now()
	}
	return chain.NewInterval(genesis, cfg.BlockInterval)
}
