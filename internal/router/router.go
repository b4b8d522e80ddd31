// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/imi-licensing/internal/chain"
	"github.com/javajoker/imi-licensing/internal/config"
	"github.com/javajoker/imi-licensing/internal/handlers"
	"github.com/javajoker/imi-licensing/internal/metrics"
	"github.com/javajoker/imi-licensing/internal/middleware"
	"github.com/javajoker/imi-licensing/internal/services"
	"github.com/javajoker/imi-licensing/internal/utils"
)

const Version = "1.0.0"

type Dependencies struct {
	Config      *config.Config
	Licensing   *services.LicensingService
	Clock       chain.Clock
	Intents     handlers.IntentLister
	Archive     handlers.SnapshotExporter
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	Logger      *logrus.Logger
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Initialize handlers
	licensingHandler := handlers.NewLicensingHandler(deps.Licensing, deps.Clock)
	adminHandler := handlers.NewAdminHandler(deps.Licensing, deps.Clock, deps.Intents, deps.Archive)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"version":      Version,
			"block_height": deps.Clock.Height(),
		})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Middleware()
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		agreements := v1.Group("/agreements")
		{
			agreements.GET("/:id", middleware.OptionalAuth(), limit, licensingHandler.GetAgreement)
			agreements.GET("/:id/royalties/:recipient", middleware.OptionalAuth(), limit, licensingHandler.GetRoyaltyRecipient)
			agreements.POST("", middleware.AuthRequired(), limit, licensingHandler.CreateAgreement)
			agreements.POST("/:id/licenses", middleware.AuthRequired(), limit, licensingHandler.IssueLicense)
			agreements.PUT("/:id/royalties/:recipient", middleware.AuthRequired(), limit, licensingHandler.SetRoyaltyRecipient)
		}

		licenses := v1.Group("/licenses")
		{
			licenses.GET("/:id", middleware.OptionalAuth(), limit, licensingHandler.GetLicense)
			licenses.GET("/:id/verify", middleware.OptionalAuth(), limit, licensingHandler.VerifyLicense)
			licenses.POST("/:id/transfer", middleware.AuthRequired(), limit, licensingHandler.TransferLicense)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), limit)
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/platform-fee", adminHandler.SetPlatformFee)
			admin.GET("/intents", adminHandler.ListIntents)
			admin.POST("/snapshots", adminHandler.ExportSnapshot)
		}
	}

	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-Total-Count", "X-Total-Pages"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowCredentials = true
	return c
}
