package main

import (
	"context"                       // context package is needed for Redis operations
	"log"                           // log package is needed for logging
	"time"                          // Time durations
	"yami-economy/internal/api"     // Custom package for API handlers
	"yami-economy/internal/config"  // Custom package for configuration
	"yami-economy/internal/economy" // Token economy engine
	"yami-economy/internal/middleware"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Economy config provider with an explicit TTL caching policy
	configCache := economy.NewCachedConfigProvider(
		economy.NewStoreConfigProvider(db),
		time.Duration(cfg.ConfigTTLSecs)*time.Second,
	)
	// The economy engine: the only writer of wallet balances
	econ := economy.NewService(db, configCache)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db, econ))      // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Public economy parameters
	r.GET("/economy/config", api.GetEconomyConfigHandler(redisClient, configCache))

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.POST("", api.CreateWalletHandler(db, econ))                             // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(db, redisClient, econ))                    // Get wallet endpoint (runs the daily cycle)
	walletGroup.POST("/tip", api.TipHandler(db, redisClient, econ))                     // Gas tip endpoint
	walletGroup.POST("/post-reward", api.PostRewardHandler(db, redisClient, econ))      // Pay a post owner endpoint
	walletGroup.GET("/rewards", api.GetRewardCapacityHandler(db, econ))                 // Reward capacity endpoint
	walletGroup.POST("/consult", api.ConsultHandler(db, redisClient, econ))             // Consultation purchase endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(db, redisClient)) // Transaction history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))                                      // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))                        // List transactions endpoint
	adminGroup.PUT("/economy/config/:key", api.UpdateEconomyConfigHandler(db, redisClient, configCache)) // Update economy parameter endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
