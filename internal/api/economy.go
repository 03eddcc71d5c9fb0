package api

import (
	"context"                       // Context for Redis operations
	"net/http"                      // HTTP status codes
	"time"                          // Time durations
	"yami-economy/internal/domain"  // Importing domain models
	"yami-economy/internal/economy" // Token economy engine
	"yami-economy/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// economyConfigCacheKey is the redis key for the public economy config view
const economyConfigCacheKey = "economy:config"

// GetEconomyConfigHandler returns the current economy parameters and the
// equilibrium balance they imply
func GetEconomyConfigHandler(rdb *redis.Client, provider economy.ConfigProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Config      economy.Config `json:"config"`      // Current parameters
			Equilibrium int64          `json:"equilibrium"` // Fixed point of the decay/grant cycle
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, economyConfigCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"config": cached.Config, "equilibrium": cached.Equilibrium, "cached": true})
			return
		}
		// Resolve from the parameter store
		cfg, err := provider.Economy(c.Request.Context())
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		resp := gin.H{"config": cfg, "equilibrium": cfg.EquilibriumBalance(), "cached": false}
		_ = utils.SetCache(ctx, rdb, economyConfigCacheKey, resp, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

// GetRewardCapacityHandler returns today's reward income and remaining capacity
func GetRewardCapacityHandler(db *gorm.DB, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Resolve the caller's wallet through the JWT wallet identity
		wallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		// Today's reward income from the transaction log
		earned, err := svc.TodayRewardEarned(c.Request.Context(), wallet.ID)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// How much reward income is still allowed today
		remaining, err := svc.RemainingRewardCapacity(c.Request.Context(), wallet.ID)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"earned_today": earned, "remaining_capacity": remaining})
	}
}

// ConsultRequest represents a consultation purchase
type ConsultRequest struct {
	Kind             string `json:"kind" binding:"required,oneof=ai human"` // Consultation kind
	ResponderAddress string `json:"responder_address"`                      // Human responder's wallet, required for kind=human rewards
}

// ConsultHandler charges the asker the configured consultation cost and, for
// human consultations, issues the capped response reward to the responder
func ConsultHandler(db *gorm.DB, rdb *redis.Client, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ConsultRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Resolve the asker's wallet through the JWT wallet identity
		wallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		cfg, err := svc.Config(c.Request.Context()) // Current economy parameters
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// Resolve cost and transaction type by consultation kind
		cost, txType := cfg.AIConsultCost, domain.TxAIConsult
		if req.Kind == "human" {
			cost, txType = cfg.HumanConsultCost, domain.TxHumanConsult
		}
		// Resolve the responder before charging so a bad address costs nothing
		var responder *domain.Wallet
		if req.Kind == "human" && req.ResponderAddress != "" {
			var w domain.Wallet
			if err := db.Where("address = ?", req.ResponderAddress).First(&w).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Responder wallet not found"})
				return
			}
			responder = &w
		}
		// Debit the consultation cost
		rec, err := svc.Charge(c.Request.Context(), wallet.ID, cost, txType)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		resp := gin.H{"message": "Consultation charged", "transaction": rec}
		ctx := context.Background()
		// Reward the human responder, clamped by the daily reward cap
		if responder != nil {
			rewarded, err := svc.IssueReward(c.Request.Context(), responder.ID, domain.TxResponseReward)
			if err != nil {
				respondEconomyError(c, err)
				return
			}
			resp["responder_rewarded"] = rewarded
			// A rewarded responder's cached views are stale too
			if responder.UserID != nil {
				invalidateUserCaches(ctx, rdb, *responder.UserID)
			}
		}
		// Invalidate the asker's cached views
		invalidateUserCaches(ctx, rdb, userID.(uint))
		c.JSON(http.StatusOK, resp)
	}
}
