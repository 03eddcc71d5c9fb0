package api

import (
	"context"                       // Context for Redis operations
	"net/http"                      // HTTP status codes
	"strconv"                       // String conversion
	"time"                          // Time durations
	"yami-economy/internal/domain"  // Importing domain models
	"yami-economy/internal/economy" // Token economy engine
	"yami-economy/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// walletCacheKey builds the redis key for a user's wallet view
func walletCacheKey(userID uint) string {
	return "wallet:user:" + strconv.Itoa(int(userID))
}

// txHistoryPrefix builds the redis key prefix for a user's transaction history pages
func txHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.Itoa(int(userID))
}

// callerWallet resolves the authenticated caller's wallet from the anonymous
// wallet identity carried in the JWT, skipping the user join. Tokens minted
// before the wallet existed carry an empty address and fall back to the
// user-id lookup. Writes the error response itself when no wallet resolves.
func callerWallet(c *gin.Context, db *gorm.DB) (*domain.Wallet, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	// Check if userID exists in context
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	var wallet domain.Wallet // Caller's wallet
	// Prefer the wallet address claim over a user-id query
	if addr, ok := c.Get("walletAddress"); ok && addr.(string) != "" {
		if err := db.Where("address = ?", addr).First(&wallet).Error; err == nil {
			return &wallet, true
		}
	}
	// Fall back to the owning-user lookup
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
		return nil, false
	}
	return &wallet, true
}

// invalidateUserCaches drops a user's cached wallet view and history pages
func invalidateUserCaches(ctx context.Context, rdb *redis.Client, userID uint) {
	_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID))
	_ = utils.DeleteCacheByPrefix(ctx, rdb, txHistoryPrefix(userID))
}

// invalidateWalletOwnerCaches drops the cached views of whoever owns the
// wallet at the given address. Counterparty wallets without an owning user
// have nothing cached.
func invalidateWalletOwnerCaches(ctx context.Context, db *gorm.DB, rdb *redis.Client, address string) {
	var w domain.Wallet
	if err := db.Where("address = ?", address).First(&w).Error; err != nil || w.UserID == nil {
		return
	}
	invalidateUserCaches(ctx, rdb, *w.UserID)
}

// WalletResponse is the wallet view returned to the owner
type WalletResponse struct {
	Wallet            domain.Wallet        `json:"wallet"`             // The wallet after today's cycle ran
	Daily             *economy.DailyResult `json:"daily"`              // Outcome of the lazy daily processing
	RemainingCapacity int64                `json:"remaining_capacity"` // Reward income still earnable today
}

// GetWalletHandler returns the authenticated user's wallet. Reading the
// wallet is the "touch" that lazily runs the daily decay/grant cycle; there
// is no scheduler. A cached response may defer a due cycle by at most the
// cache TTL.
func GetWalletHandler(db *gorm.DB, rdb *redis.Client, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                               // Context for Redis operations
		cacheKey := walletCacheKey(userID.(uint))                 // Cache key for wallet view
		var cached WalletResponse                                 // Cached wallet view
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": cached.Wallet, "daily": cached.Daily, "remaining_capacity": cached.RemainingCapacity, "cached": true})
			return
		}
		// Resolve the caller's wallet through the JWT wallet identity
		wallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		// Run the daily economy cycle for this wallet (at most once per UTC day)
		daily, err := svc.ProcessDailyEconomy(c.Request.Context(), wallet.ID)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// Reload timestamps and balance after processing
		if err := db.First(wallet, wallet.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload wallet"})
			return
		}
		// Compute today's remaining reward capacity
		remaining, err := svc.RemainingRewardCapacity(c.Request.Context(), wallet.ID)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		resp := WalletResponse{Wallet: *wallet, Daily: daily, RemainingCapacity: remaining}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache the wallet view for 60 seconds
		// If the cycle wrote anything, the history pages are stale too
		if daily.Decay.Applied || daily.Grant.Granted {
			_ = utils.DeleteCacheByPrefix(ctx, rdb, txHistoryPrefix(userID.(uint)))
		}
		c.JSON(http.StatusOK, gin.H{"wallet": resp.Wallet, "daily": resp.Daily, "remaining_capacity": resp.RemainingCapacity, "cached": false})
	}
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(db *gorm.DB, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if wallet already exists
		var wallet domain.Wallet
		// Query wallet by user ID
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err == nil {
			// If wallet exists, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet already exists"})
			return
		}
		uid := userID.(uint) // Owning user ID
		// Provision the wallet through the engine so the initial balance is recorded
		created, err := svc.CreateWallet(c.Request.Context(), &uid, domain.WalletTypeHuman)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": created})
	}
}

// TipRequest represents a gas tip request
type TipRequest struct {
	ToAddress string `json:"to_address" binding:"required"` // Recipient wallet address
	Amount    int64  `json:"amount"`                        // Optional tip amount, defaults to 1
}

// TipHandler sends a gas tip to another wallet by address. The tip is the
// double-entry flow: one debit row for the sender and one credit row for the
// recipient.
func TipHandler(db *gorm.DB, rdb *redis.Client, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromUserID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TipRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Resolve the sender's wallet through the JWT wallet identity
		fromWallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		// Execute the tip through the engine
		records, err := svc.GasTip(c.Request.Context(), fromWallet.ID, req.ToAddress, req.Amount)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// Log successful tip
		logrus.WithFields(logrus.Fields{
			"from_user_id": fromUserID,                      // Sender user ID
			"to_address":   req.ToAddress,                   // Recipient address
			"amount":       req.Amount,                      // Requested amount
			"type":         domain.TxGasTipReceived,         // Transaction type
			"timestamp":    time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Gas tip transaction") // Log tip success
		// Both parties' cached views are stale now
		ctx := context.Background()
		invalidateUserCaches(ctx, rdb, fromUserID.(uint))
		invalidateWalletOwnerCaches(ctx, db, rdb, req.ToAddress)
		// Return the created transaction records
		c.JSON(http.StatusOK, gin.H{"message": "Tip sent", "transactions": records})
	}
}

// PostRewardRequest represents a payment to a post owner
type PostRewardRequest struct {
	OwnerAddress string `json:"owner_address" binding:"required"` // Post owner's wallet address
	Amount       int64  `json:"amount"`                           // Optional amount, defaults to 1
}

// PostRewardHandler pays the owner of a post for engagement. Single-record
// bookkeeping: only the recipient's credit row is written.
func PostRewardHandler(db *gorm.DB, rdb *redis.Client, svc *economy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromUserID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req PostRewardRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Resolve the sender's wallet through the JWT wallet identity
		fromWallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		// Execute the payment through the engine
		records, err := svc.Transfer(c.Request.Context(), fromWallet.ID, req.OwnerAddress, req.Amount, domain.TxPostReward)
		if err != nil {
			respondEconomyError(c, err)
			return
		}
		// Both parties' cached views are stale now
		ctx := context.Background()
		invalidateUserCaches(ctx, rdb, fromUserID.(uint))
		invalidateWalletOwnerCaches(ctx, db, rdb, req.OwnerAddress)
		c.JSON(http.StatusOK, gin.H{"message": "Reward sent", "transactions": records})
	}
}

// GetTransactionHistoryHandler returns all transactions for the authenticated user's wallet
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Resolve the caller's wallet through the JWT wallet identity
		wallet, ok := callerWallet(c, db)
		if !ok {
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		offset := (page - 1) * pageSize // Calculate offset
		// Redis cache key
		cacheKey := txHistoryPrefix(userID.(uint)) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		var total int64 // Total count of transactions
		// Count total transactions for pagination
		if err := db.Model(&domain.Transaction{}).
			Where("wallet_id = ?", wallet.ID).
			Count(&total).Error; err != nil {
			// If counting fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var transactions []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions
		if err := db.Where("wallet_id = ?", wallet.ID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": transactions, // List of transactions
			"page":         page,         // Current page
			"page_size":    pageSize,     // Page size
			"total":        total,        // Total transactions
			"total_pages":  totalPages,   // Total pages
			"cached":       false,        // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}
