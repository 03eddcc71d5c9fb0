package api

import (
	"errors"                        // Sentinel error matching
	"net/http"                      // HTTP status codes
	"yami-economy/internal/economy" // Token economy engine

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondEconomyError maps an engine error to a distinct HTTP response.
// Insufficient balance and self-transfer get specific messages so users
// understand why a transfer was rejected.
func respondEconomyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, economy.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient wallet not found"})
	case errors.Is(err, economy.ErrSelfTransfer):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot transfer to your own wallet"})
	case errors.Is(err, economy.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
	case errors.Is(err, economy.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be a positive integer"})
	case errors.Is(err, economy.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Please retry the request"})
	case errors.Is(err, economy.ErrConfigUnavailable):
		logrus.WithField("error", err.Error()).Error("Economy config unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Economy temporarily unavailable"})
	default:
		logrus.WithField("error", err.Error()).Error("Economy operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}
