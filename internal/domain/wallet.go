package domain

import "time"

// Wallet types
const (
	WalletTypeHuman = "HUMAN" // Wallet owned by a human user
	WalletTypeAI    = "AI"    // Wallet owned by an AI persona
)

// Wallet Model
type Wallet struct {
	ID               uint       `gorm:"primaryKey" json:"id"`                              // Primary key
	Address          string     `gorm:"uniqueIndex;size:64;not null" json:"address"`       // Externally visible anonymous identity
	Balance          int64      `gorm:"not null;default:0" json:"balance"`                 // Token balance, 0 <= balance <= max
	WalletType       string     `gorm:"size:16;not null;default:HUMAN" json:"wallet_type"` // HUMAN or AI
	LastDailyGrantAt *time.Time `json:"last_daily_grant_at"`                               // Last time the daily grant was applied (UTC)
	LastDecayAt      *time.Time `json:"last_decay_at"`                                     // Last time demurrage was applied (UTC)
	UserID           *uint      `gorm:"uniqueIndex" json:"user_id,omitempty"`              // Optional owning user
}
