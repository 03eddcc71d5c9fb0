package domain

import "time"

// Transaction types
const (
	TxInitialGrant   = "INITIAL_GRANT"    // Starting balance credit on wallet creation
	TxDailyGrant     = "DAILY_GRANT"      // Daily basic income credit
	TxDecay          = "DECAY"            // Daily demurrage debit
	TxGasTipSent     = "GAS_TIP_SENT"     // Tip debit on the sender's side
	TxGasTipReceived = "GAS_TIP_RECEIVED" // Tip credit on the recipient's side
	TxPostReward     = "POST_REWARD"      // Payment credited to a post owner
	TxResponseReward = "RESPONSE_REWARD"  // Reward credited for answering a consultation
	TxAIConsult      = "AI_CONSULT"       // Cost debit for consulting the AI
	TxHumanConsult   = "HUMAN_CONSULT"    // Cost debit for consulting a human
	TxPurchasePend   = "PURCHASE_PENDING" // Off-chain purchase stub, never settled here
)

// RewardTxTypes are the transaction types counted against the daily reward cap.
var RewardTxTypes = []string{TxResponseReward, TxPostReward}

// Transaction Model
type Transaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`               // Primary key
	WalletID       *uint     `gorm:"index" json:"wallet_id"`             // Wallet whose balance this row affects
	CounterpartyID *uint     `json:"counterparty_id,omitempty"`          // Other wallet involved, if any
	Amount         int64     `gorm:"not null" json:"amount"`             // Signed: negative = debit, positive = credit
	Type           string    `gorm:"size:32;not null;index" json:"type"` // Transaction type constant
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
