package domain

// EconomyConfig keys
const (
	CfgDailyGrantAmount = "DAILY_GRANT_AMOUNT" // Daily basic income amount
	CfgDecayRatePercent = "DECAY_RATE_PERCENT" // Demurrage rate, whole percent
	CfgAIConsultCost    = "AI_CONSULT_COST"    // Cost of an AI consultation
	CfgHumanConsultCost = "HUMAN_CONSULT_COST" // Cost of a human consultation
	CfgResponseReward   = "RESPONSE_REWARD"    // Reward for answering a consultation
	CfgDailyRewardCap   = "DAILY_REWARD_CAP"   // Max reward income per wallet per UTC day
	CfgInitialBalance   = "INITIAL_BALANCE"    // Starting balance for new wallets
	CfgMaxBalance       = "MAX_BALANCE"        // Hard ceiling on any wallet balance
)

// EconomyConfig Model: versioned key/value parameter store for the token economy
type EconomyConfig struct {
	Key         string `gorm:"primaryKey;size:64" json:"key"` // Unique parameter key
	Value       int64  `gorm:"not null" json:"value"`         // Integer parameter value, no fractional tokens
	Description string `gorm:"size:255" json:"description"`   // Human-readable meaning of the parameter
}
