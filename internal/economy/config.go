package economy

import (
	"context"
	"fmt"
	"sync"
	"time"
	"yami-economy/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Config holds the token economy parameters, resolved from the
// economy_configs table with a documented default per missing key.
type Config struct {
	DailyGrantAmount int64 `json:"daily_grant_amount"` // Daily basic income
	DecayRatePercent int64 `json:"decay_rate_percent"` // Demurrage rate, whole percent
	AIConsultCost    int64 `json:"ai_consult_cost"`    // Cost of an AI consultation
	HumanConsultCost int64 `json:"human_consult_cost"` // Cost of a human consultation
	ResponseReward   int64 `json:"response_reward"`    // Reward for answering a consultation
	DailyRewardCap   int64 `json:"daily_reward_cap"`   // Max reward income per wallet per UTC day
	InitialBalance   int64 `json:"initial_balance"`    // Starting balance for new wallets
	MaxBalance       int64 `json:"max_balance"`        // Hard ceiling on any wallet balance
}

// DefaultConfig returns the documented fallback values used when a key is
// absent from the store. They are a design fallback for missing keys only,
// never for store unavailability.
func DefaultConfig() Config {
	return Config{
		DailyGrantAmount: 10,
		DecayRatePercent: 20,
		AIConsultCost:    1,
		HumanConsultCost: 5,
		ResponseReward:   3,
		DailyRewardCap:   15,
		InitialBalance:   10,
		MaxBalance:       100,
	}
}

// EquilibriumBalance is the fixed point of the decay/grant cycle:
// dailyGrantAmount / (decayRatePercent / 100), in integer math.
// With zero decay the balance only grows, so the fixed point is the cap.
func (c Config) EquilibriumBalance() int64 {
	if c.DecayRatePercent <= 0 {
		return c.MaxBalance
	}
	return c.DailyGrantAmount * 100 / c.DecayRatePercent
}

// ConfigProvider is the injectable read path for economy parameters.
// Caching is an explicit policy choice of the provider, not of the engine.
type ConfigProvider interface {
	Economy(ctx context.Context) (Config, error)
}

// StoreConfigProvider resolves parameters from the economy_configs table on
// every call.
type StoreConfigProvider struct {
	db *gorm.DB // Transactional store
}

// NewStoreConfigProvider creates a provider reading from the given store.
func NewStoreConfigProvider(db *gorm.DB) *StoreConfigProvider {
	return &StoreConfigProvider{db: db}
}

// Economy reads all parameter rows and overlays them on the defaults.
func (p *StoreConfigProvider) Economy(ctx context.Context) (Config, error) {
	var rows []domain.EconomyConfig // Parameter rows
	if err := p.db.WithContext(ctx).Find(&rows).Error; err != nil {
		// A dead store must surface as an error, not as silently wrong defaults
		return Config{}, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}
	cfg := DefaultConfig() // Start from documented defaults
	for _, row := range rows {
		// Overlay each known key; unknown keys are ignored
		switch row.Key {
		case domain.CfgDailyGrantAmount:
			cfg.DailyGrantAmount = row.Value
		case domain.CfgDecayRatePercent:
			cfg.DecayRatePercent = row.Value
		case domain.CfgAIConsultCost:
			cfg.AIConsultCost = row.Value
		case domain.CfgHumanConsultCost:
			cfg.HumanConsultCost = row.Value
		case domain.CfgResponseReward:
			cfg.ResponseReward = row.Value
		case domain.CfgDailyRewardCap:
			cfg.DailyRewardCap = row.Value
		case domain.CfgInitialBalance:
			cfg.InitialBalance = row.Value
		case domain.CfgMaxBalance:
			cfg.MaxBalance = row.Value
		}
	}
	return cfg, nil
}

// CachedConfigProvider wraps another provider with a TTL cache. Staleness
// within the TTL is tolerated; admin updates call Invalidate.
type CachedConfigProvider struct {
	inner ConfigProvider // Wrapped provider
	ttl   time.Duration  // How long a fetched config stays fresh

	mu        sync.Mutex // Guards the fields below
	cached    Config     // Last fetched config
	fetchedAt time.Time  // When it was fetched; zero = cold
}

// NewCachedConfigProvider wraps inner with a TTL cache.
func NewCachedConfigProvider(inner ConfigProvider, ttl time.Duration) *CachedConfigProvider {
	return &CachedConfigProvider{inner: inner, ttl: ttl}
}

// Economy returns the cached config while fresh, otherwise refetches.
// A failed refetch on a cold cache propagates the error.
func (p *CachedConfigProvider) Economy(ctx context.Context) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.fetchedAt.IsZero() && time.Since(p.fetchedAt) < p.ttl {
		return p.cached, nil // Still fresh
	}
	cfg, err := p.inner.Economy(ctx)
	if err != nil {
		return Config{}, err
	}
	p.cached = cfg
	p.fetchedAt = time.Now()
	return cfg, nil
}

// Invalidate drops the cached config so the next read hits the store.
func (p *CachedConfigProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchedAt = time.Time{}
}

// StaticConfigProvider always returns a fixed config. Used in tests.
type StaticConfigProvider struct {
	Cfg Config // The config to return
}

// Economy returns the fixed config.
func (p StaticConfigProvider) Economy(context.Context) (Config, error) {
	return p.Cfg, nil
}
