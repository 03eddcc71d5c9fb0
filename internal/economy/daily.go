package economy

import (
	"context"
	"fmt"
	"time"
	"yami-economy/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// DecayStep reports the outcome of the demurrage step.
type DecayStep struct {
	Applied bool  `json:"applied"` // Whether decay ran this call
	Amount  int64 `json:"amount"`  // Applied delta, >= 0; the sign lives in the transaction row
}

// GrantStep reports the outcome of the basic income step.
type GrantStep struct {
	Granted bool  `json:"granted"` // Whether the grant ran this call
	Amount  int64 `json:"amount"`  // Credited delta after clamping at MaxBalance
}

// DailyResult is the outcome of one ProcessDailyEconomy call.
type DailyResult struct {
	Decay        DecayStep `json:"decay"`         // Demurrage step outcome
	Grant        GrantStep `json:"grant"`         // Basic income step outcome
	FinalBalance int64     `json:"final_balance"` // Wallet balance after both steps
}

// decayAmount is floor(balance * rate / 100). Integer division floors for
// non-negative balances, and balances are never negative.
func decayAmount(balance, ratePercent int64) int64 {
	return balance * ratePercent / 100
}

// clampedCredit is the portion of a credit that fits under the balance
// ceiling. The remainder is burned, never refunded.
func clampedCredit(balance, credit, maxBalance int64) int64 {
	if balance+credit > maxBalance {
		credit = maxBalance - balance
	}
	if credit < 0 {
		credit = 0
	}
	return credit
}

// ProcessDailyEconomy applies at most one decay and at most one grant to the
// wallet per UTC calendar day, decay strictly first so demurrage acts on
// yesterday's balance before today's income lands. It is invoked lazily on
// every wallet touch; there is no scheduler. Calls on a day whose cycle has
// already run are no-ops with Applied/Granted false.
//
// A wallet dormant for several days catches up with exactly one decay and
// one grant, never one per missed day. That single-day catch-up is the
// economy's intended steady-state behavior, not an approximation.
func (s *Service) ProcessDailyEconomy(ctx context.Context, walletID uint) (*DailyResult, error) {
	cfg, err := s.config.Economy(ctx)
	if err != nil {
		return nil, err
	}
	w, err := s.loadWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	res := &DailyResult{FinalBalance: w.Balance}

	// Decay step: floor(balance * rate / 100) of the pre-grant balance.
	if cycleDue(w.LastDecayAt, now) {
		amount := decayAmount(w.Balance, cfg.DecayRatePercent)
		applied, err := s.applyDecay(ctx, w, amount, now)
		if err != nil {
			return nil, err
		}
		if applied {
			w.Balance -= amount
			res.Decay = DecayStep{Applied: true, Amount: amount}
			logrus.WithFields(logrus.Fields{
				"wallet_id": w.ID,
				"amount":    amount,
				"balance":   w.Balance,
				"type":      domain.TxDecay,
			}).Info("Daily decay applied")
		}
	}

	// Grant step: credit clamped at MaxBalance; the transaction row records
	// the delta actually applied so balance == sum(amounts) stays exact.
	if cycleDue(w.LastDailyGrantAt, now) {
		delta := clampedCredit(w.Balance, cfg.DailyGrantAmount, cfg.MaxBalance)
		granted, err := s.applyGrant(ctx, w, delta, now)
		if err != nil {
			return nil, err
		}
		if granted {
			w.Balance += delta
			res.Grant = GrantStep{Granted: true, Amount: delta}
			logrus.WithFields(logrus.Fields{
				"wallet_id": w.ID,
				"amount":    delta,
				"balance":   w.Balance,
				"type":      domain.TxDailyGrant,
			}).Info("Daily grant applied")
		}
	}

	res.FinalBalance = w.Balance
	return res, nil
}

// applyDecay runs the decay step in its own atomic transaction. The UPDATE is
// a compare-and-swap: it carries the same day-boundary condition as the
// in-memory check plus the balance the delta was computed from, so the
// arithmetic can never commit against a balance a concurrent spend or credit
// has moved. Zero affected rows means either another processor already
// decayed today or the balance changed under us; both are reported as not
// applied, and a moved balance is simply recomputed on the next touch.
//
// A zero decay still advances last_decay_at so the wallet is not re-examined
// today, but writes no transaction row to keep the log free of no-op noise.
func (s *Service) applyDecay(ctx context.Context, w *domain.Wallet, amount int64, now time.Time) (bool, error) {
	won := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance = ? AND (last_decay_at IS NULL OR last_decay_at < ?)", w.ID, w.Balance, startOfUTCDay(now)).
			Updates(map[string]any{
				"balance":       gorm.Expr("balance - ?", amount),
				"last_decay_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil // Lost the race: already decayed today, or the balance moved
		}
		won = true
		if amount == 0 {
			return nil
		}
		rec := domain.Transaction{
			WalletID: &w.ID,
			Amount:   -amount,
			Type:     domain.TxDecay,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return false, fmt.Errorf("apply decay to wallet %d: %w", w.ID, err)
	}
	if won {
		t := now
		w.LastDecayAt = &t
	}
	return won, nil
}

// applyGrant mirrors applyDecay for the basic income step: a compare-and-swap
// guarded on last_daily_grant_at and the balance the clamped delta was
// computed from, so a concurrent credit can never push the committed result
// past MaxBalance. A fully clamped grant (wallet already at the cap) still
// advances the timestamp but writes no zero-amount row, same bookkeeping
// choice as zero decay.
func (s *Service) applyGrant(ctx context.Context, w *domain.Wallet, delta int64, now time.Time) (bool, error) {
	won := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance = ? AND (last_daily_grant_at IS NULL OR last_daily_grant_at < ?)", w.ID, w.Balance, startOfUTCDay(now)).
			Updates(map[string]any{
				"balance":             gorm.Expr("balance + ?", delta),
				"last_daily_grant_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil // Lost the race: already granted today, or the balance moved
		}
		won = true
		if delta == 0 {
			return nil
		}
		rec := domain.Transaction{
			WalletID: &w.ID,
			Amount:   delta,
			Type:     domain.TxDailyGrant,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return false, fmt.Errorf("apply grant to wallet %d: %w", w.ID, err)
	}
	if won {
		t := now
		w.LastDailyGrantAt = &t
	}
	return won, nil
}
