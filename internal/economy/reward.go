package economy

import (
	"context"
	"fmt"
	"yami-economy/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// TodayRewardEarned sums the reward-type transaction amounts credited to the
// wallet within today's UTC window. A pure read over the transaction log;
// the wallet balance is never consulted.
func (s *Service) TodayRewardEarned(ctx context.Context, walletID uint) (int64, error) {
	dayStart := startOfUTCDay(s.now())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var total int64
	err := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("wallet_id = ? AND type IN ? AND created_at >= ? AND created_at < ?",
			walletID, domain.RewardTxTypes, dayStart, dayEnd).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum today's rewards for wallet %d: %w", walletID, err)
	}
	return total, nil
}

// RemainingRewardCapacity returns how much reward income the wallet may still
// earn today: max(0, dailyRewardCap - todayRewardEarned).
func (s *Service) RemainingRewardCapacity(ctx context.Context, walletID uint) (int64, error) {
	cfg, err := s.config.Economy(ctx)
	if err != nil {
		return 0, err
	}
	earned, err := s.TodayRewardEarned(ctx, walletID)
	if err != nil {
		return 0, err
	}
	remaining := cfg.DailyRewardCap - earned
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// IssueReward credits the configured response reward to the wallet, clamped
// by both the remaining daily reward capacity and the MaxBalance headroom.
// A wallet with zero capacity left gets nothing and no transaction row; that
// is a normal zero result, not an error.
func (s *Service) IssueReward(ctx context.Context, walletID uint, txType string) (int64, error) {
	cfg, err := s.config.Economy(ctx)
	if err != nil {
		return 0, err
	}
	w, err := s.loadWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	remaining, err := s.RemainingRewardCapacity(ctx, walletID)
	if err != nil {
		return 0, err
	}
	amount := cfg.ResponseReward
	if amount > remaining {
		amount = remaining // Clamp to today's remaining reward capacity
	}
	amount = clampedCredit(w.Balance, amount, cfg.MaxBalance) // And to the balance ceiling
	if amount <= 0 {
		return 0, nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Wallet{}).
			Where("id = ?", w.ID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
		rec := domain.Transaction{WalletID: &w.ID, Amount: amount, Type: txType}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return 0, fmt.Errorf("issue reward to wallet %d: %w", walletID, err)
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": w.ID,
		"amount":    amount,
		"type":      txType,
	}).Info("Reward issued")
	return amount, nil
}

// Charge atomically debits a consultation cost from the wallet and records
// it. The guarded update keeps the balance from going negative under
// concurrent spends; a guard that fails after the pre-read showed sufficient
// funds means a concurrent writer moved the balance, reported as ErrConflict
// so the caller can retry once.
func (s *Service) Charge(ctx context.Context, walletID uint, amount int64, txType string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	w, err := s.loadWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, w.Balance, amount)
	}
	var rec domain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", w.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: wallet %d balance moved during charge", ErrConflict, w.ID)
		}
		rec = domain.Transaction{WalletID: &w.ID, Amount: -amount, Type: txType}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": w.ID,
		"amount":    amount,
		"type":      txType,
	}).Info("Consultation charged")
	return &rec, nil
}
