package economy

import (
	"context"
	"fmt"
	"yami-economy/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// DefaultTransferAmount is used when the caller leaves the amount unset (0).
const DefaultTransferAmount = 1

// Transfer atomically moves tokens from the sender to the wallet at
// recipientAddress and records a single credit row of the given type on the
// recipient ("post reward" style bookkeeping). amount 0 means unspecified
// and defaults to 1; a negative amount is rejected.
//
// The recipient credit is clamped at MaxBalance while the sender is debited
// the full amount: tokens sent to an already-full wallet are burned, not
// refunded. That is an explicit economy rule, not an accident of clamping.
func (s *Service) Transfer(ctx context.Context, senderID uint, recipientAddress string, amount int64, txType string) ([]domain.Transaction, error) {
	return s.execTransfer(ctx, senderID, recipientAddress, amount, txType, false)
}

// GasTip is the double-entry tip variant: the sender's debit and the
// recipient's (clamped) credit each get their own transaction row, so both
// wallets keep balance == sum(amounts) exact.
func (s *Service) GasTip(ctx context.Context, senderID uint, recipientAddress string, amount int64) ([]domain.Transaction, error) {
	return s.execTransfer(ctx, senderID, recipientAddress, amount, domain.TxGasTipReceived, true)
}

// execTransfer performs the shared precondition checks and the atomic
// two-wallet update for both record styles.
func (s *Service) execTransfer(ctx context.Context, senderID uint, recipientAddress string, amount int64, txType string, dualRecord bool) ([]domain.Transaction, error) {
	if amount == 0 {
		amount = DefaultTransferAmount // Unspecified amount defaults to 1
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	cfg, err := s.config.Economy(ctx)
	if err != nil {
		return nil, err
	}
	sender, err := s.loadWallet(ctx, senderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.loadWalletByAddress(ctx, recipientAddress)
	if err != nil {
		return nil, err
	}
	if sender.ID == recipient.ID {
		return nil, ErrSelfTransfer
	}
	if sender.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, amount)
	}

	// Credit delta clamped at the cap; the shortfall is burned.
	credit := clampedCredit(recipient.Balance, amount, cfg.MaxBalance)

	var records []domain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded debit: re-checks the balance inside the transaction so a
		// concurrent spend cannot drive the sender negative.
		result := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", sender.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, amount)
		}
		if err := tx.Model(&domain.Wallet{}).
			Where("id = ?", recipient.ID).
			Update("balance", gorm.Expr("balance + ?", credit)).Error; err != nil {
			return err
		}
		if dualRecord {
			records = []domain.Transaction{
				{WalletID: &sender.ID, CounterpartyID: &recipient.ID, Amount: -amount, Type: domain.TxGasTipSent},
				{WalletID: &recipient.ID, CounterpartyID: &sender.ID, Amount: credit, Type: txType},
			}
		} else {
			records = []domain.Transaction{
				{WalletID: &recipient.ID, CounterpartyID: &sender.ID, Amount: credit, Type: txType},
			}
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"sender_id":    sender.ID,
		"recipient_id": recipient.ID,
		"amount":       amount,
		"credited":     credit,
		"burned":       amount - credit,
		"type":         txType,
	}).Info("Transfer executed")
	return records, nil
}
