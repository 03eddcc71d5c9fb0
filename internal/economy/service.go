package economy

import (
	"context"
	"errors"
	"fmt"
	"time"
	"yami-economy/internal/domain" // Importing domain models

	"github.com/google/uuid"     // Anonymous wallet addresses
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Service is the token economy engine. It is the only writer of wallet
// balances besides wallet creation; every balance change goes through one of
// its atomic operations and leaves a transaction row.
type Service struct {
	db     *gorm.DB         // Transactional store
	config ConfigProvider   // Injectable parameter read path
	now    func() time.Time // Injectable clock, UTC semantics
}

// NewService creates the engine on the given store and config provider.
func NewService(db *gorm.DB, config ConfigProvider) *Service {
	return &Service{db: db, config: config, now: time.Now}
}

// WithClock overrides the engine clock. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Config returns the current economy parameters.
func (s *Service) Config(ctx context.Context) (Config, error) {
	return s.config.Economy(ctx)
}

// CreateWallet provisions a wallet with a fresh anonymous address and the
// configured initial balance, recording the starting credit so the
// balance == sum(transactions) invariant holds from the wallet's first row.
func (s *Service) CreateWallet(ctx context.Context, userID *uint, walletType string) (*domain.Wallet, error) {
	cfg, err := s.config.Economy(ctx)
	if err != nil {
		return nil, err
	}
	w := domain.Wallet{
		Address:    uuid.NewString(),
		Balance:    cfg.InitialBalance,
		WalletType: walletType,
		UserID:     userID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		if cfg.InitialBalance == 0 {
			return nil
		}
		rec := domain.Transaction{WalletID: &w.ID, Amount: cfg.InitialBalance, Type: domain.TxInitialGrant}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": w.ID,
		"address":   w.Address,
		"balance":   w.Balance,
		"type":      walletType,
	}).Info("Wallet created")
	return &w, nil
}

// startOfUTCDay truncates t to 00:00:00 UTC of its calendar day.
func startOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cycleDue reports whether a daily-cycle step is due: the last application is
// missing or fell on a UTC calendar day strictly before today. Local
// timezones never enter the comparison.
func cycleDue(last *time.Time, now time.Time) bool {
	return last == nil || last.UTC().Before(startOfUTCDay(now))
}

// loadWallet fetches a wallet by primary key, mapping a missing row to
// ErrWalletNotFound.
func (s *Service) loadWallet(ctx context.Context, walletID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.db.WithContext(ctx).First(&w, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wallet %d", ErrWalletNotFound, walletID)
		}
		return nil, fmt.Errorf("load wallet %d: %w", walletID, err)
	}
	return &w, nil
}

// loadWalletByAddress fetches a wallet by its anonymous address.
func (s *Service) loadWalletByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.db.WithContext(ctx).Where("address = ?", address).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: address %s", ErrWalletNotFound, address)
		}
		return nil, fmt.Errorf("load wallet %s: %w", address, err)
	}
	return &w, nil
}
