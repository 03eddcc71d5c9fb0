package economy

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens a gorm session over a sqlmock connection. Expectations use
// sqlmock's default regexp matcher, so loose patterns like "SELECT(.+)wallets"
// match whatever SQL gorm renders.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

// newTestService wires the engine to a mocked store, a fixed config, and a
// fixed clock.
func newTestService(t *testing.T, cfg Config, now time.Time) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	svc := NewService(db, StaticConfigProvider{Cfg: cfg}).WithClock(func() time.Time { return now })
	return svc, mock
}

// walletColumns are the columns gorm scans a wallet row into.
var walletColumns = []string{"id", "address", "balance", "wallet_type", "last_daily_grant_at", "last_decay_at", "user_id"}

// walletRow builds a single-wallet result set.
func walletRow(id uint, address string, balance int64, lastGrant, lastDecay *time.Time) *sqlmock.Rows {
	rows := sqlmock.NewRows(walletColumns)
	var g, d any
	if lastGrant != nil {
		g = *lastGrant
	}
	if lastDecay != nil {
		d = *lastDecay
	}
	rows.AddRow(id, address, balance, "HUMAN", g, d, nil)
	return rows
}

// expectWalletByID queues the primary-key wallet lookup.
func expectWalletByID(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(rows)
}

// expectTx queues one atomic wallet-update-plus-insert transaction, with the
// UPDATE affecting the given number of rows and insert reporting whether a
// transaction row write is expected at all.
func expectTx(mock sqlmock.Sqlmock, updateAffected int64, insert bool) {
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, updateAffected))
	if insert {
		mock.ExpectExec("INSERT INTO `transactions`(.+)").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()
}
