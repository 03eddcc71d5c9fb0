package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"yami-economy/internal/economy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// noon is an arbitrary mid-day instant for the fixed engine clock.
var noon = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// newMockDB opens a gorm session over a sqlmock connection, same loose-regexp
// expectation style as the engine tests.
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

// newTestRedis returns a client backed by an in-process redis so cache
// invalidation is observable key by key.
func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

var walletColumns = []string{"id", "address", "balance", "wallet_type", "last_daily_grant_at", "last_decay_at", "user_id"}

// walletRow builds a single-wallet result set with both cycle timestamps set
// to the same instant (or NULL).
func walletRow(id uint, address string, balance int64, userID uint, last *time.Time) *sqlmock.Rows {
	var ts any
	if last != nil {
		ts = *last
	}
	return sqlmock.NewRows(walletColumns).AddRow(id, address, balance, "HUMAN", ts, ts, userID)
}

// authAs mimics the JWT middleware output for a logged-in caller.
func authAs(userID uint, walletAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("walletAddress", walletAddress)
	}
}

// The wallet address embedded in the JWT is the caller's identity: the
// handler resolves the wallet by that address and never joins through the
// users table. An unexpected user_id query would fail the ordered mock.
func TestGetWalletResolvesCallerByTokenWalletAddress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	rdb, _ := newTestRedis(t)
	svc := economy.NewService(db, economy.StaticConfigProvider{Cfg: economy.DefaultConfig()}).
		WithClock(func() time.Time { return noon })

	earlier := noon.Add(-2 * time.Hour)
	mock.ExpectQuery("SELECT(.+)FROM `wallets` WHERE address = \\?(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	// Cycle already ran today: the engine load is a pure read
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	// Post-cycle reload
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	// Today's reward income
	mock.ExpectQuery("SELECT COALESCE(.+)FROM `transactions`(.+)").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

	r := gin.New()
	r.GET("/wallet", authAs(1, "addr-1"), GetWalletHandler(db, rdb, svc))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wallet", nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

// Tokens minted before the wallet existed carry an empty address claim and
// fall back to the owning-user lookup.
func TestGetWalletFallsBackToUserLookupWithoutAddressClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	rdb, _ := newTestRedis(t)
	svc := economy.NewService(db, economy.StaticConfigProvider{Cfg: economy.DefaultConfig()}).
		WithClock(func() time.Time { return noon })

	earlier := noon.Add(-2 * time.Hour)
	mock.ExpectQuery("SELECT(.+)FROM `wallets` WHERE user_id = \\?(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, &earlier))
	mock.ExpectQuery("SELECT COALESCE(.+)FROM `transactions`(.+)").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

	r := gin.New()
	r.GET("/wallet", authAs(1, ""), GetWalletHandler(db, rdb, svc))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wallet", nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

// A tip leaves both parties' cached views stale, so both are dropped: the
// recipient must not see a pre-tip balance for the rest of the cache TTL.
func TestTipInvalidatesBothPartiesCachedViews(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	rdb, mr := newTestRedis(t)
	svc := economy.NewService(db, economy.StaticConfigProvider{Cfg: economy.DefaultConfig()})

	// Stale cached views on both sides of the tip
	require.NoError(t, mr.Set("wallet:user:1", "stale"))
	require.NoError(t, mr.Set("txhistory:user:1:page:1:size:20", "stale"))
	require.NoError(t, mr.Set("wallet:user:2", "stale"))
	require.NoError(t, mr.Set("txhistory:user:2:page:1:size:20", "stale"))

	// Sender resolved by the address claim
	mock.ExpectQuery("SELECT(.+)FROM `wallets` WHERE address = \\?(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, nil))
	// Engine loads: sender by id, recipient by address
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(1, "addr-1", 50, 1, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").
		WillReturnRows(walletRow(2, "addr-2", 10, 2, nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, 1)) // guarded debit
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, 1)) // clamped credit
	mock.ExpectExec("INSERT INTO `transactions`(.+)").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()
	// Recipient's owner resolved for the invalidation
	mock.ExpectQuery("SELECT(.+)FROM `wallets` WHERE address = \\?(.+)").
		WillReturnRows(walletRow(2, "addr-2", 13, 2, nil))

	r := gin.New()
	r.POST("/wallet/tip", authAs(1, "addr-1"), TipHandler(db, rdb, svc))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallet/tip", strings.NewReader(`{"to_address":"addr-2","amount":3}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, mr.Exists("wallet:user:1"), "sender wallet view dropped")
	assert.False(t, mr.Exists("txhistory:user:1:page:1:size:20"), "sender history dropped")
	assert.False(t, mr.Exists("wallet:user:2"), "recipient wallet view dropped")
	assert.False(t, mr.Exists("txhistory:user:2:page:1:size:20"), "recipient history dropped")
	require.NoError(t, mock.ExpectationsWereMet())
}
