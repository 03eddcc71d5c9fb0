package economy

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"yami-economy/internal/domain"
)

// expectRewardSum queues the reward-window aggregate over the transaction log.
func expectRewardSum(mock sqlmock.Sqlmock, total int64) {
	mock.ExpectQuery("SELECT COALESCE(.+)FROM `transactions`(.+)").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(total))
}

func TestTodayRewardEarned(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectRewardSum(mock, 12)

	earned, err := svc.TodayRewardEarned(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), earned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemainingRewardCapacity(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	// Cap 15 with 12 earned today leaves 3.
	expectRewardSum(mock, 12)
	remaining, err := svc.RemainingRewardCapacity(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)

	// Earnings past the cap never go negative.
	expectRewardSum(mock, 20)
	remaining, err = svc.RemainingRewardCapacity(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueRewardClampedByRemainingCapacity(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	// Reward 3 due, but only 1 point of today's cap is left.
	expectWalletByID(mock, walletRow(1, "addr-1", 50, nil, nil))
	expectRewardSum(mock, 14)
	expectTx(mock, 1, true)

	amount, err := svc.IssueReward(context.Background(), 1, domain.TxResponseReward)
	require.NoError(t, err)
	assert.Equal(t, int64(1), amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueRewardZeroCapacityWritesNothing(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	// Cap already reached: no balance change and no transaction row.
	expectWalletByID(mock, walletRow(1, "addr-1", 50, nil, nil))
	expectRewardSum(mock, 15)

	amount, err := svc.IssueReward(context.Background(), 1, domain.TxResponseReward)
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueRewardClampedByMaxBalance(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	// Full reward capacity but only 2 points of balance headroom.
	expectWalletByID(mock, walletRow(1, "addr-1", 98, nil, nil))
	expectRewardSum(mock, 0)
	expectTx(mock, 1, true)

	amount, err := svc.IssueReward(context.Background(), 1, domain.TxResponseReward)
	require.NoError(t, err)
	assert.Equal(t, int64(2), amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeWritesDebitRow(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-1", 10, nil, nil))
	expectTx(mock, 1, true)

	rec, err := svc.Charge(context.Background(), 1, 5, domain.TxHumanConsult)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), rec.Amount)
	assert.Equal(t, domain.TxHumanConsult, rec.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeInsufficientBalance(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-1", 3, nil, nil))

	_, err := svc.Charge(context.Background(), 1, 5, domain.TxHumanConsult)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A guarded debit failing after the pre-read showed enough funds means a
// concurrent writer moved the balance.
func TestChargeLostRaceConflicts(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-1", 10, nil, nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Charge(context.Background(), 1, 5, domain.TxAIConsult)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	_, err := svc.Charge(context.Background(), 1, 0, domain.TxAIConsult)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	require.NoError(t, mock.ExpectationsWereMet())
}
