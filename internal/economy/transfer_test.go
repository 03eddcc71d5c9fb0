package economy

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"yami-economy/internal/domain"
)

// expectTransferTx queues the atomic two-wallet transfer: guarded sender
// debit, recipient credit, one batched insert for the record(s).
func expectTransferTx(mock sqlmock.Sqlmock, debitAffected int64) {
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, debitAffected))
	if debitAffected == 0 {
		mock.ExpectRollback()
		return
	}
	mock.ExpectExec("UPDATE `wallets`(.+)").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `transactions`(.+)").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()
}

func TestTransferDefaultAmountIsOne(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 10, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(2, "addr-rcpt", 10, nil, nil))
	expectTransferTx(mock, 1)

	records, err := svc.Transfer(context.Background(), 1, "addr-rcpt", 0, domain.TxPostReward)
	require.NoError(t, err)
	require.Len(t, records, 1, "post-reward style writes a single credit row")
	assert.Equal(t, int64(1), records[0].Amount)
	assert.Equal(t, domain.TxPostReward, records[0].Type)
	assert.Equal(t, uint(2), *records[0].WalletID)
	assert.Equal(t, uint(1), *records[0].CounterpartyID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGasTipWritesDualRecords(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 10, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(2, "addr-rcpt", 10, nil, nil))
	expectTransferTx(mock, 1)

	records, err := svc.GasTip(context.Background(), 1, "addr-rcpt", 3)
	require.NoError(t, err)
	require.Len(t, records, 2, "gas tips are double-entry")
	assert.Equal(t, int64(-3), records[0].Amount)
	assert.Equal(t, domain.TxGasTipSent, records[0].Type)
	assert.Equal(t, int64(3), records[1].Amount)
	assert.Equal(t, domain.TxGasTipReceived, records[1].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Tokens sent to a nearly-full wallet are burned at the cap: the sender is
// debited the full amount while the recipient is credited only the headroom.
func TestGasTipBurnsAtMaxBalance(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 50, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(2, "addr-rcpt", 95, nil, nil))
	expectTransferTx(mock, 1)

	records, err := svc.GasTip(context.Background(), 1, "addr-rcpt", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(-10), records[0].Amount, "sender pays the full amount")
	assert.Equal(t, int64(5), records[1].Amount, "recipient receives only up to the cap")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferSelfDenied(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	// Both lookups resolve to the same wallet.
	expectWalletByID(mock, walletRow(1, "addr-sender", 50, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(1, "addr-sender", 50, nil, nil))

	_, err := svc.Transfer(context.Background(), 1, "addr-sender", 10, domain.TxPostReward)
	assert.ErrorIs(t, err, ErrSelfTransfer)
	require.NoError(t, mock.ExpectationsWereMet(), "no balance change, no transaction rows")
}

func TestTransferInsufficientBalance(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 5, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(2, "addr-rcpt", 10, nil, nil))

	_, err := svc.Transfer(context.Background(), 1, "addr-rcpt", 10, domain.TxPostReward)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet(), "no balance change, no transaction rows")
}

// The guard re-checks the balance inside the transaction: a concurrent spend
// between the read and the debit rolls the transfer back.
func TestTransferGuardedDebitLosesRace(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 50, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(walletRow(2, "addr-rcpt", 10, nil, nil))
	expectTransferTx(mock, 0) // the conditional debit matches no row

	_, err := svc.Transfer(context.Background(), 1, "addr-rcpt", 10, domain.TxPostReward)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRecipientNotFound(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	expectWalletByID(mock, walletRow(1, "addr-sender", 50, nil, nil))
	mock.ExpectQuery("SELECT(.+)FROM `wallets`(.+)").WillReturnRows(sqlmock.NewRows(walletColumns))

	_, err := svc.Transfer(context.Background(), 1, "addr-missing", 10, domain.TxPostReward)
	assert.ErrorIs(t, err, ErrWalletNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferNegativeAmountRejected(t *testing.T) {
	svc, mock := newTestService(t, DefaultConfig(), noon)

	_, err := svc.Transfer(context.Background(), 1, "addr-rcpt", -5, domain.TxPostReward)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	require.NoError(t, mock.ExpectationsWereMet(), "rejected before touching the store")
}
