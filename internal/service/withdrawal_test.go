package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository/memory"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

type withdrawalFixture struct {
	store       *memory.Store
	wallets     WalletService
	withdrawals WithdrawalService
	host        *model.Host
}

func newWithdrawalFixture(t *testing.T, balance string) *withdrawalFixture {
	store, repos := newTestRepos()
	f := &withdrawalFixture{
		store:       store,
		wallets:     NewWalletService(repos, nil, util.DefaultFeeSchedule(), nop()),
		withdrawals: NewWithdrawalService(repos, nil, nop()),
		host:        seedHost(store, upi),
	}
	fund(t, store, f.host, balance)
	return f
}

func (f *withdrawalFixture) request(t *testing.T, amount string) *model.Withdrawal {
	t.Helper()
	w, err := f.wallets.RequestWithdrawal(context.Background(), f.host.UserID, dec(amount), "")
	require.NoError(t, err)
	return w
}

func (f *withdrawalFixture) ledger(t *testing.T) []model.Transaction {
	t.Helper()
	wallet := walletOf(t, f.store, f.host)
	txns, err := f.store.ListTransactions(context.Background(), wallet.ID, 0, 100)
	require.NoError(t, err)
	return txns
}

func findTxn(txns []model.Transaction, id uuid.UUID) *model.Transaction {
	for i := range txns {
		if txns[i].ID == id {
			return &txns[i]
		}
	}
	return nil
}

func TestWithdrawalService_Complete(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture(t, "500")
	w := f.request(t, "200")

	w, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalProcessing})
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalProcessing, w.Status)

	w, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalCompleted, TransactionID: "UTR123"})
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalCompleted, w.Status)
	require.NotNil(t, w.TransactionID)
	assert.Equal(t, "UTR123", *w.TransactionID)
	assert.NotNil(t, w.TransactionDate)

	debit := findTxn(f.ledger(t), w.LedgerTxnID)
	require.NotNil(t, debit)
	assert.Equal(t, model.TransactionCompleted, debit.Status)

	wallet := walletOf(t, f.store, f.host)
	assert.True(t, wallet.Balance.Equal(dec("300")))
	assert.True(t, wallet.TotalWithdrawn.Equal(dec("200")))

	stored, err := f.store.GetWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalCompleted, stored.Status)
}

func TestWithdrawalService_FailureReverses(t *testing.T) {
	tests := []struct {
		name string
		path []model.WithdrawalStatus
	}{
		{"failed while pending", []model.WithdrawalStatus{model.WithdrawalFailed}},
		{"failed while processing", []model.WithdrawalStatus{model.WithdrawalProcessing, model.WithdrawalFailed}},
		{"cancelled", []model.WithdrawalStatus{model.WithdrawalCancelled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newWithdrawalFixture(t, "500")
			w := f.request(t, "500")

			var err error
			for _, status := range tt.path {
				w, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: status, Remarks: "bank rejected"})
				require.NoError(t, err)
			}

			wallet := walletOf(t, f.store, f.host)
			assert.True(t, wallet.Balance.Equal(dec("500")), "balance %s", wallet.Balance)
			assert.True(t, wallet.TotalWithdrawn.Equal(dec("500")), "withdrawn is never decremented")
			assert.True(t, wallet.TotalReversed.Equal(dec("500")))
			assert.True(t, wallet.Balanced())

			txns := f.ledger(t)
			debit := findTxn(txns, w.LedgerTxnID)
			require.NotNil(t, debit)
			assert.Equal(t, model.TransactionFailed, debit.Status)

			refund := txns[0]
			assert.Equal(t, model.TransactionCredit, refund.Type)
			assert.Equal(t, model.SourceRefund, refund.Source)
			assert.Equal(t, w.ID.String(), refund.SourceID)
			assert.True(t, refund.Amount.Equal(dec("500")))
		})
	}
}

func TestWithdrawalService_IllegalTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		path []model.WithdrawalStatus
		next model.WithdrawalStatus
	}{
		{"pending to completed", nil, model.WithdrawalCompleted},
		{"pending to pending", nil, model.WithdrawalPending},
		{"processing to cancelled", []model.WithdrawalStatus{model.WithdrawalProcessing}, model.WithdrawalCancelled},
		{"failed twice", []model.WithdrawalStatus{model.WithdrawalFailed}, model.WithdrawalFailed},
		{"cancelled to processing", []model.WithdrawalStatus{model.WithdrawalCancelled}, model.WithdrawalProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWithdrawalFixture(t, "100")
			w := f.request(t, "100")
			for _, status := range tt.path {
				_, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: status})
				require.NoError(t, err)
			}
			before := walletOf(t, f.store, f.host)

			_, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: tt.next, TransactionID: "UTR"})
			assert.True(t, errors.Is(err, errors.InvalidStateTransition), "got %v", err)

			after := walletOf(t, f.store, f.host)
			assert.True(t, before.Balance.Equal(after.Balance))
		})
	}

	t.Run("completed to failed", func(t *testing.T) {
		f := newWithdrawalFixture(t, "100")
		w := f.request(t, "100")
		_, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalProcessing})
		require.NoError(t, err)
		_, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalCompleted, TransactionID: "UTR"})
		require.NoError(t, err)

		_, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalFailed})
		assert.True(t, errors.Is(err, errors.InvalidStateTransition))
		assert.True(t, walletOf(t, f.store, f.host).Balance.IsZero())
	})
}

func TestWithdrawalService_AdvanceValidation(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture(t, "100")
	w := f.request(t, "50")

	_, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: "SETTLED"})
	assert.True(t, errors.Is(err, errors.InvalidRequest))

	_, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalProcessing})
	require.NoError(t, err)
	_, err = f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalCompleted})
	assert.True(t, errors.Is(err, errors.InvalidRequest), "completion needs a payout reference")

	_, err = f.withdrawals.AdvanceWithdrawal(ctx, uuid.New(), AdvanceRequest{Status: model.WithdrawalProcessing})
	assert.True(t, errors.IsNotFound(err))
}

func TestWithdrawalService_CancelWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels pending", func(t *testing.T) {
		f := newWithdrawalFixture(t, "100")
		w := f.request(t, "60")

		w, err := f.withdrawals.CancelWithdrawal(ctx, f.host.UserID, w.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalCancelled, w.Status)
		assert.True(t, walletOf(t, f.store, f.host).Balance.Equal(dec("100")))
	})

	t.Run("another user", func(t *testing.T) {
		f := newWithdrawalFixture(t, "100")
		w := f.request(t, "60")

		_, err := f.withdrawals.CancelWithdrawal(ctx, uuid.New(), w.ID)
		assert.True(t, errors.Is(err, errors.Unauthorized))
		assert.True(t, walletOf(t, f.store, f.host).Balance.Equal(dec("40")))
	})

	t.Run("already processing", func(t *testing.T) {
		f := newWithdrawalFixture(t, "100")
		w := f.request(t, "60")
		_, err := f.withdrawals.AdvanceWithdrawal(ctx, w.ID, AdvanceRequest{Status: model.WithdrawalProcessing})
		require.NoError(t, err)

		_, err = f.withdrawals.CancelWithdrawal(ctx, f.host.UserID, w.ID)
		assert.True(t, errors.Is(err, errors.InvalidStateTransition))
	})
}

func TestWithdrawalService_GetHistory(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture(t, "100")

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, f.request(t, "10").ID)
	}

	page, pagination, err := f.withdrawals.GetHistory(ctx, f.host.UserID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.Equal(t, model.Pagination{Total: 5, Page: 1, Limit: 2, Pages: 3}, pagination)

	_, _, err = f.withdrawals.GetHistory(ctx, uuid.New(), 1, 10)
	assert.True(t, errors.IsNotFound(err))
}
