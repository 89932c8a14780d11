package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/cache"
	"github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

type WalletService interface {
	CreditBookingPayment(ctx context.Context, bookingID, paymentID uuid.UUID) (*model.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, idempotencyKey string) (*model.Withdrawal, error)
	GetWalletSummary(ctx context.Context, userID uuid.UUID) (*model.WalletSummary, error)
	GetTransactionHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.Transaction, model.Pagination, error)
}

type walletService struct {
	repos   Repositories
	cache   cache.WalletCache
	fees    util.FeeSchedule
	logger  *zap.Logger
	metrics *serviceMetrics
}

func NewWalletService(
	repos Repositories,
	walletCache cache.WalletCache,
	fees util.FeeSchedule,
	logger *zap.Logger,
) WalletService {
	if walletCache == nil {
		walletCache = cache.NewNopWalletCache()
	}
	return &walletService{
		repos:   repos,
		cache:   walletCache,
		fees:    fees,
		logger:  logger,
		metrics: newServiceMetrics(logger),
	}
}

// CreditBookingPayment credits the selected host with the net of a completed
// booking payment. The payment's order id is the dedupe key: a second call
// for the same payment returns the transaction written by the first.
func (s *walletService) CreditBookingPayment(ctx context.Context, bookingID, paymentID uuid.UUID) (*model.Transaction, error) {
	const op = "service.CreditBookingPayment"

	ctx, span := tracer().Start(ctx, "wallet.credit_booking_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking_id", bookingID.String()),
		attribute.String("payment_id", paymentID.String()),
	)

	booking, err := s.repos.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	payment, err := s.repos.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if payment.BookingID != booking.ID {
		return nil, errors.NewNotFound(op, "payment for booking")
	}
	if booking.SelectedHost == nil {
		return nil, errors.NewHostNotSelected(op)
	}
	if booking.PaymentStatus != model.PaymentCompleted {
		return nil, errors.NewPaymentNotCompleted(op)
	}

	host, err := s.repos.Hosts.GetHost(ctx, *booking.SelectedHost)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	fees, err := s.fees.Compute(payment.Amount)
	if err != nil {
		return nil, err
	}
	if !fees.NetAmount.IsPositive() {
		return nil, errors.NewInvalidAmount(op, payment.Amount)
	}

	tx, err := s.repos.TxManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	wallet, err := tx.GetOrCreateWalletForUpdate(ctx, host.UserID, host.ID)
	if err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}

	existing, err := tx.FindTransactionBySource(ctx, wallet.ID, model.SourceBookingPayment, payment.OrderID)
	if err == nil {
		s.metrics.duplicateCredits.Add(ctx, 1)
		s.logger.Info("booking payment already credited",
			zap.Stringer("booking_id", bookingID),
			zap.String("order_id", payment.OrderID),
			zap.Stringer("transaction_id", existing.ID))
		return existing, nil
	}
	if !errors.IsNotFound(err) {
		return nil, errors.WrapIndeterminate(op, err)
	}

	txn := &model.Transaction{
		ID:          uuid.New(),
		Amount:      fees.NetAmount,
		Type:        model.TransactionCredit,
		Status:      model.TransactionCompleted,
		Source:      model.SourceBookingPayment,
		SourceID:    payment.OrderID,
		GrossAmount: decimal.NewNullDecimal(fees.GrossAmount),
		PlatformFee: decimal.NewNullDecimal(fees.PlatformFee),
		GSTAmount:   decimal.NewNullDecimal(fees.GSTAmount),
		NetAmount:   decimal.NewNullDecimal(fees.NetAmount),
		Description: fmt.Sprintf("payment for booking %s", booking.ID),
	}
	if err := tx.AppendTransaction(ctx, wallet, txn); err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewIndeterminate(op, err)
	}

	s.cache.Invalidate(ctx, host.UserID, host.ID)
	s.metrics.credits.Add(ctx, 1)
	s.logger.Info("booking payment credited",
		zap.Stringer("booking_id", bookingID),
		zap.Stringer("wallet_id", wallet.ID),
		zap.String("order_id", payment.OrderID),
		zap.Stringer("gross", fees.GrossAmount),
		zap.Stringer("net", fees.NetAmount))

	return txn, nil
}

// RequestWithdrawal debits amount from the caller's wallet and records a
// PENDING withdrawal with a snapshot of the host's payout details. A non-empty
// idempotencyKey that was already used returns the earlier withdrawal.
func (s *walletService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, idempotencyKey string) (*model.Withdrawal, error) {
	const op = "service.RequestWithdrawal"

	ctx, span := tracer().Start(ctx, "wallet.request_withdrawal")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.String("amount", amount.String()))

	if err := util.ValidateAmount(op, amount); err != nil {
		return nil, err
	}

	host, err := s.repos.Hosts.GetHostByUserID(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if !host.BankDetails.Complete() {
		return nil, errors.NewIncompleteBankDetails(op)
	}

	tx, err := s.repos.TxManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	wallet, err := tx.GetWalletByOwnerForUpdate(ctx, userID, host.ID)
	if err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}

	if idempotencyKey != "" {
		existing, err := tx.FindWithdrawalByIdempotencyKey(ctx, userID, idempotencyKey)
		if err == nil {
			if !existing.Amount.Equal(amount) {
				return nil, errors.NewConflict(op, "idempotency key already used for a different amount")
			}
			s.logger.Info("withdrawal replayed by idempotency key",
				zap.Stringer("withdrawal_id", existing.ID), zap.String("idempotency_key", idempotencyKey))
			return existing, nil
		}
		if !errors.IsNotFound(err) {
			return nil, errors.WrapIndeterminate(op, err)
		}
	}

	if wallet.Balance.LessThan(amount) {
		return nil, errors.NewInsufficientBalance(op)
	}

	now := time.Now().UTC()
	withdrawal := &model.Withdrawal{
		ID:          uuid.New(),
		UserID:      userID,
		HostID:      host.ID,
		WalletID:    wallet.ID,
		Amount:      amount,
		Status:      model.WithdrawalPending,
		BankDetails: host.BankDetails,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if idempotencyKey != "" {
		key := idempotencyKey
		withdrawal.IdempotencyKey = &key
	}

	txn := &model.Transaction{
		ID:          uuid.New(),
		Amount:      amount,
		Type:        model.TransactionDebit,
		Status:      model.TransactionPending,
		Source:      model.SourceWithdrawal,
		SourceID:    withdrawal.ID.String(),
		Description: "withdrawal request",
	}
	if err := tx.AppendTransaction(ctx, wallet, txn); err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}
	withdrawal.LedgerTxnID = txn.ID

	if err := tx.CreateWithdrawal(ctx, withdrawal); err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewIndeterminate(op, err)
	}

	s.cache.Invalidate(ctx, userID, host.ID)
	s.metrics.withdrawals.Add(ctx, 1)
	s.logger.Info("withdrawal requested",
		zap.Stringer("withdrawal_id", withdrawal.ID),
		zap.Stringer("wallet_id", wallet.ID),
		zap.Stringer("amount", amount))

	return withdrawal, nil
}

// GetWalletSummary never creates a wallet; a host that has not been credited
// yet sees zero totals.
func (s *walletService) GetWalletSummary(ctx context.Context, userID uuid.UUID) (*model.WalletSummary, error) {
	const op = "service.GetWalletSummary"

	host, err := s.repos.Hosts.GetHostByUserID(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	if summary, ok := s.cache.GetSummary(ctx, userID, host.ID); ok {
		return summary, nil
	}

	wallet, err := s.repos.Wallets.GetWalletByOwner(ctx, userID, host.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return &model.WalletSummary{
				Balance:            decimal.Zero,
				TotalEarned:        decimal.Zero,
				TotalWithdrawn:     decimal.Zero,
				TotalReversed:      decimal.Zero,
				RecentTransactions: []model.TransactionResponse{},
			}, nil
		}
		return nil, errors.WrapInternal(op, err)
	}

	recent, err := s.repos.Transactions.ListTransactions(ctx, wallet.ID, 0, util.RecentTxnCount)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	summary := &model.WalletSummary{
		Balance:            wallet.Balance,
		TotalEarned:        wallet.TotalEarned,
		TotalWithdrawn:     wallet.TotalWithdrawn,
		TotalReversed:      wallet.TotalReversed,
		RecentTransactions: model.TransactionResponses(recent),
	}
	s.cache.SetSummary(ctx, userID, host.ID, summary)
	return summary, nil
}

func (s *walletService) GetTransactionHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.Transaction, model.Pagination, error) {
	const op = "service.GetTransactionHistory"

	page, pageSize = util.NormalizePage(page, pageSize)

	host, err := s.repos.Hosts.GetHostByUserID(ctx, userID)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}

	wallet, err := s.repos.Wallets.GetWalletByOwner(ctx, userID, host.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return []model.Transaction{}, model.NewPagination(0, page, pageSize), nil
		}
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}

	total, err := s.repos.Transactions.CountTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}
	transactions, err := s.repos.Transactions.ListTransactions(ctx, wallet.ID, util.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}
	return transactions, model.NewPagination(total, page, pageSize), nil
}
