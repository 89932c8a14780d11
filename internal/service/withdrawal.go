package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/cache"
	"github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

type AdvanceRequest struct {
	Status        model.WithdrawalStatus
	TransactionID string
	Remarks       string
}

type WithdrawalService interface {
	AdvanceWithdrawal(ctx context.Context, withdrawalID uuid.UUID, req AdvanceRequest) (*model.Withdrawal, error)
	CancelWithdrawal(ctx context.Context, userID, withdrawalID uuid.UUID) (*model.Withdrawal, error)
	GetHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.Withdrawal, model.Pagination, error)
}

type withdrawalService struct {
	repos   Repositories
	cache   cache.WalletCache
	logger  *zap.Logger
	metrics *serviceMetrics
}

func NewWithdrawalService(repos Repositories, walletCache cache.WalletCache, logger *zap.Logger) WithdrawalService {
	if walletCache == nil {
		walletCache = cache.NewNopWalletCache()
	}
	return &withdrawalService{
		repos:   repos,
		cache:   walletCache,
		logger:  logger,
		metrics: newServiceMetrics(logger),
	}
}

// AdvanceWithdrawal moves a withdrawal along its lifecycle. A failed or
// cancelled withdrawal gives the money back through a REFUND credit; the
// original DEBIT stays in the ledger marked FAILED.
func (s *withdrawalService) AdvanceWithdrawal(ctx context.Context, withdrawalID uuid.UUID, req AdvanceRequest) (*model.Withdrawal, error) {
	return s.advance(ctx, withdrawalID, req, nil)
}

func (s *withdrawalService) CancelWithdrawal(ctx context.Context, userID, withdrawalID uuid.UUID) (*model.Withdrawal, error) {
	return s.advance(ctx, withdrawalID, AdvanceRequest{Status: model.WithdrawalCancelled, Remarks: "cancelled by host"}, &userID)
}

func (s *withdrawalService) advance(ctx context.Context, withdrawalID uuid.UUID, req AdvanceRequest, owner *uuid.UUID) (*model.Withdrawal, error) {
	const op = "service.AdvanceWithdrawal"

	ctx, span := tracer().Start(ctx, "withdrawal.advance")
	defer span.End()
	span.SetAttributes(
		attribute.String("withdrawal_id", withdrawalID.String()),
		attribute.String("status", string(req.Status)),
	)

	if !req.Status.Valid() {
		return nil, errors.NewInvalidInput(op, "status", req.Status)
	}
	if req.Status == model.WithdrawalCompleted && req.TransactionID == "" {
		return nil, errors.NewInvalidInput(op, "transactionId", req.TransactionID)
	}

	tx, err := s.repos.TxManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	withdrawal, err := tx.GetWithdrawalForUpdate(ctx, withdrawalID)
	if err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}
	if owner != nil && withdrawal.UserID != *owner {
		return nil, errors.NewUnauthorized(op, "withdrawal belongs to another user")
	}
	if owner != nil && withdrawal.Status != model.WithdrawalPending {
		return nil, errors.NewInvalidTransition(op, withdrawal.Status, req.Status)
	}
	if !withdrawal.Status.CanTransitionTo(req.Status) {
		return nil, errors.NewInvalidTransition(op, withdrawal.Status, req.Status)
	}

	from := withdrawal.Status
	now := time.Now().UTC()
	withdrawal.Status = req.Status
	withdrawal.UpdatedAt = now
	if req.Remarks != "" {
		remarks := req.Remarks
		withdrawal.Remarks = &remarks
	}

	switch req.Status {
	case model.WithdrawalCompleted:
		txnID := req.TransactionID
		withdrawal.TransactionID = &txnID
		withdrawal.TransactionDate = &now
		if err := tx.UpdateTransactionStatus(ctx, withdrawal.LedgerTxnID, model.TransactionCompleted); err != nil {
			return nil, errors.WrapIndeterminate(op, err)
		}
	case model.WithdrawalFailed, model.WithdrawalCancelled:
		if err := s.reverse(ctx, tx, withdrawal); err != nil {
			return nil, errors.WrapIndeterminate(op, err)
		}
	}

	if err := tx.UpdateWithdrawal(ctx, withdrawal); err != nil {
		return nil, errors.WrapIndeterminate(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewIndeterminate(op, err)
	}

	// recent transactions in the cached summary carry the DEBIT status
	s.cache.Invalidate(ctx, withdrawal.UserID, withdrawal.HostID)
	s.metrics.withdrawalTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(req.Status))))
	s.logger.Info("withdrawal status changed",
		zap.Stringer("withdrawal_id", withdrawal.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)))

	return withdrawal, nil
}

// reverse marks the withdrawal's DEBIT as FAILED and re-credits the wallet.
// The refund is keyed by the withdrawal id, so it can be written at most once.
func (s *withdrawalService) reverse(ctx context.Context, tx repository.LedgerTx, withdrawal *model.Withdrawal) error {
	wallet, err := tx.GetWalletForUpdate(ctx, withdrawal.WalletID)
	if err != nil {
		return err
	}
	if err := tx.UpdateTransactionStatus(ctx, withdrawal.LedgerTxnID, model.TransactionFailed); err != nil {
		return err
	}
	refund := &model.Transaction{
		ID:          uuid.New(),
		Amount:      withdrawal.Amount,
		Type:        model.TransactionCredit,
		Status:      model.TransactionCompleted,
		Source:      model.SourceRefund,
		SourceID:    withdrawal.ID.String(),
		Description: "reversal of " + string(withdrawal.Status) + " withdrawal",
	}
	return tx.AppendTransaction(ctx, wallet, refund)
}

func (s *withdrawalService) GetHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.Withdrawal, model.Pagination, error) {
	const op = "service.GetWithdrawalHistory"

	page, pageSize = util.NormalizePage(page, pageSize)

	host, err := s.repos.Hosts.GetHostByUserID(ctx, userID)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}

	total, err := s.repos.Withdrawals.CountWithdrawals(ctx, userID, host.ID)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}
	withdrawals, err := s.repos.Withdrawals.ListWithdrawals(ctx, userID, host.ID, util.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, model.Pagination{}, errors.WrapInternal(op, err)
	}
	return withdrawals, model.NewPagination(total, page, pageSize), nil
}
