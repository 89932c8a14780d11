package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
)

const withdrawalColumns = `id, user_id, host_id, wallet_id, ledger_txn_id, amount, status, idempotency_key,
	account_holder_name, account_number, ifsc_code, bank_name, upi_id,
	transaction_id, transaction_date, remarks, created_at, updated_at`

type WithdrawalRepository interface {
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID, hostID uuid.UUID, offset, limit int) ([]model.Withdrawal, error)
	CountWithdrawals(ctx context.Context, userID, hostID uuid.UUID) (int, error)
}

type withdrawalRepo struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) WithdrawalRepository {
	return &withdrawalRepo{db: db}
}

func (r *withdrawalRepo) GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	const op = "repository.GetWithdrawal"

	var w model.Withdrawal
	if err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "withdrawal")
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

func (r *withdrawalRepo) ListWithdrawals(ctx context.Context, userID, hostID uuid.UUID, offset, limit int) ([]model.Withdrawal, error) {
	withdrawals := []model.Withdrawal{}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
	          WHERE user_id = $1 AND host_id = $2
	          ORDER BY created_at DESC, id DESC
	          LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &withdrawals, query, userID, hostID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *withdrawalRepo) CountWithdrawals(ctx context.Context, userID, hostID uuid.UUID) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM withdrawals WHERE user_id = $1 AND host_id = $2`
	if err := r.db.GetContext(ctx, &total, query, userID, hostID); err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return total, nil
}

func (lt *ledgerTx) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	query := `INSERT INTO withdrawals (` + withdrawalColumns + `)
	          VALUES (:id, :user_id, :host_id, :wallet_id, :ledger_txn_id, :amount, :status, :idempotency_key,
	                  :account_holder_name, :account_number, :ifsc_code, :bank_name, :upi_id,
	                  :transaction_id, :transaction_date, :remarks, :created_at, :updated_at)`
	_, err := lt.Tx.NamedExecContext(ctx, query, w)
	return mapWriteErr("repository.CreateWithdrawal", err)
}

func (lt *ledgerTx) GetWithdrawalForUpdate(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	const op = "repository.GetWithdrawalForUpdate"

	var w model.Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`
	if err := lt.Tx.GetContext(ctx, &w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "withdrawal")
		}
		return nil, fmt.Errorf("failed to get withdrawal for update: %w", err)
	}
	return &w, nil
}

// UpdateWithdrawal persists the mutable lifecycle fields only.
func (lt *ledgerTx) UpdateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	query := `UPDATE withdrawals
	          SET status = :status, transaction_id = :transaction_id, transaction_date = :transaction_date,
	              remarks = :remarks, updated_at = :updated_at
	          WHERE id = :id`
	if _, err := lt.Tx.NamedExecContext(ctx, query, w); err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}
	return nil
}

func (lt *ledgerTx) FindWithdrawalByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Withdrawal, error) {
	const op = "repository.FindWithdrawalByIdempotencyKey"

	var w model.Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 AND idempotency_key = $2`
	if err := lt.Tx.GetContext(ctx, &w, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "withdrawal")
		}
		return nil, fmt.Errorf("failed to find withdrawal: %w", err)
	}
	return &w, nil
}
