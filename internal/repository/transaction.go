package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

const transactionColumns = `id, wallet_id, amount, type, status, source, source_id, gross_amount, platform_fee, gst_amount, net_amount, description, created_at, updated_at`

type TransactionRepository interface {
	ListTransactions(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, walletID uuid.UUID) (int, error)
}

type transactionRepo struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]model.Transaction, error) {
	transactions := []model.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
	          WHERE wallet_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &transactions, query, walletID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

func (r *transactionRepo) CountTransactions(ctx context.Context, walletID uuid.UUID) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, walletID); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, nil
}

// TxManager opens the atomic unit every balance-affecting operation runs in.
type TxManager interface {
	BeginTx(ctx context.Context) (LedgerTx, error)
}

// LedgerTx serializes work per wallet: the *ForUpdate lookups take the wallet
// lock, which is held until Commit or Rollback. Nothing written through a
// LedgerTx is visible to other readers before Commit.
type LedgerTx interface {
	Commit() error
	Rollback() error

	GetOrCreateWalletForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error)
	GetWalletByOwnerForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*model.Wallet, error)

	FindTransactionBySource(ctx context.Context, walletID uuid.UUID, source model.TransactionSource, sourceID string) (*model.Transaction, error)
	AppendTransaction(ctx context.Context, wallet *model.Wallet, txn *model.Transaction) error
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error

	CreateWithdrawal(ctx context.Context, withdrawal *model.Withdrawal) error
	GetWithdrawalForUpdate(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, withdrawal *model.Withdrawal) error
	FindWithdrawalByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Withdrawal, error)
}

type txManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) TxManager {
	return &txManager{db: db}
}

type ledgerTx struct {
	*sqlx.Tx
}

func (m *txManager) BeginTx(ctx context.Context) (LedgerTx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &ledgerTx{Tx: tx}, nil
}

func (lt *ledgerTx) Commit() error {
	return lt.Tx.Commit()
}

func (lt *ledgerTx) Rollback() error {
	return lt.Tx.Rollback()
}

func (lt *ledgerTx) GetOrCreateWalletForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	if err := insertWalletIfAbsent(ctx, lt.Tx, model.NewWallet(userID, hostID)); err != nil {
		return nil, err
	}
	return getWalletByOwnerForUpdate(ctx, lt.Tx, userID, hostID)
}

func (lt *ledgerTx) GetWalletByOwnerForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	return getWalletByOwnerForUpdate(ctx, lt.Tx, userID, hostID)
}

func (lt *ledgerTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	return getWalletForUpdate(ctx, lt.Tx, id)
}

func (lt *ledgerTx) FindTransactionBySource(ctx context.Context, walletID uuid.UUID, source model.TransactionSource, sourceID string) (*model.Transaction, error) {
	const op = "repository.FindTransactionBySource"

	var txn model.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions
	          WHERE wallet_id = $1 AND source = $2 AND source_id = $3`
	if err := lt.Tx.GetContext(ctx, &txn, query, walletID, source, sourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "transaction")
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &txn, nil
}

// AppendTransaction inserts txn and writes the wallet's new totals in the same
// database transaction. wallet must have been loaded with a *ForUpdate call.
func (lt *ledgerTx) AppendTransaction(ctx context.Context, wallet *model.Wallet, txn *model.Transaction) error {
	if err := PrepareAppend(wallet, txn); err != nil {
		return err
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
	          VALUES (:id, :wallet_id, :amount, :type, :status, :source, :source_id, :gross_amount,
	                  :platform_fee, :gst_amount, :net_amount, :description, :created_at, :updated_at)`
	if _, err := lt.Tx.NamedExecContext(ctx, query, txn); err != nil {
		return mapWriteErr("repository.AppendTransaction", err)
	}

	wallet.Apply(txn)
	return updateWalletTotals(ctx, lt.Tx, wallet)
}

func (lt *ledgerTx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error {
	const op = "repository.UpdateTransactionStatus"

	res, err := lt.Tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFound(op, "transaction")
	}
	return nil
}

// PrepareAppend validates txn against the locked wallet and fills ids and
// timestamps. Every LedgerTx implementation calls it before writing.
func PrepareAppend(wallet *model.Wallet, txn *model.Transaction) error {
	const op = "repository.AppendTransaction"

	if err := util.ValidateAmount(op, txn.Amount); err != nil {
		return err
	}
	if txn.Type == model.TransactionDebit && wallet.Balance.LessThan(txn.Amount) {
		return apperrors.NewInsufficientBalance(op)
	}
	if txn.Type != model.TransactionDebit && txn.Type != model.TransactionCredit {
		return apperrors.NewInvalidInput(op, "transaction type", txn.Type)
	}

	now := time.Now().UTC()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.WalletID = wallet.ID
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	return nil
}
