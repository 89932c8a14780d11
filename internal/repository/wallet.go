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

const walletColumns = `id, user_id, host_id, balance, total_earned, total_withdrawn, total_reversed, version, created_at, updated_at`

type WalletRepository interface {
	GetWalletByOwner(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error)
}

type walletRepo struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) GetWalletByOwner(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	const op = "repository.GetWalletByOwner"

	var wallet model.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND host_id = $2`
	if err := r.db.GetContext(ctx, &wallet, query, userID, hostID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// The helpers below run inside a ledger transaction and hold the row lock
// until commit.

func getWalletForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Wallet, error) {
	const op = "repository.GetWalletForUpdate"

	var wallet model.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &wallet, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet for update: %w", err)
	}
	return &wallet, nil
}

func getWalletByOwnerForUpdate(ctx context.Context, tx *sqlx.Tx, userID, hostID uuid.UUID) (*model.Wallet, error) {
	const op = "repository.GetWalletByOwnerForUpdate"

	var wallet model.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND host_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &wallet, query, userID, hostID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet for update: %w", err)
	}
	return &wallet, nil
}

func insertWalletIfAbsent(ctx context.Context, tx *sqlx.Tx, wallet *model.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
	          VALUES (:id, :user_id, :host_id, :balance, :total_earned, :total_withdrawn, :total_reversed, :version, :created_at, :updated_at)
	          ON CONFLICT (user_id, host_id) DO NOTHING`
	_, err := tx.NamedExecContext(ctx, query, wallet)
	return mapWriteErr("repository.insertWalletIfAbsent", err)
}

func updateWalletTotals(ctx context.Context, tx *sqlx.Tx, wallet *model.Wallet) error {
	query := `UPDATE wallets
	          SET balance = $1, total_earned = $2, total_withdrawn = $3, total_reversed = $4,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $5`
	_, err := tx.ExecContext(ctx, query,
		wallet.Balance, wallet.TotalEarned, wallet.TotalWithdrawn, wallet.TotalReversed, wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to update wallet totals: %w", err)
	}
	wallet.Version++
	return nil
}
