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

const hostColumns = `id, user_id, account_holder_name, account_number, ifsc_code, bank_name, upi_id, created_at`

// HostRepository reads host profiles maintained by the profile service.
type HostRepository interface {
	GetHost(ctx context.Context, id uuid.UUID) (*model.Host, error)
	GetHostByUserID(ctx context.Context, userID uuid.UUID) (*model.Host, error)
}

// PaymentRepository reads payment records written by the gateway integration.
type PaymentRepository interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error)
}

type hostRepo struct {
	db *sqlx.DB
}

func NewHostRepository(db *sqlx.DB) HostRepository {
	return &hostRepo{db: db}
}

func (r *hostRepo) GetHost(ctx context.Context, id uuid.UUID) (*model.Host, error) {
	return r.getOne(ctx, "repository.GetHost", `SELECT `+hostColumns+` FROM hosts WHERE id = $1`, id)
}

func (r *hostRepo) GetHostByUserID(ctx context.Context, userID uuid.UUID) (*model.Host, error) {
	return r.getOne(ctx, "repository.GetHostByUserID", `SELECT `+hostColumns+` FROM hosts WHERE user_id = $1`, userID)
}

func (r *hostRepo) getOne(ctx context.Context, op, query string, arg uuid.UUID) (*model.Host, error) {
	var host model.Host
	if err := r.db.GetContext(ctx, &host, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "host")
		}
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return &host, nil
}

type paymentRepo struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	const op = "repository.GetPayment"

	var payment model.Payment
	query := `SELECT id, booking_id, order_id, amount, status, created_at FROM payments WHERE id = $1`
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "payment")
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}
