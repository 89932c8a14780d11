package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

type TransactionSource string

const (
	SourceBookingPayment TransactionSource = "BOOKING_PAYMENT"
	SourceWithdrawal     TransactionSource = "WITHDRAWAL"
	SourceRefund         TransactionSource = "REFUND"
	SourceAdjustment     TransactionSource = "ADJUSTMENT"
)

// Transaction rows are append-only; only Status changes after insert.
type Transaction struct {
	ID          uuid.UUID           `db:"id"`
	WalletID    uuid.UUID           `db:"wallet_id"`
	Amount      decimal.Decimal     `db:"amount"`
	Type        TransactionType     `db:"type"`
	Status      TransactionStatus   `db:"status"`
	Source      TransactionSource   `db:"source"`
	SourceID    string              `db:"source_id"`
	GrossAmount decimal.NullDecimal `db:"gross_amount"`
	PlatformFee decimal.NullDecimal `db:"platform_fee"`
	GSTAmount   decimal.NullDecimal `db:"gst_amount"`
	NetAmount   decimal.NullDecimal `db:"net_amount"`
	Description string              `db:"description"`
	CreatedAt   time.Time           `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

type TransactionResponse struct {
	ID          uuid.UUID         `json:"id"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Source      TransactionSource `json:"source"`
	SourceID    string            `json:"sourceId"`
	GrossAmount *decimal.Decimal  `json:"grossAmount,omitempty"`
	PlatformFee *decimal.Decimal  `json:"platformFee,omitempty"`
	GSTAmount   *decimal.Decimal  `json:"gstAmount,omitempty"`
	NetAmount   *decimal.Decimal  `json:"netAmount,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func (t Transaction) Response() TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Type:        t.Type,
		Status:      t.Status,
		Source:      t.Source,
		SourceID:    t.SourceID,
		GrossAmount: nullable(t.GrossAmount),
		PlatformFee: nullable(t.PlatformFee),
		GSTAmount:   nullable(t.GSTAmount),
		NetAmount:   nullable(t.NetAmount),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func TransactionResponses(txns []Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.Response())
	}
	return out
}
