package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "PENDING"
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalFailed     WithdrawalStatus = "FAILED"
	WithdrawalCancelled  WithdrawalStatus = "CANCELLED"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:    {WithdrawalProcessing, WithdrawalFailed, WithdrawalCancelled},
	WithdrawalProcessing: {WithdrawalCompleted, WithdrawalFailed},
}

func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	if s.Terminal() {
		return false
	}
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal statuses reverse or settle the ledger debit.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalFailed || s == WithdrawalCancelled
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalProcessing, WithdrawalCompleted, WithdrawalFailed, WithdrawalCancelled:
		return true
	}
	return false
}

// BankDetails is copied onto each withdrawal at request time.
type BankDetails struct {
	AccountHolderName string `db:"account_holder_name" json:"accountHolderName,omitempty"`
	AccountNumber     string `db:"account_number" json:"accountNumber,omitempty"`
	IFSCCode          string `db:"ifsc_code" json:"ifscCode,omitempty"`
	BankName          string `db:"bank_name" json:"bankName,omitempty"`
	UPIID             string `db:"upi_id" json:"upiId,omitempty"`
}

func (b BankDetails) Complete() bool {
	if b.UPIID != "" {
		return true
	}
	return b.AccountHolderName != "" && b.AccountNumber != "" && b.IFSCCode != ""
}

type Withdrawal struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	UserID         uuid.UUID        `db:"user_id" json:"userId"`
	HostID         uuid.UUID        `db:"host_id" json:"hostId"`
	WalletID       uuid.UUID        `db:"wallet_id" json:"walletId"`
	LedgerTxnID    uuid.UUID        `db:"ledger_txn_id" json:"ledgerTransactionId"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	Status         WithdrawalStatus `db:"status" json:"status"`
	IdempotencyKey *string          `db:"idempotency_key" json:"idempotencyKey,omitempty"`
	BankDetails
	TransactionID   *string    `db:"transaction_id" json:"transactionId,omitempty"`
	TransactionDate *time.Time `db:"transaction_date" json:"transactionDate,omitempty"`
	Remarks         *string    `db:"remarks" json:"remarks,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// WithdrawRequest keeps the amount as the client sent it, quoted or not, so
// precision can be checked before it becomes a decimal.
// WithdrawalResponse is what hosts see. The account number is masked to its
// last four digits and the IFSC code is left out.
type WithdrawalResponse struct {
	ID                  uuid.UUID        `json:"id"`
	HostID              uuid.UUID        `json:"hostId"`
	WalletID            uuid.UUID        `json:"walletId"`
	LedgerTransactionID uuid.UUID        `json:"ledgerTransactionId"`
	Amount              decimal.Decimal  `json:"amount"`
	Status              WithdrawalStatus `json:"status"`
	IdempotencyKey      *string          `json:"idempotencyKey,omitempty"`
	AccountHolderName   string           `json:"accountHolderName,omitempty"`
	AccountNumber       string           `json:"accountNumber,omitempty"`
	BankName            string           `json:"bankName,omitempty"`
	UPIID               string           `json:"upiId,omitempty"`
	TransactionID       *string          `json:"transactionId,omitempty"`
	TransactionDate     *time.Time       `json:"transactionDate,omitempty"`
	Remarks             *string          `json:"remarks,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// MaskAccountNumber keeps the last four characters.
func MaskAccountNumber(number string) string {
	const visible = 4
	if number == "" {
		return ""
	}
	if len(number) <= visible {
		return strings.Repeat("X", len(number))
	}
	return strings.Repeat("X", len(number)-visible) + number[len(number)-visible:]
}

func (w Withdrawal) Response() WithdrawalResponse {
	return WithdrawalResponse{
		ID:                  w.ID,
		HostID:              w.HostID,
		WalletID:            w.WalletID,
		LedgerTransactionID: w.LedgerTxnID,
		Amount:              w.Amount,
		Status:              w.Status,
		IdempotencyKey:      w.IdempotencyKey,
		AccountHolderName:   w.AccountHolderName,
		AccountNumber:       MaskAccountNumber(w.AccountNumber),
		BankName:            w.BankName,
		UPIID:               w.UPIID,
		TransactionID:       w.TransactionID,
		TransactionDate:     w.TransactionDate,
		Remarks:             w.Remarks,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}

func WithdrawalResponses(withdrawals []Withdrawal) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(withdrawals))
	for _, w := range withdrawals {
		out = append(out, w.Response())
	}
	return out
}

type WithdrawRequest struct {
	Amount         json.Number `json:"amount" binding:"required"`
	IdempotencyKey string      `json:"idempotencyKey"`
}

type WithdrawalStatusRequest struct {
	Status        WithdrawalStatus `json:"status" binding:"required"`
	TransactionID string           `json:"transactionId"`
	Remarks       string           `json:"remarks"`
}
