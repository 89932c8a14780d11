package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is keyed by (UserID, HostID): the host's user id and the host profile id.
type Wallet struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"userId"`
	HostID         uuid.UUID       `db:"host_id" json:"hostId"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalEarned    decimal.Decimal `db:"total_earned" json:"totalEarned"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn" json:"totalWithdrawn"`
	TotalReversed  decimal.Decimal `db:"total_reversed" json:"totalReversed"`
	Version        int             `db:"version" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

func NewWallet(userID, hostID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:             uuid.New(),
		UserID:         userID,
		HostID:         hostID,
		Balance:        decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalReversed:  decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Apply moves the cached totals by the balance effect of txn. The caller
// persists the result together with the transaction row.
func (w *Wallet) Apply(txn *Transaction) {
	switch txn.Type {
	case TransactionCredit:
		w.Balance = w.Balance.Add(txn.Amount)
		if txn.Source == SourceRefund {
			w.TotalReversed = w.TotalReversed.Add(txn.Amount)
		} else {
			w.TotalEarned = w.TotalEarned.Add(txn.Amount)
		}
	case TransactionDebit:
		w.Balance = w.Balance.Sub(txn.Amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(txn.Amount)
	}
	w.UpdatedAt = time.Now().UTC()
}

// Balanced reports whether balance == earned - withdrawn + reversed.
func (w *Wallet) Balanced() bool {
	return w.Balance.Equal(w.TotalEarned.Sub(w.TotalWithdrawn).Add(w.TotalReversed))
}

type WalletSummary struct {
	Balance            decimal.Decimal       `json:"balance"`
	TotalEarned        decimal.Decimal       `json:"totalEarned"`
	TotalWithdrawn     decimal.Decimal       `json:"totalWithdrawn"`
	TotalReversed      decimal.Decimal       `json:"totalReversed"`
	RecentTransactions []TransactionResponse `json:"recentTransactions"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}
