// Package memory keeps the ledger, bookings and collaborator records in
// process. It satisfies the same repository contracts as the Postgres store:
// one lock per wallet, and writes that become visible only on Commit.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
)

type ownerKey struct {
	userID uuid.UUID
	hostID uuid.UUID
}

type sourceKey struct {
	walletID uuid.UUID
	source   model.TransactionSource
	sourceID string
}

type idempotencyKey struct {
	userID uuid.UUID
	key    string
}

type Store struct {
	mu sync.RWMutex

	wallets        map[uuid.UUID]*model.Wallet
	walletsByOwner map[ownerKey]uuid.UUID

	txns         map[uuid.UUID]*model.Transaction
	txnsByWallet map[uuid.UUID][]uuid.UUID
	txnsBySource map[sourceKey]uuid.UUID

	withdrawals        map[uuid.UUID]*model.Withdrawal
	withdrawalsByOwner map[ownerKey][]uuid.UUID
	withdrawalsByKey   map[idempotencyKey]uuid.UUID

	bookings   map[uuid.UUID]*model.Booking
	hosts      map[uuid.UUID]*model.Host
	hostByUser map[uuid.UUID]uuid.UUID
	payments   map[uuid.UUID]*model.Payment

	lockMu      sync.Mutex
	walletLocks map[ownerKey]chan struct{}
}

var (
	_ repository.WalletRepository      = (*Store)(nil)
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.WithdrawalRepository  = (*Store)(nil)
	_ repository.BookingRepository     = (*Store)(nil)
	_ repository.HostRepository        = (*Store)(nil)
	_ repository.PaymentRepository     = (*Store)(nil)
	_ repository.TxManager             = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		wallets:            make(map[uuid.UUID]*model.Wallet),
		walletsByOwner:     make(map[ownerKey]uuid.UUID),
		txns:               make(map[uuid.UUID]*model.Transaction),
		txnsByWallet:       make(map[uuid.UUID][]uuid.UUID),
		txnsBySource:       make(map[sourceKey]uuid.UUID),
		withdrawals:        make(map[uuid.UUID]*model.Withdrawal),
		withdrawalsByOwner: make(map[ownerKey][]uuid.UUID),
		withdrawalsByKey:   make(map[idempotencyKey]uuid.UUID),
		bookings:           make(map[uuid.UUID]*model.Booking),
		hosts:              make(map[uuid.UUID]*model.Host),
		hostByUser:         make(map[uuid.UUID]uuid.UUID),
		payments:           make(map[uuid.UUID]*model.Payment),
		walletLocks:        make(map[ownerKey]chan struct{}),
	}
}

// PutHost and PutPayment seed collaborator records, which this service only reads.
func (s *Store) PutHost(host *model.Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := *host
	s.hosts[h.ID] = &h
	s.hostByUser[h.UserID] = h.ID
}

func (s *Store) PutPayment(payment *model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *payment
	s.payments[p.ID] = &p
}

// walletLock returns the per-owner semaphore, creating it on first use.
func (s *Store) walletLock(key ownerKey) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.walletLocks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.walletLocks[key] = l
	}
	return l
}

// wallets

func (s *Store) GetWalletByOwner(_ context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.walletsByOwner[ownerKey{userID, hostID}]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetWalletByOwner", "wallet")
	}
	c := *s.wallets[id]
	return &c, nil
}

// transactions

func (s *Store) ListTransactions(_ context.Context, walletID uuid.UUID, offset, limit int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.txnsByWallet[walletID]
	out := []model.Transaction{}
	for i := len(ids) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.txns[ids[i]])
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, walletID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txnsByWallet[walletID]), nil
}

// withdrawals

func (s *Store) GetWithdrawal(_ context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetWithdrawal", "withdrawal")
	}
	c := *w
	return &c, nil
}

func (s *Store) ListWithdrawals(_ context.Context, userID, hostID uuid.UUID, offset, limit int) ([]model.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.withdrawalsByOwner[ownerKey{userID, hostID}]
	out := []model.Withdrawal{}
	for i := len(ids) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.withdrawals[ids[i]])
	}
	return out, nil
}

func (s *Store) CountWithdrawals(_ context.Context, userID, hostID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.withdrawalsByOwner[ownerKey{userID, hostID}]), nil
}

// bookings

func (s *Store) CreateBooking(_ context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[booking.ID]; exists {
		return apperrors.NewConflict("memory.CreateBooking", "duplicate record")
	}
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

func (s *Store) GetBooking(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetBooking", "booking")
	}
	return b.Clone(), nil
}

func (s *Store) UpdateBooking(_ context.Context, booking *model.Booking, expectedVersion int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[booking.ID]
	if !ok || current.Version != expectedVersion {
		return 0, nil
	}
	next := booking.Clone()
	next.Version = expectedVersion + 1
	s.bookings[booking.ID] = next
	return 1, nil
}

// collaborators

func (s *Store) GetHost(_ context.Context, id uuid.UUID) (*model.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hosts[id]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetHost", "host")
	}
	c := *h
	return &c, nil
}

func (s *Store) GetHostByUserID(_ context.Context, userID uuid.UUID) (*model.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.hostByUser[userID]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetHostByUserID", "host")
	}
	c := *s.hosts[id]
	return &c, nil
}

func (s *Store) GetPayment(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetPayment", "payment")
	}
	c := *p
	return &c, nil
}
