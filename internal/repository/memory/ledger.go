package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
)

var ErrTxDone = errors.New("memory: transaction has already been committed or rolled back")

// ledgerTx stages every write and applies them under the store lock on
// Commit. Wallet locks taken by the *ForUpdate calls are released on Commit
// or Rollback.
type ledgerTx struct {
	s    *Store
	held map[ownerKey]chan struct{}
	done bool

	wallets      map[uuid.UUID]*model.Wallet
	txns         []*model.Transaction
	txnStatus    map[uuid.UUID]model.TransactionStatus
	withdrawals  map[uuid.UUID]*model.Withdrawal
	newWithdrawn []uuid.UUID
}

func (s *Store) BeginTx(ctx context.Context) (repository.LedgerTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ledgerTx{
		s:           s,
		held:        make(map[ownerKey]chan struct{}),
		wallets:     make(map[uuid.UUID]*model.Wallet),
		txnStatus:   make(map[uuid.UUID]model.TransactionStatus),
		withdrawals: make(map[uuid.UUID]*model.Withdrawal),
	}, nil
}

func (t *ledgerTx) lock(ctx context.Context, key ownerKey) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.s.walletLock(key)
	select {
	case l <- struct{}{}:
		t.held[key] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *ledgerTx) release() {
	for key, l := range t.held {
		<-l
		delete(t.held, key)
	}
}

func (t *ledgerTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.release()

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range t.wallets {
		c := *w
		if _, exists := s.wallets[id]; !exists {
			s.walletsByOwner[ownerKey{c.UserID, c.HostID}] = id
		}
		s.wallets[id] = &c
	}
	for _, txn := range t.txns {
		c := *txn
		s.txns[c.ID] = &c
		s.txnsByWallet[c.WalletID] = append(s.txnsByWallet[c.WalletID], c.ID)
		s.txnsBySource[sourceKey{c.WalletID, c.Source, c.SourceID}] = c.ID
	}
	now := time.Now().UTC()
	for id, status := range t.txnStatus {
		if txn, ok := s.txns[id]; ok {
			txn.Status = status
			txn.UpdatedAt = now
		}
	}
	for _, id := range t.newWithdrawn {
		w := t.withdrawals[id]
		key := ownerKey{w.UserID, w.HostID}
		s.withdrawalsByOwner[key] = append(s.withdrawalsByOwner[key], id)
		if w.IdempotencyKey != nil {
			s.withdrawalsByKey[idempotencyKey{w.UserID, *w.IdempotencyKey}] = id
		}
	}
	for id, w := range t.withdrawals {
		c := *w
		s.withdrawals[id] = &c
	}
	return nil
}

func (t *ledgerTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.release()
	return nil
}

func (t *ledgerTx) stagedWalletByOwner(key ownerKey) *model.Wallet {
	for _, w := range t.wallets {
		if w.UserID == key.userID && w.HostID == key.hostID {
			return w
		}
	}
	return nil
}

func (t *ledgerTx) walletByOwner(key ownerKey) *model.Wallet {
	if w := t.stagedWalletByOwner(key); w != nil {
		c := *w
		return &c
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.walletsByOwner[key]
	if !ok {
		return nil
	}
	c := *t.s.wallets[id]
	return &c
}

func (t *ledgerTx) GetOrCreateWalletForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	key := ownerKey{userID, hostID}
	if err := t.lock(ctx, key); err != nil {
		return nil, err
	}
	if w := t.walletByOwner(key); w != nil {
		return w, nil
	}
	w := model.NewWallet(userID, hostID)
	staged := *w
	t.wallets[w.ID] = &staged
	return w, nil
}

func (t *ledgerTx) GetWalletByOwnerForUpdate(ctx context.Context, userID, hostID uuid.UUID) (*model.Wallet, error) {
	key := ownerKey{userID, hostID}
	if err := t.lock(ctx, key); err != nil {
		return nil, err
	}
	if w := t.walletByOwner(key); w != nil {
		return w, nil
	}
	return nil, apperrors.NewNotFound("memory.GetWalletByOwnerForUpdate", "wallet")
}

func (t *ledgerTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	if w, ok := t.wallets[id]; ok {
		c := *w
		return &c, nil
	}
	t.s.mu.RLock()
	w, ok := t.s.wallets[id]
	var key ownerKey
	if ok {
		key = ownerKey{w.UserID, w.HostID}
	}
	t.s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("memory.GetWalletForUpdate", "wallet")
	}
	if err := t.lock(ctx, key); err != nil {
		return nil, err
	}
	// re-read: the wallet may have moved while we waited for the lock
	return t.walletByOwner(key), nil
}

func (t *ledgerTx) FindTransactionBySource(_ context.Context, walletID uuid.UUID, source model.TransactionSource, sourceID string) (*model.Transaction, error) {
	for _, txn := range t.txns {
		if txn.WalletID == walletID && txn.Source == source && txn.SourceID == sourceID {
			c := *txn
			return &c, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.txnsBySource[sourceKey{walletID, source, sourceID}]
	if !ok {
		return nil, apperrors.NewNotFound("memory.FindTransactionBySource", "transaction")
	}
	c := *t.s.txns[id]
	return &c, nil
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, wallet *model.Wallet, txn *model.Transaction) error {
	if _, ok := t.held[ownerKey{wallet.UserID, wallet.HostID}]; !ok {
		return errors.New("memory: wallet must be locked before appending")
	}
	if err := repository.PrepareAppend(wallet, txn); err != nil {
		return err
	}
	if _, err := t.FindTransactionBySource(ctx, wallet.ID, txn.Source, txn.SourceID); err == nil {
		return apperrors.NewConflict("memory.AppendTransaction", "duplicate record")
	}

	wallet.Apply(txn)
	wallet.Version++

	staged := *wallet
	t.wallets[wallet.ID] = &staged
	c := *txn
	t.txns = append(t.txns, &c)
	return nil
}

func (t *ledgerTx) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status model.TransactionStatus) error {
	for _, txn := range t.txns {
		if txn.ID == id {
			txn.Status = status
			return nil
		}
	}
	t.s.mu.RLock()
	_, ok := t.s.txns[id]
	t.s.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFound("memory.UpdateTransactionStatus", "transaction")
	}
	t.txnStatus[id] = status
	return nil
}

func (t *ledgerTx) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	if w.IdempotencyKey != nil {
		if _, err := t.FindWithdrawalByIdempotencyKey(ctx, w.UserID, *w.IdempotencyKey); err == nil {
			return apperrors.NewConflict("memory.CreateWithdrawal", "duplicate record")
		}
	}
	c := *w
	t.withdrawals[w.ID] = &c
	t.newWithdrawn = append(t.newWithdrawn, w.ID)
	return nil
}

func (t *ledgerTx) GetWithdrawalForUpdate(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	if w, ok := t.withdrawals[id]; ok {
		c := *w
		return &c, nil
	}
	current, err := t.s.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, ownerKey{current.UserID, current.HostID}); err != nil {
		return nil, err
	}
	return t.s.GetWithdrawal(ctx, id)
}

func (t *ledgerTx) UpdateWithdrawal(_ context.Context, w *model.Withdrawal) error {
	if _, ok := t.held[ownerKey{w.UserID, w.HostID}]; !ok {
		return errors.New("memory: withdrawal must be locked before updating")
	}
	c := *w
	t.withdrawals[w.ID] = &c
	return nil
}

func (t *ledgerTx) FindWithdrawalByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*model.Withdrawal, error) {
	for _, w := range t.withdrawals {
		if w.UserID == userID && w.IdempotencyKey != nil && *w.IdempotencyKey == key {
			c := *w
			return &c, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.withdrawalsByKey[idempotencyKey{userID, key}]
	if !ok {
		return nil, apperrors.NewNotFound("memory.FindWithdrawalByIdempotencyKey", "withdrawal")
	}
	c := *t.s.withdrawals[id]
	return &c, nil
}
