package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
	"github.com/Jiang-hao/hostWalletService/internal/repository/memory"
)

var upi = model.BankDetails{UPIID: "host@upi"}

func newTestRepos() (*memory.Store, Repositories) {
	store := memory.NewStore()
	return store, Repositories{
		Wallets:      store,
		Transactions: store,
		Withdrawals:  store,
		Bookings:     store,
		Hosts:        store,
		Payments:     store,
		TxManager:    store,
	}
}

func seedHost(store *memory.Store, bank model.BankDetails) *model.Host {
	host := &model.Host{ID: uuid.New(), UserID: uuid.New(), BankDetails: bank, CreatedAt: time.Now()}
	store.PutHost(host)
	return host
}

// seedPaidBooking stores a booking that has reached "paid" with host selected
// and a completed payment of gross.
func seedPaidBooking(t *testing.T, store *memory.Store, host *model.Host, gross string) (*model.Booking, *model.Payment) {
	t.Helper()

	hostID := host.ID
	paymentID := uuid.New()
	booking := &model.Booking{
		ID:            uuid.New(),
		RequesterID:   uuid.New(),
		Pets:          []string{"dog"},
		StartAt:       time.Now(),
		EndAt:         time.Now().Add(48 * time.Hour),
		Location:      "Bengaluru",
		AcceptedHosts: []uuid.UUID{hostID},
		SelectedHost:  &hostID,
		PaymentStatus: model.PaymentCompleted,
		PaymentID:     &paymentID,
		Status:        model.BookingPaid,
		Version:       1,
	}
	require.NoError(t, store.CreateBooking(context.Background(), booking))

	payment := &model.Payment{
		ID:        paymentID,
		BookingID: booking.ID,
		OrderID:   "order_" + paymentID.String()[:8],
		Amount:    decimal.RequireFromString(gross),
		Status:    string(model.PaymentCompleted),
	}
	store.PutPayment(payment)
	return booking, payment
}

// fund credits the host's wallet directly through the ledger.
func fund(t *testing.T, store *memory.Store, host *model.Host, amount string) {
	t.Helper()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	wallet, err := tx.GetOrCreateWalletForUpdate(ctx, host.UserID, host.ID)
	require.NoError(t, err)
	require.NoError(t, tx.AppendTransaction(ctx, wallet, &model.Transaction{
		Amount:   decimal.RequireFromString(amount),
		Type:     model.TransactionCredit,
		Status:   model.TransactionCompleted,
		Source:   model.SourceAdjustment,
		SourceID: uuid.NewString(),
	}))
	require.NoError(t, tx.Commit())
}

func walletOf(t *testing.T, store *memory.Store, host *model.Host) *model.Wallet {
	t.Helper()
	wallet, err := store.GetWalletByOwner(context.Background(), host.UserID, host.ID)
	require.NoError(t, err)
	return wallet
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nop() *zap.Logger {
	return zap.NewNop()
}

// MockWalletCache implements cache.WalletCache
type MockWalletCache struct {
	mock.Mock
}

func (m *MockWalletCache) GetSummary(ctx context.Context, userID, hostID uuid.UUID) (*model.WalletSummary, bool) {
	args := m.Called(ctx, userID, hostID)
	summary, _ := args.Get(0).(*model.WalletSummary)
	return summary, args.Bool(1)
}

func (m *MockWalletCache) SetSummary(ctx context.Context, userID, hostID uuid.UUID, summary *model.WalletSummary) {
	m.Called(ctx, userID, hostID, summary)
}

func (m *MockWalletCache) Invalidate(ctx context.Context, userID, hostID uuid.UUID) {
	m.Called(ctx, userID, hostID)
}

// MockTxManager implements repository.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) BeginTx(ctx context.Context) (repository.LedgerTx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.LedgerTx)
	return tx, args.Error(1)
}

// MockLedgerTx wraps a real memory transaction and lets a test override Commit.
type MockLedgerTx struct {
	mock.Mock
	repository.LedgerTx
}

func (m *MockLedgerTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

// MockBookingRepository implements repository.BookingRepository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateBooking(ctx context.Context, booking *model.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, id)
	booking, _ := args.Get(0).(*model.Booking)
	return booking, args.Error(1)
}

func (m *MockBookingRepository) UpdateBooking(ctx context.Context, booking *model.Booking, expectedVersion int) (int64, error) {
	args := m.Called(ctx, booking, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}
