package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository/memory"
	"github.com/Jiang-hao/hostWalletService/internal/service"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

const (
	testSecret      = "test-secret"
	testInternalKey = "internal-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer() *testServer {
	store := memory.NewStore()
	repos := service.Repositories{
		Wallets:      store,
		Transactions: store,
		Withdrawals:  store,
		Bookings:     store,
		Hosts:        store,
		Payments:     store,
		TxManager:    store,
	}
	logger := zap.NewNop()
	wallets := service.NewWalletService(repos, nil, util.DefaultFeeSchedule(), logger)
	withdrawals := service.NewWithdrawalService(repos, nil, logger)
	bookings := service.NewBookingService(repos, logger)

	router := NewRouter(
		RouterConfig{ServiceName: "test", JWTSecret: testSecret, InternalKey: testInternalKey},
		NewWalletHandler(wallets, withdrawals, logger),
		NewBookingHandler(bookings, store, logger),
		NewInternalHandler(bookings, wallets, withdrawals, logger),
		logger,
	)
	return &testServer{router: router, store: store}
}

func token(t *testing.T, userID uuid.UUID, secret string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func bearer(t *testing.T, userID uuid.UUID) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token(t, userID, testSecret, time.Hour)}
}

func internalKey() map[string]string {
	return map[string]string{InternalKeyHeader: testInternalKey}
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	code, env := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer()
	userID := uuid.New()

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"wrong secret", map[string]string{"Authorization": "Bearer " + token(t, userID, "other", time.Hour)}, http.StatusUnauthorized},
		{"expired", map[string]string{"Authorization": "Bearer " + token(t, userID, testSecret, -time.Minute)}, http.StatusUnauthorized},
		{"valid token, no host profile", bearer(t, userID), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodGet, "/api/v1/wallet", nil, tt.headers)
			assert.Equal(t, tt.want, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestInternalMiddleware(t *testing.T) {
	s := newTestServer()
	body := model.ConfirmPaymentRequest{BookingID: uuid.New(), PaymentID: uuid.New()}

	code, _ := s.do(t, http.MethodPost, "/internal/payments/confirm", body, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/internal/payments/confirm", body, map[string]string{InternalKeyHeader: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/internal/payments/confirm", body, internalKey())
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBookingToPayoutFlow(t *testing.T) {
	s := newTestServer()

	requester := uuid.New()
	host := &model.Host{ID: uuid.New(), UserID: uuid.New(), BankDetails: model.BankDetails{
		AccountHolderName: "Meera Iyer",
		AccountNumber:     "987654321098",
		IFSCCode:          "SBIN0000001",
	}}
	s.store.PutHost(host)

	start := time.Now().Add(24 * time.Hour).UTC()
	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"pets":     []string{"labrador"},
		"startAt":  start,
		"endAt":    start.Add(48 * time.Hour),
		"location": "Chennai",
	}, bearer(t, requester))
	require.Equal(t, http.StatusCreated, code, env.Message)
	var booking model.Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))

	code, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/accept", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/select",
		gin.H{"hostId": host.ID}, bearer(t, uuid.New()))
	assert.Equal(t, http.StatusForbidden, code, "only the requester may select")

	code, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/select",
		gin.H{"hostId": host.ID}, bearer(t, requester))
	require.Equal(t, http.StatusOK, code, env.Message)

	payment := &model.Payment{
		ID:        uuid.New(),
		BookingID: booking.ID,
		OrderID:   "order_abc",
		Amount:    decimal.NewFromInt(1000),
		Status:    string(model.PaymentCompleted),
	}
	s.store.PutPayment(payment)

	confirm := model.ConfirmPaymentRequest{BookingID: booking.ID, PaymentID: payment.ID}
	for i := 0; i < 2; i++ {
		code, env = s.do(t, http.MethodPost, "/internal/payments/confirm", confirm, internalKey())
		require.Equal(t, http.StatusOK, code, env.Message)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/wallet", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code)
	var summary model.WalletSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(764)), "balance %s", summary.Balance)
	assert.Len(t, summary.RecentTransactions, 1, "redelivered confirmation must not credit twice")

	code, env = s.do(t, http.MethodPost, "/api/v1/wallet/withdraw", gin.H{"amount": "1000"}, bearer(t, host.UserID))
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	for _, amount := range []any{"0", "10.005", "0.001", "abc", 0.001} {
		code, env = s.do(t, http.MethodPost, "/api/v1/wallet/withdraw", gin.H{"amount": amount}, bearer(t, host.UserID))
		assert.Equal(t, http.StatusBadRequest, code, "amount %v", amount)
	}
	code, env = s.do(t, http.MethodGet, "/api/v1/wallet", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(764)), "rejected amounts must not move money")

	headers := bearer(t, host.UserID)
	headers[IdempotencyKeyHeader] = "payout-1"
	code, env = s.do(t, http.MethodPost, "/api/v1/wallet/withdraw", gin.H{"amount": "500"}, headers)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var withdrawal model.WithdrawalResponse
	require.NoError(t, json.Unmarshal(env.Data, &withdrawal))
	assert.Equal(t, model.WithdrawalPending, withdrawal.Status)
	assert.Equal(t, "XXXXXXXX1098", withdrawal.AccountNumber)
	assert.NotContains(t, string(env.Data), "987654321098")
	assert.NotContains(t, string(env.Data), "SBIN0000001")

	code, env = s.do(t, http.MethodPost, "/api/v1/wallet/withdraw", gin.H{"amount": "500"}, headers)
	require.Equal(t, http.StatusCreated, code)
	var replay model.WithdrawalResponse
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.Equal(t, withdrawal.ID, replay.ID)

	statusPath := "/internal/withdrawals/" + withdrawal.ID.String() + "/status"
	code, _ = s.do(t, http.MethodPost, statusPath, gin.H{"status": "COMPLETED", "transactionId": "UTR1"}, internalKey())
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, statusPath, gin.H{"status": "FAILED", "remarks": "account closed"}, internalKey())
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/wallet", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(764)))
	assert.True(t, summary.TotalWithdrawn.Equal(decimal.NewFromInt(500)))
	assert.True(t, summary.TotalReversed.Equal(decimal.NewFromInt(500)))

	code, env = s.do(t, http.MethodGet, "/api/v1/wallet/withdrawals?page=1&limit=5", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code)
	var history struct {
		Withdrawals []model.WithdrawalResponse `json:"withdrawals"`
		Pagination  model.Pagination           `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Withdrawals, 1)
	assert.Equal(t, model.WithdrawalFailed, history.Withdrawals[0].Status)

	code, env = s.do(t, http.MethodGet, "/api/v1/wallet/transactions?limit=2", nil, bearer(t, host.UserID))
	require.Equal(t, http.StatusOK, code)
	var txns struct {
		Transactions []model.TransactionResponse `json:"transactions"`
		Pagination   model.Pagination            `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &txns))
	assert.Len(t, txns.Transactions, 2)
	assert.Equal(t, 3, txns.Pagination.Total)

	code, _ = s.do(t, http.MethodPost, "/internal/bookings/"+booking.ID.String()+"/complete", nil, internalKey())
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/internal/bookings/"+booking.ID.String()+"/complete", nil, internalKey())
	assert.Equal(t, http.StatusConflict, code)
}

func TestCancelWithdrawal(t *testing.T) {
	s := newTestServer()
	host := &model.Host{ID: uuid.New(), UserID: uuid.New(), BankDetails: model.BankDetails{UPIID: "host@upi"}}
	s.store.PutHost(host)

	_, env := s.do(t, http.MethodPost, "/api/v1/wallet/withdraw", gin.H{"amount": "10"}, bearer(t, host.UserID))
	assert.False(t, env.Success, "no wallet yet")

	code, _ := s.do(t, http.MethodPost, "/api/v1/wallet/withdrawals/not-a-uuid/cancel", nil, bearer(t, host.UserID))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/wallet/withdrawals/"+uuid.NewString()+"/cancel", nil, bearer(t, host.UserID))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPageParams(t *testing.T) {
	s := newTestServer()
	host := &model.Host{ID: uuid.New(), UserID: uuid.New()}
	s.store.PutHost(host)

	for _, q := range []string{"?page=0", "?page=x", "?limit=0", "?limit=101"} {
		code, _ := s.do(t, http.MethodGet, "/api/v1/wallet/transactions"+q, nil, bearer(t, host.UserID))
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind errors.ErrorType
		want int
	}{
		{errors.NotFound, http.StatusNotFound},
		{errors.InvalidAmount, http.StatusBadRequest},
		{errors.InvalidRequest, http.StatusBadRequest},
		{errors.IncompleteBankDetails, http.StatusBadRequest},
		{errors.InvalidHost, http.StatusBadRequest},
		{errors.HostNotSelected, http.StatusBadRequest},
		{errors.PaymentNotCompleted, http.StatusBadRequest},
		{errors.InsufficientFund, http.StatusUnprocessableEntity},
		{errors.AlreadySelected, http.StatusConflict},
		{errors.InvalidStateTransition, http.StatusConflict},
		{errors.Conflict, http.StatusConflict},
		{errors.Unauthorized, http.StatusForbidden},
		{errors.Indeterminate, http.StatusServiceUnavailable},
		{errors.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), string(tt.kind))
	}
}

func TestRespondError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, zap.NewNop(), stderrors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "internal server error")
}
