package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/repository"
)

const instrumentationName = "github.com/Jiang-hao/hostWalletService/internal/service"

var noopMeter = noop.NewMeterProvider().Meter(instrumentationName)

// Repositories bundles the stores the services read from and write through.
type Repositories struct {
	Wallets      repository.WalletRepository
	Transactions repository.TransactionRepository
	Withdrawals  repository.WithdrawalRepository
	Bookings     repository.BookingRepository
	Hosts        repository.HostRepository
	Payments     repository.PaymentRepository
	TxManager    repository.TxManager
}

type serviceMetrics struct {
	credits               metric.Int64Counter
	duplicateCredits      metric.Int64Counter
	withdrawals           metric.Int64Counter
	withdrawalTransitions metric.Int64Counter
	bookingConflicts      metric.Int64Counter
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// newServiceMetrics registers the counters on the global meter provider. An
// instrument that fails to register falls back to a no-op counter.
func newServiceMetrics(logger *zap.Logger) *serviceMetrics {
	meter := otel.Meter(instrumentationName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Warn("failed to register counter", zap.String("name", name), zap.Error(err))
			c, _ = noopMeter.Int64Counter(name)
		}
		return c
	}

	return &serviceMetrics{
		credits:               counter("wallet.credits", "booking payments credited to host wallets"),
		duplicateCredits:      counter("wallet.credits.duplicate", "credit calls deduplicated by payment order id"),
		withdrawals:           counter("wallet.withdrawals", "withdrawal requests accepted"),
		withdrawalTransitions: counter("wallet.withdrawals.transitions", "withdrawal status changes"),
		bookingConflicts:      counter("booking.update.conflicts", "optimistic lock retries on booking updates"),
	}
}
