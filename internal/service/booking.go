package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

type BookingService interface {
	CreateBooking(ctx context.Context, requesterID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	AcceptHost(ctx context.Context, bookingID, hostID uuid.UUID) (*model.Booking, error)
	SelectHost(ctx context.Context, requesterID, bookingID, hostID uuid.UUID) (*model.Booking, error)
	MarkPaymentCompleted(ctx context.Context, bookingID, paymentID uuid.UUID) (*model.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error)
}

type bookingService struct {
	repos   Repositories
	logger  *zap.Logger
	metrics *serviceMetrics
}

func NewBookingService(repos Repositories, logger *zap.Logger) BookingService {
	return &bookingService{
		repos:   repos,
		logger:  logger,
		metrics: newServiceMetrics(logger),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, requesterID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	const op = "service.CreateBooking"

	if len(req.Pets) == 0 {
		return nil, errors.NewInvalidInput(op, "pets", req.Pets)
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, errors.NewInvalidInput(op, "endAt", req.EndAt)
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, errors.NewInvalidInput(op, "location", req.Location)
	}

	now := time.Now().UTC()
	booking := &model.Booking{
		ID:             uuid.New(),
		RequesterID:    requesterID,
		Pets:           req.Pets,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Location:       req.Location,
		DietPreference: req.DietPreference,
		AcceptedHosts:  []uuid.UUID{},
		PaymentStatus:  model.PaymentPending,
		Status:         model.BookingCreated,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repos.Bookings.CreateBooking(ctx, booking); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	s.logger.Info("booking created", zap.Stringer("booking_id", booking.ID), zap.Stringer("requester_id", requesterID))
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	const op = "service.GetBooking"

	booking, err := s.repos.Bookings.GetBooking(ctx, id)
	return booking, errors.WrapInternal(op, err)
}

// AcceptHost records that hostID is willing to take the booking. Accepting
// twice is not an error.
func (s *bookingService) AcceptHost(ctx context.Context, bookingID, hostID uuid.UUID) (*model.Booking, error) {
	const op = "service.AcceptHost"

	if _, err := s.repos.Hosts.GetHost(ctx, hostID); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	return s.mutate(ctx, op, bookingID, func(b *model.Booking) (bool, error) {
		if b.HasAccepted(hostID) {
			return false, nil
		}
		if b.SelectedHost != nil {
			return false, errors.NewAlreadySelected(op)
		}
		b.AcceptedHosts = append(b.AcceptedHosts, hostID)
		if b.Status == model.BookingCreated {
			b.Status = model.BookingHostsAccepted
		}
		return true, nil
	})
}

// SelectHost is single-assignment: once a host is selected only the same
// selection can be repeated.
func (s *bookingService) SelectHost(ctx context.Context, requesterID, bookingID, hostID uuid.UUID) (*model.Booking, error) {
	const op = "service.SelectHost"

	return s.mutate(ctx, op, bookingID, func(b *model.Booking) (bool, error) {
		if b.RequesterID != requesterID {
			return false, errors.NewUnauthorized(op, "only the requester can select a host")
		}
		if b.SelectedHost != nil {
			if *b.SelectedHost == hostID {
				return false, nil
			}
			return false, errors.NewAlreadySelected(op)
		}
		if !b.HasAccepted(hostID) {
			return false, errors.NewInvalidHost(op)
		}
		selected := hostID
		b.SelectedHost = &selected
		b.Status = model.BookingHostSelected
		return true, nil
	})
}

func (s *bookingService) MarkPaymentCompleted(ctx context.Context, bookingID, paymentID uuid.UUID) (*model.Booking, error) {
	const op = "service.MarkPaymentCompleted"

	payment, err := s.repos.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if payment.BookingID != bookingID {
		return nil, errors.NewNotFound(op, "payment for booking")
	}
	if payment.Status != string(model.PaymentCompleted) {
		return nil, errors.NewPaymentNotCompleted(op)
	}

	return s.mutate(ctx, op, bookingID, func(b *model.Booking) (bool, error) {
		if b.SelectedHost == nil {
			return false, errors.NewHostNotSelected(op)
		}
		if b.PaymentStatus == model.PaymentCompleted {
			if b.PaymentID != nil && *b.PaymentID != paymentID {
				return false, errors.NewConflict(op, "booking already paid by another payment")
			}
			return false, nil
		}
		id := paymentID
		b.PaymentID = &id
		b.PaymentStatus = model.PaymentCompleted
		b.Status = model.BookingPaid
		return true, nil
	})
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	const op = "service.CompleteBooking"

	return s.mutate(ctx, op, bookingID, func(b *model.Booking) (bool, error) {
		if b.Status != model.BookingPaid {
			return false, errors.NewInvalidTransition(op, b.Status, model.BookingCompleted)
		}
		b.Status = model.BookingCompleted
		return true, nil
	})
}

// mutate loads the booking, lets apply change a copy, and writes it back
// conditioned on the version it read. apply returning false means there is
// nothing to write.
func (s *bookingService) mutate(ctx context.Context, op string, bookingID uuid.UUID, apply func(b *model.Booking) (bool, error)) (*model.Booking, error) {
	ctx, span := tracer().Start(ctx, "booking.update")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", bookingID.String()), attribute.String("op", op))

	var result *model.Booking
	err := util.UpdateWithRetry(ctx, op, util.MaxUpdateRetries, func(ctx context.Context) (int64, error) {
		current, err := s.repos.Bookings.GetBooking(ctx, bookingID)
		if err != nil {
			return 0, errors.WrapInternal(op, err)
		}

		next := current.Clone()
		changed, err := apply(next)
		if err != nil {
			return 0, err
		}
		if !changed {
			result = current
			return 1, nil
		}

		next.UpdatedAt = time.Now().UTC()
		rows, err := s.repos.Bookings.UpdateBooking(ctx, next, current.Version)
		if err != nil {
			return 0, errors.WrapInternal(op, err)
		}
		if rows == 1 {
			next.Version = current.Version + 1
			result = next
		} else {
			s.metrics.bookingConflicts.Add(ctx, 1)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking updated",
		zap.String("op", op),
		zap.Stringer("booking_id", result.ID),
		zap.String("status", string(result.Status)))
	return result, nil
}
