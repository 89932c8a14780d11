package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/Jiang-hao/hostWalletService/internal/errors"
	"github.com/Jiang-hao/hostWalletService/internal/model"
)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// UpdateBooking writes booking only if the stored version still equals
	// expectedVersion and reports the rows affected.
	UpdateBooking(ctx context.Context, booking *model.Booking, expectedVersion int) (int64, error)
}

type bookingRow struct {
	ID             uuid.UUID      `db:"id"`
	RequesterID    uuid.UUID      `db:"requester_id"`
	Pets           pq.StringArray `db:"pets"`
	StartAt        time.Time      `db:"start_at"`
	EndAt          time.Time      `db:"end_at"`
	Location       string         `db:"location"`
	DietPreference string         `db:"diet_preference"`
	AcceptedHosts  pq.StringArray `db:"accepted_hosts"`
	SelectedHost   uuid.NullUUID  `db:"selected_host"`
	PaymentStatus  string         `db:"payment_status"`
	PaymentID      uuid.NullUUID  `db:"payment_id"`
	Status         string         `db:"status"`
	Version        int            `db:"version"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func toBookingRow(b *model.Booking) bookingRow {
	hosts := make(pq.StringArray, 0, len(b.AcceptedHosts))
	for _, h := range b.AcceptedHosts {
		hosts = append(hosts, h.String())
	}
	row := bookingRow{
		ID:             b.ID,
		RequesterID:    b.RequesterID,
		Pets:           pq.StringArray(b.Pets),
		StartAt:        b.StartAt,
		EndAt:          b.EndAt,
		Location:       b.Location,
		DietPreference: b.DietPreference,
		AcceptedHosts:  hosts,
		PaymentStatus:  string(b.PaymentStatus),
		Status:         string(b.Status),
		Version:        b.Version,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.SelectedHost != nil {
		row.SelectedHost = uuid.NullUUID{UUID: *b.SelectedHost, Valid: true}
	}
	if b.PaymentID != nil {
		row.PaymentID = uuid.NullUUID{UUID: *b.PaymentID, Valid: true}
	}
	return row
}

func (row bookingRow) toModel() (*model.Booking, error) {
	hosts := make([]uuid.UUID, 0, len(row.AcceptedHosts))
	for _, h := range row.AcceptedHosts {
		id, err := uuid.Parse(h)
		if err != nil {
			return nil, fmt.Errorf("invalid accepted host id %q: %w", h, err)
		}
		hosts = append(hosts, id)
	}
	b := &model.Booking{
		ID:             row.ID,
		RequesterID:    row.RequesterID,
		Pets:           []string(row.Pets),
		StartAt:        row.StartAt,
		EndAt:          row.EndAt,
		Location:       row.Location,
		DietPreference: row.DietPreference,
		AcceptedHosts:  hosts,
		PaymentStatus:  model.PaymentStatus(row.PaymentStatus),
		Status:         model.BookingStatus(row.Status),
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.SelectedHost.Valid {
		h := row.SelectedHost.UUID
		b.SelectedHost = &h
	}
	if row.PaymentID.Valid {
		p := row.PaymentID.UUID
		b.PaymentID = &p
	}
	return b, nil
}

type bookingRepo struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) CreateBooking(ctx context.Context, booking *model.Booking) error {
	query := `INSERT INTO bookings (id, requester_id, pets, start_at, end_at, location, diet_preference,
	              accepted_hosts, selected_host, payment_status, payment_id, status, version, created_at, updated_at)
	          VALUES (:id, :requester_id, :pets, :start_at, :end_at, :location, :diet_preference,
	              CAST(:accepted_hosts AS uuid[]), :selected_host, :payment_status, :payment_id, :status, :version, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, toBookingRow(booking))
	return mapWriteErr("repository.CreateBooking", err)
}

func (r *bookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	const op = "repository.GetBooking"

	var row bookingRow
	query := `SELECT id, requester_id, pets, start_at, end_at, location, diet_preference,
	                 accepted_hosts::text[] AS accepted_hosts, selected_host, payment_status, payment_id,
	                 status, version, created_at, updated_at
	          FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound(op, "booking")
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.toModel()
}

func (r *bookingRepo) UpdateBooking(ctx context.Context, booking *model.Booking, expectedVersion int) (int64, error) {
	row := toBookingRow(booking)
	query := `UPDATE bookings
	          SET accepted_hosts = $1::uuid[], selected_host = $2, payment_status = $3, payment_id = $4,
	              status = $5, version = version + 1, updated_at = NOW()
	          WHERE id = $6 AND version = $7`
	result, err := r.db.ExecContext(ctx, query,
		row.AcceptedHosts, row.SelectedHost, row.PaymentStatus, row.PaymentID, row.Status, row.ID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update booking: %w", err)
	}
	return result.RowsAffected()
}
