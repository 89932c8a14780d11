package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingCreated       BookingStatus = "created"
	BookingHostsAccepted BookingStatus = "hosts_accepted"
	BookingHostSelected  BookingStatus = "host_selected"
	BookingPaid          BookingStatus = "paid"
	BookingCompleted     BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Booking struct {
	ID             uuid.UUID     `json:"id"`
	RequesterID    uuid.UUID     `json:"requesterId"`
	Pets           []string      `json:"pets"`
	StartAt        time.Time     `json:"startAt"`
	EndAt          time.Time     `json:"endAt"`
	Location       string        `json:"location"`
	DietPreference string        `json:"dietPreference,omitempty"`
	AcceptedHosts  []uuid.UUID   `json:"acceptedHosts"`
	SelectedHost   *uuid.UUID    `json:"selectedHost,omitempty"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	PaymentID      *uuid.UUID    `json:"paymentId,omitempty"`
	Status         BookingStatus `json:"status"`
	Version        int           `json:"-"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (b *Booking) HasAccepted(hostID uuid.UUID) bool {
	for _, h := range b.AcceptedHosts {
		if h == hostID {
			return true
		}
	}
	return false
}

// Clone copies the slices so a staged update never aliases the stored booking.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Pets = append([]string(nil), b.Pets...)
	c.AcceptedHosts = append([]uuid.UUID(nil), b.AcceptedHosts...)
	if b.SelectedHost != nil {
		h := *b.SelectedHost
		c.SelectedHost = &h
	}
	if b.PaymentID != nil {
		p := *b.PaymentID
		c.PaymentID = &p
	}
	return &c
}

type CreateBookingRequest struct {
	Pets           []string  `json:"pets" binding:"required,min=1"`
	StartAt        time.Time `json:"startAt" binding:"required"`
	EndAt          time.Time `json:"endAt" binding:"required"`
	Location       string    `json:"location" binding:"required"`
	DietPreference string    `json:"dietPreference"`
}

type SelectHostRequest struct {
	HostID uuid.UUID `json:"hostId" binding:"required"`
}

type ConfirmPaymentRequest struct {
	BookingID uuid.UUID `json:"bookingId" binding:"required"`
	PaymentID uuid.UUID `json:"paymentId" binding:"required"`
}

// Payment is owned by the payment gateway integration and read here only.
type Payment struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	BookingID uuid.UUID       `db:"booking_id" json:"bookingId"`
	OrderID   string          `db:"order_id" json:"orderId"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Host is the boarding host profile. Wallets are keyed by (UserID, ID).
type Host struct {
	ID     uuid.UUID `db:"id" json:"id"`
	UserID uuid.UUID `db:"user_id" json:"userId"`
	BankDetails
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
