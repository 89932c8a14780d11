package util

import (
	"github.com/shopspring/decimal"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
)

const (
	PlatformCommissionPercentage = 20
	GSTPercentage                = 18

	// minor-unit precision of the settlement currency
	currencyPlaces = 2
)

var hundred = decimal.NewFromInt(100)

type FeeBreakdown struct {
	GrossAmount decimal.Decimal `json:"grossAmount"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	GSTAmount   decimal.Decimal `json:"gstAmount"`
	NetAmount   decimal.Decimal `json:"netAmount"`
}

// FeeSchedule holds the commission and tax rates in percent. GST is charged on
// the platform fee, not on the gross amount.
type FeeSchedule struct {
	CommissionPercentage decimal.Decimal
	GSTPercentage        decimal.Decimal
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CommissionPercentage: decimal.NewFromInt(PlatformCommissionPercentage),
		GSTPercentage:        decimal.NewFromInt(GSTPercentage),
	}
}

func (s FeeSchedule) Validate() error {
	const op = "util.FeeSchedule.Validate"

	if s.CommissionPercentage.IsNegative() || s.CommissionPercentage.GreaterThan(hundred) {
		return errors.NewInvalidInput(op, "commission percentage", s.CommissionPercentage)
	}
	if s.GSTPercentage.IsNegative() || s.GSTPercentage.GreaterThan(hundred) {
		return errors.NewInvalidInput(op, "gst percentage", s.GSTPercentage)
	}
	return nil
}

// Compute splits gross into fee, tax and net. Fee and tax are rounded to the
// currency's minor unit and net takes the remainder, so the three always sum
// to gross.
func (s FeeSchedule) Compute(gross decimal.Decimal) (FeeBreakdown, error) {
	const op = "util.ComputeFees"

	if gross.IsNegative() || !InMinorUnits(gross) {
		return FeeBreakdown{}, errors.NewInvalidAmount(op, gross)
	}

	fee := gross.Mul(s.CommissionPercentage).Div(hundred).Round(currencyPlaces)
	gst := fee.Mul(s.GSTPercentage).Div(hundred).Round(currencyPlaces)

	return FeeBreakdown{
		GrossAmount: gross,
		PlatformFee: fee,
		GSTAmount:   gst,
		NetAmount:   gross.Sub(fee).Sub(gst),
	}, nil
}

func ComputeFees(gross decimal.Decimal) (FeeBreakdown, error) {
	return DefaultFeeSchedule().Compute(gross)
}

// InMinorUnits reports whether amount needs no more than two decimal places.
func InMinorUnits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(currencyPlaces))
}

// ValidateAmount accepts positive amounts that the ledger can store exactly.
func ValidateAmount(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() || !InMinorUnits(amount) {
		return errors.NewInvalidAmount(op, amount)
	}
	return nil
}

// ParseAmount parses user input into a money amount. Anything that is not a
// positive decimal with at most two places is rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	const op = "util.ParseAmount"

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.NewInvalidAmount(op, raw)
	}
	if err := ValidateAmount(op, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
