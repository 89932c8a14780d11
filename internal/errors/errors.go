package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	InvalidRequest         ErrorType = "INVALID_REQUEST"
	InvalidAmount          ErrorType = "INVALID_AMOUNT"
	NotFound               ErrorType = "NOT_FOUND"
	InsufficientFund       ErrorType = "INSUFFICIENT_BALANCE"
	IncompleteBankDetails  ErrorType = "INCOMPLETE_BANK_DETAILS"
	InvalidHost            ErrorType = "INVALID_HOST"
	AlreadySelected        ErrorType = "ALREADY_SELECTED"
	HostNotSelected        ErrorType = "HOST_NOT_SELECTED"
	PaymentNotCompleted    ErrorType = "PAYMENT_NOT_COMPLETED"
	InvalidStateTransition ErrorType = "INVALID_STATE_TRANSITION"
	Unauthorized           ErrorType = "UNAUTHORIZED"
	Conflict               ErrorType = "CONFLICT"
	Indeterminate          ErrorType = "INDETERMINATE"
	Internal               ErrorType = "INTERNAL_ERROR"
)

type Error struct {
	Type    ErrorType
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s -> %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Type, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 快捷构造函数
func NewInvalidInput(op, field string, value interface{}) *Error {
	return &Error{
		Type:    InvalidRequest,
		Op:      op,
		Message: fmt.Sprintf("invalid %s: %v", field, value),
	}
}

func NewInvalidAmount(op string, value interface{}) *Error {
	return &Error{
		Type:    InvalidAmount,
		Op:      op,
		Message: fmt.Sprintf("invalid amount: %v", value),
	}
}

func NewNotFound(op, resource string) *Error {
	return &Error{
		Type:    NotFound,
		Op:      op,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewInsufficientBalance(op string) *Error {
	return &Error{
		Type:    InsufficientFund,
		Op:      op,
		Message: "insufficient balance",
	}
}

func NewIncompleteBankDetails(op string) *Error {
	return &Error{
		Type:    IncompleteBankDetails,
		Op:      op,
		Message: "bank or UPI details are incomplete",
	}
}

func NewInvalidHost(op string) *Error {
	return &Error{
		Type:    InvalidHost,
		Op:      op,
		Message: "host has not accepted this booking",
	}
}

func NewAlreadySelected(op string) *Error {
	return &Error{
		Type:    AlreadySelected,
		Op:      op,
		Message: "a different host is already selected for this booking",
	}
}

func NewHostNotSelected(op string) *Error {
	return &Error{
		Type:    HostNotSelected,
		Op:      op,
		Message: "no host selected for this booking",
	}
}

func NewPaymentNotCompleted(op string) *Error {
	return &Error{
		Type:    PaymentNotCompleted,
		Op:      op,
		Message: "booking payment is not completed",
	}
}

func NewInvalidTransition(op string, from, to interface{}) *Error {
	return &Error{
		Type:    InvalidStateTransition,
		Op:      op,
		Message: fmt.Sprintf("cannot move from %v to %v", from, to),
	}
}

func NewUnauthorized(op, msg string) *Error {
	return &Error{
		Type:    Unauthorized,
		Op:      op,
		Message: msg,
	}
}

func NewInternal(op string, err error) *Error {
	return &Error{
		Type:    Internal,
		Op:      op,
		Message: "internal server error",
		Err:     err,
	}
}

// NewIndeterminate marks a failure inside an atomic write. The write may or may
// not have been applied; callers must re-read state before retrying.
func NewIndeterminate(op string, err error) *Error {
	return &Error{
		Type:    Indeterminate,
		Op:      op,
		Message: "operation outcome unknown, verify state before retrying",
		Err:     err,
	}
}

func NewConflict(op, msg string) *Error {
	return &Error{
		Type:    Conflict,
		Op:      op,
		Message: msg,
	}
}

// 辅助函数
func KindOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return Internal
}

func Is(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

func IsNotFound(err error) bool {
	return Is(err, NotFound)
}

// AsTyped reports whether err already carries a domain classification.
func AsTyped(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

func WrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsTyped(err); ok {
		return err
	}
	return NewInternal(op, err)
}

// WrapIndeterminate keeps domain errors raised inside an atomic unit as they are
// and turns everything else into an Indeterminate error.
func WrapIndeterminate(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsTyped(err); ok {
		return err
	}
	return NewIndeterminate(op, err)
}
