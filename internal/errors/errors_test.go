package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"typed", NewNotFound("op", "wallet"), NotFound},
		{"wrapped typed", fmt.Errorf("ctx: %w", NewInsufficientBalance("op")), InsufficientFund},
		{"plain", stderrors.New("boom"), Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection reset")

	err := WrapIndeterminate("op", cause)
	assert.True(t, Is(err, Indeterminate))
	assert.ErrorIs(t, err, cause)

	typed := NewInsufficientBalance("op")
	assert.Equal(t, typed, WrapIndeterminate("op", typed))
	assert.Equal(t, typed, WrapInternal("op", typed))

	assert.True(t, Is(WrapInternal("op", cause), Internal))
	assert.NoError(t, WrapInternal("op", nil))
	assert.NoError(t, WrapIndeterminate("op", nil))
}

func TestError_Message(t *testing.T) {
	err := NewInternal("service.GetWallet", stderrors.New("db down"))
	assert.Equal(t, "INTERNAL_ERROR [service.GetWallet]: internal server error -> db down", err.Error())

	assert.Equal(t, "NOT_FOUND [op]: booking not found", NewNotFound("op", "booking").Error())
}
