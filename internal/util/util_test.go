package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, DefaultPage, DefaultPageSize},
		{3, 20, 3, 20},
		{-1, 500, DefaultPage, MaxPageSize},
	}
	for _, tt := range tests {
		page, size := NormalizePage(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
	assert.Equal(t, 20, Offset(3, 10))
}

func TestUpdateWithRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := UpdateWithRetry(ctx, "test", MaxUpdateRetries, func(context.Context) (int64, error) {
		calls++
		if calls < 2 {
			return 0, nil
		}
		return 1, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = UpdateWithRetry(ctx, "test", MaxUpdateRetries, func(context.Context) (int64, error) {
		calls++
		return 0, nil
	})
	assert.True(t, errors.Is(err, errors.Conflict))
	assert.Equal(t, MaxUpdateRetries, calls)

	want := errors.NewNotFound("test", "booking")
	err = UpdateWithRetry(ctx, "test", MaxUpdateRetries, func(context.Context) (int64, error) {
		return 0, want
	})
	assert.Equal(t, want, err)
}
