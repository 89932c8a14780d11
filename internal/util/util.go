package util

import (
	"context"
	"time"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	RecentTxnCount  = 10
)

// NormalizePage clamps page and size into the accepted range.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

const (
	MaxUpdateRetries = 3
	RetryDelay       = 100 * time.Millisecond
)

// UpdateWithRetry runs attempt until it reports one row written. Zero rows
// means a concurrent writer bumped the version; attempt reloads and tries again.
func UpdateWithRetry(ctx context.Context, op string, maxRetries int, attempt func(ctx context.Context) (int64, error)) error {
	for i := 0; i < maxRetries; i++ {
		rows, err := attempt(ctx)
		if err != nil {
			return err
		}
		if rows == 1 {
			return nil
		}
		select {
		case <-time.After(RetryDelay):
		case <-ctx.Done():
			return errors.WrapInternal(op, ctx.Err())
		}
	}
	return errors.NewConflict(op, "optimistic lock conflict")
}
