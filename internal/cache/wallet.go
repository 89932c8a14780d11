package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/model"
)

const DefaultSummaryTTL = 5 * time.Minute

// WalletCache holds rendered wallet summaries keyed by wallet owner. A miss
// or a cache failure is never an error for the caller; the ledger is the
// source of truth.
type WalletCache interface {
	GetSummary(ctx context.Context, userID, hostID uuid.UUID) (*model.WalletSummary, bool)
	SetSummary(ctx context.Context, userID, hostID uuid.UUID, summary *model.WalletSummary)
	Invalidate(ctx context.Context, userID, hostID uuid.UUID)
}

type redisWalletCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisWalletCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) WalletCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &redisWalletCache{client: client, ttl: ttl, logger: logger}
}

func summaryKey(userID, hostID uuid.UUID) string {
	return fmt.Sprintf("wallet:summary:%s:%s", userID, hostID)
}

func (c *redisWalletCache) GetSummary(ctx context.Context, userID, hostID uuid.UUID) (*model.WalletSummary, bool) {
	val, err := c.client.Get(ctx, summaryKey(userID, hostID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("wallet cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var summary model.WalletSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		c.logger.Warn("wallet cache entry unreadable", zap.Error(err))
		return nil, false
	}
	return &summary, true
}

func (c *redisWalletCache) SetSummary(ctx context.Context, userID, hostID uuid.UUID, summary *model.WalletSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(userID, hostID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("wallet cache write failed", zap.Error(err))
	}
}

func (c *redisWalletCache) Invalidate(ctx context.Context, userID, hostID uuid.UUID) {
	if err := c.client.Del(ctx, summaryKey(userID, hostID)).Err(); err != nil {
		c.logger.Warn("wallet cache invalidation failed",
			zap.Stringer("user_id", userID), zap.Stringer("host_id", hostID), zap.Error(err))
	}
}

type nopWalletCache struct{}

// NewNopWalletCache is used when no Redis address is configured.
func NewNopWalletCache() WalletCache { return nopWalletCache{} }

func (nopWalletCache) GetSummary(context.Context, uuid.UUID, uuid.UUID) (*model.WalletSummary, bool) {
	return nil, false
}
func (nopWalletCache) SetSummary(context.Context, uuid.UUID, uuid.UUID, *model.WalletSummary) {}
func (nopWalletCache) Invalidate(context.Context, uuid.UUID, uuid.UUID)                       {}
