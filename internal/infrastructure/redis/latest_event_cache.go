package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"auction-relay/internal/domain"
)

// RedisLatestEventCache keeps the most recent accepted event per auction.
type RedisLatestEventCache struct {
	client *redis.Client
}

func NewRedisLatestEventCache(client *redis.Client) *RedisLatestEventCache {
	return &RedisLatestEventCache{client: client}
}

func latestKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:latest", auctionID)
}

func (r *RedisLatestEventCache) SetLatest(ctx context.Context, message *domain.BidBroadcastMessage) error {
	payload, err := encodeEvent(message)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, latestKey(message.AuctionID), payload, 0).Err()
}

// GetLatest returns nil without an error when the auction has no events yet.
func (r *RedisLatestEventCache) GetLatest(ctx context.Context, auctionID string) (*domain.BidBroadcastMessage, error) {
	result, err := r.client.Get(ctx, latestKey(auctionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeEvent(result)
}
