package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations. Redis backs
// the two pieces of rotation state the pipeline needs between selections:
// the seen-ads/seen-advertisers memories and the per-creative-set pacing
// serve counters.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

func seenAdsKey(adType string) string {
	return fmt.Sprintf("seen:ads:%s", adType)
}

func seenAdvertisersKey(adType string) string {
	return fmt.Sprintf("seen:advertisers:%s", adType)
}

// SeenAds returns the set of creative instance ids already served in the
// current rotation for the ad type.
func (r *RedisStore) SeenAds(adType string) (map[string]struct{}, error) {
	return r.members(seenAdsKey(adType))
}

// SeenAdvertisers returns the set of advertiser ids already served in the
// current rotation for the ad type.
func (r *RedisStore) SeenAdvertisers(adType string) (map[string]struct{}, error) {
	return r.members(seenAdvertisersKey(adType))
}

// MarkAdAsSeen records a served creative instance and its advertiser in
// the rotation memories.
func (r *RedisStore) MarkAdAsSeen(adType, creativeInstanceID, advertiserID string) error {
	if err := r.Client.SAdd(r.Ctx, seenAdsKey(adType), creativeInstanceID).Err(); err != nil {
		return err
	}
	return r.Client.SAdd(r.Ctx, seenAdvertisersKey(adType), advertiserID).Err()
}

// ResetSeenAds clears the seen-ads rotation memory for the ad type.
func (r *RedisStore) ResetSeenAds(adType string) error {
	return r.Client.Del(r.Ctx, seenAdsKey(adType)).Err()
}

// ResetSeenAdvertisers clears the seen-advertisers rotation memory for the
// ad type.
func (r *RedisStore) ResetSeenAdvertisers(adType string) error {
	return r.Client.Del(r.Ctx, seenAdvertisersKey(adType)).Err()
}

func (r *RedisStore) members(key string) (map[string]struct{}, error) {
	vals, err := r.Client.SMembers(r.Ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out, nil
}

// CreativeSetServesToday returns today's pacing serve count for a creative
// set. A missing key reads as zero.
func (r *RedisStore) CreativeSetServesToday(creativeSetID string, day string) (int64, error) {
	key := fmt.Sprintf("pacing:serves:%s:%s", creativeSetID, day)
	val, err := r.Client.Get(r.Ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

// IncrementCreativeSetServes bumps the pacing counter for a creative set.
// A 24h TTL is applied on first set.
func (r *RedisStore) IncrementCreativeSetServes(creativeSetID string, day string) error {
	key := fmt.Sprintf("pacing:serves:%s:%s", creativeSetID, day)
	newVal, err := r.Client.Incr(r.Ctx, key).Result()
	if err != nil {
		return err
	}
	if newVal == 1 {
		r.Client.Expire(r.Ctx, key, 24*time.Hour)
	}
	return nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
