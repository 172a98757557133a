package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gatekeeper/internal/models"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// appendUsageScript adds one member to every usage key, trims entries that
// fell out of the retention horizon and refreshes the key TTL, atomically.
//
// KEYS: usage keys. ARGV[1] score (unix µs), ARGV[2] member (event id),
// ARGV[3] oldest score to keep, ARGV[4] ttl in milliseconds.
var appendUsageScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
  redis.call("ZADD", key, ARGV[1], ARGV[2])
  redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. ARGV[3])
  redis.call("PEXPIRE", key, ARGV[4])
end
return #KEYS
`)

// RedisStore implements the Store interface on Redis sorted sets scored by
// event time in unix microseconds.
//
// Key layout:
//
//	<prefix>abuse:<dimension>:<hash>          members are JSON abuse events
//	<prefix>usage:<dimension>:<hash>:<action> members are usage event ids
//
// Usage keys expire after the configured retention; abuse keys are kept
// until removed by the external retention process.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore connects to config.Redis.Addr.
func NewRedisStore(config Config) (*RedisStore, error) {
	rc := config.Redis
	if rc.Addr == "" {
		return nil, fmt.Errorf("address is required for redis storage")
	}
	if rc.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive for redis storage")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		PoolSize: rc.PoolSize,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		prefix:    rc.KeyPrefix,
		retention: rc.Retention,
		now:       time.Now,
	}, nil
}

func (rs *RedisStore) abuseKey(dim models.Dimension, hash string) string {
	return rs.prefix + "abuse:" + string(dim) + ":" + hash
}

func (rs *RedisStore) usageKey(dim models.Dimension, hash, action string) string {
	return rs.prefix + "usage:" + string(dim) + ":" + hash + ":" + action
}

// LatestAbuseEvent returns the highest-scored abuse event for the hash.
func (rs *RedisStore) LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error) {
	if err := validateDimension(dim); err != nil {
		return nil, err
	}

	members, err := rs.client.ZRevRangeWithScores(ctx, rs.abuseKey(dim, hash), 0, 0).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to query latest abuse event: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	raw, ok := members[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected abuse event member type %T", members[0].Member)
	}

	var event models.AbuseEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("failed to decode abuse event: %w", err)
	}
	return &event, nil
}

// UsageInWindow counts members scored after since and fetches the oldest.
func (rs *RedisStore) UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error) {
	if err := validateDimension(dim); err != nil {
		return models.UsageWindow{}, err
	}

	key := rs.usageKey(dim, hash, action)
	lower := "(" + strconv.FormatInt(toMicros(since), 10)

	pipe := rs.client.Pipeline()
	countCmd := pipe.ZCount(ctx, key, lower, "+inf")
	oldestCmd := pipe.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: lower, Max: "+inf", Offset: 0, Count: 1})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return models.UsageWindow{}, fmt.Errorf("failed to count usage events: %w", err)
	}

	window := models.UsageWindow{Count: int(countCmd.Val())}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		window.Oldest = fromMicros(int64(oldest[0].Score))
	}
	return window, nil
}

// AppendUsageEvent adds the event id to the usage key of every present dimension.
func (rs *RedisStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	if err := validateUsageEvent(event); err != nil {
		return err
	}

	id := event.Identity()
	keys := make([]string, 0, 2)
	for _, dim := range id.Dimensions() {
		keys = append(keys, rs.usageKey(dim, id.Hash(dim), event.Action))
	}

	keepFrom := rs.now().Add(-rs.retention)
	err := appendUsageScript.Run(ctx, rs.client, keys,
		toMicros(event.CreatedAt),
		event.ID,
		toMicros(keepFrom),
		rs.retention.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	return nil
}

// AppendAbuseEvent stores the encoded event under every present dimension.
func (rs *RedisStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	if err := validateAbuseEvent(event); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode abuse event: %w", err)
	}

	id := event.Identity()
	score := float64(toMicros(event.CreatedAt))
	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, dim := range id.Dimensions() {
			pipe.ZAdd(ctx, rs.abuseKey(dim, id.Hash(dim)), redis.Z{Score: score, Member: string(payload)})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append abuse event: %w", err)
	}
	return nil
}

// Ping checks the redis connection
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close closes the redis client
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
