package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/config"
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker is a distributed per-key lock built on SET NX PX. The TTL
// bounds how long a crashed holder can block a vendor.
type RedisLocker struct {
	rdb  *redis.Client
	cfg  config.LockConfig
	log  *zap.Logger
	poll time.Duration
}

// NewRedisLocker builds a RedisLocker. rdb must not be nil.
func NewRedisLocker(rdb *redis.Client, cfg config.LockConfig, log *zap.Logger) *RedisLocker {
	if rdb == nil {
		panic("nil redis client passed to NewRedisLocker")
	}
	if log == nil {
		log = zap.NewNop()
	}
	poll := cfg.Timeout / 20
	if poll < 10*time.Millisecond {
		poll = 10 * time.Millisecond
	}
	return &RedisLocker{rdb: rdb, cfg: cfg, log: log.Named("lock"), poll: poll}
}

// Acquire polls SET NX until it wins or cfg.Timeout elapses.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := l.cfg.Prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Timeout)

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis lock %s: %v", availability.ErrTransient, full, err)
		}
		if ok {
			return func() { l.release(full, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: lock %s held by another request", availability.ErrTransient, full)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", availability.ErrTransient, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	// The request context may already be cancelled; release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}
