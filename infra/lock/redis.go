// Package lock provides a redis-backed process lock for the scheduler sweep,
// so multiple instances sharing one database do not sweep at the same time.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sweepKey = "moneyapp:scheduler:sweep"

// RedisSweepLock is a best-effort mutex over SET NX. The TTL bounds how long
// a crashed holder can block other instances; correctness against
// double-firing still rests on the per-schedule row locks.
type RedisSweepLock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
	logger *slog.Logger
}

// New creates a sweep lock with the given TTL.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSweepLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSweepLock{
		client: client,
		ttl:    ttl,
		token:  uuid.NewString(),
		logger: logger.With("component", "RedisSweepLock"),
	}
}

// TryLock attempts to take the lock without blocking.
func (l *RedisSweepLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, sweepKey, l.token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Unlock releases the lock if this instance still holds it. A compare before
// delete keeps one instance from releasing a lock the TTL already handed to
// another.
func (l *RedisSweepLock) Unlock(ctx context.Context) error {
	const script = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`
	released, err := l.client.Eval(ctx, script, []string{sweepKey}, l.token).Int()
	if err != nil {
		return err
	}
	if released == 0 {
		l.logger.Warn("sweep lock expired before release")
	}
	return nil
}
