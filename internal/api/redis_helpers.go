package api

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

var (
	errLoginRateLimited = errors.New("rate limit exceeded")
	errLoginLocked      = errors.New("account temporarily locked")
)

// loginGuard 对登录做每 IP+邮箱 每小时的速率限制，并在连续失败后临时锁定邮箱。
// client 为 nil 时不做任何限制。Redis 故障时放行。
type loginGuard struct {
	client        redisRateCounter
	ratePerHour   int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

func newLoginGuard(client redisRateCounter, ratePerHour, lockThreshold int, lockTTL time.Duration) *loginGuard {
	return &loginGuard{
		client:        client,
		ratePerHour:   ratePerHour,
		lockThreshold: lockThreshold,
		lockTTL:       lockTTL,
		now:           time.Now,
	}
}

// Check 在校验口令之前调用。
func (g *loginGuard) Check(ctx context.Context, ip, email string) error {
	if g == nil || g.client == nil {
		return nil
	}

	if g.ratePerHour > 0 {
		rateKey := "rate:login:" + ip + ":" + email + ":" + g.now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, g.client, rateKey, time.Hour)
		if err == nil && count > int64(g.ratePerHour) {
			return errLoginRateLimited
		}
	}

	if ttl, _ := g.client.TTL(ctx, "lock:login:"+email).Result(); ttl > 0 {
		return errLoginLocked
	}
	return nil
}

// Fail 记录一次失败，达到阈值后写入锁定键。
func (g *loginGuard) Fail(ctx context.Context, email string) {
	if g == nil || g.client == nil || g.lockThreshold <= 0 {
		return
	}
	count, err := incrWithTTL(ctx, g.client, "lock:login:fail:"+email, g.lockTTL)
	if err != nil {
		return
	}
	if count >= int64(g.lockThreshold) {
		_ = g.client.Set(ctx, "lock:login:"+email, "1", g.lockTTL).Err()
	}
}

// Reset 登录成功后清理失败计数。
func (g *loginGuard) Reset(ctx context.Context, email string) {
	if g == nil || g.client == nil {
		return
	}
	_ = g.client.Del(ctx, "lock:login:fail:"+email).Err()
}
