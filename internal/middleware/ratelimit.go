package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/config"
)

// tokenBucketScript refills the bucket stored under KEYS[1] and takes one
// token from it. ARGV: capacity, refill tokens, refill interval (ms), ttl
// (s), now (ms). It replies {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local every = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(state[1]), tonumber(state[2])
if not tokens or not at then
    tokens, at = capacity, now
end

local steps = math.floor(math.max(0, now - at) / every)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    at = at + steps * every
end

local allowed, wait = 0, 0
if tokens >= 1 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, every - (now - at))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// verdict is the outcome of one take from a bucket.
type verdict struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (verdict, error) {
    reply, err := tokenBucketScript.Run(ctx, rdb, []string{key},
        cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second), now.UnixMilli(),
    ).Int64Slice()
    if err != nil {
        return verdict{}, err
    }
    if len(reply) != 3 {
        return verdict{}, fmt.Errorf("token bucket: unexpected reply %v", reply)
    }
    return verdict{
        allowed:   reply[0] == 1,
        remaining: reply[1],
        retry:     time.Duration(reply[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests with a token bucket kept in Redis. Keys
// that include the user only tell accounts apart when the limiter runs
// after TokenAuth; before it every caller is a guest. When Redis is
// missing or failing, requests go through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            v, err := take(c.Request().Context(), rdb, cfg, key, time.Now())
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if v.allowed {
                return next(c)
            }

            secs := int((v.retry + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.WithField("key", key).WithField("retry_after", secs).Info("rate limited")
            }
            return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Attempts.")
        }
    }
}

// rateKeyParts lists the request attributes of each key strategy.
var rateKeyParts = map[string][]string{
    "ip":         {"ip"},
    "user":       {"user"},
    "route":      {"route"},
    "ip_user":    {"ip", "user"},
    "ip_route":   {"ip", "route"},
    "user_route": {"user", "route"},
}

// rateKey names the bucket of the request, e.g. "rl:ip:10.0.0.1:user:7".
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]
    if !ok {
        parts = []string{"ip", "user", "route"}
    }
    key := []string{cfg.Prefix}
    for _, p := range parts {
        var v string
        switch p {
        case "ip":
            if v = c.RealIP(); v == "" {
                v = "unknown"
            }
        case "user":
            v = userID(c)
        case "route":
            v = c.Request().Method + " " + c.Path()
        }
        key = append(key, p, v)
    }
    return strings.Join(key, ":")
}
