package config

// Redis backs the API rate limiter and the response cache.  Both are
// optional: when the server cannot be reached at startup the caller gets
// an error and runs without them.

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment. REDIS_URL
// (redis:// or rediss://) wins when set. Otherwise the address comes from
// REDIS_HOST and REDIS_PORT, or the REDIS_ADDR shorthand, and REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS complete it.
func RedisOptions() (*redis.Options, error) {
    if raw := os.Getenv("REDIS_URL"); raw != "" {
        opts, err := redis.ParseURL(raw)
        if err != nil {
            return nil, fmt.Errorf("parse REDIS_URL: %w", err)
        }
        return opts, nil
    }
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}

// NewRedisClient connects with RedisOptions and pings the server with a
// short timeout.  On failure the client is closed and the error returned.
func NewRedisClient() (*redis.Client, error) {
    opts, err := RedisOptions()
    if err != nil {
        return nil, err
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
    }
    return client, nil
}
