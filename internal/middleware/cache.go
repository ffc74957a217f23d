package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/config"
)

// teeWriter forwards a response to the client and keeps a copy of up to
// limit bytes of it. A limit of 0 keeps everything.
type teeWriter struct {
    http.ResponseWriter
    status   int
    limit    int
    body     bytes.Buffer
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.body.Len()+len(b) > w.limit {
            w.overflow = true
            w.body.Reset()
        } else {
            w.body.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    var r cachedResponse
    if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
        return 0, nil, nil, false
    }
    if r.Header == nil {
        r.Header = http.Header{}
    }
    return r.Status, r.Header, r.Body, true
}

// cacheKeyFrom names the cache entry of a request. The generation and the
// caller are always part of it, so a bump retires every entry and one user
// never sees another user's ledger. KeyStrategy decides how much of the
// request line is added.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, generation int64) string {
    r := c.Request()
    parts := []string{"g", strconv.FormatInt(generation, 10), "u", userID(c)}
    switch cfg.KeyStrategy {
    case "route":
        parts = append(parts, "route", c.Path())
    case "method_route":
        parts = append(parts, "method", r.Method, "route", c.Path())
    case "method_route_query":
        parts = append(parts, "method", r.Method, "route", c.Path(), "q", r.URL.RawQuery)
    default:
        parts = append(parts, "route", c.Path(), "q", r.URL.RawQuery)
    }
    // the route is a pattern; the path tells ids apart
    parts = append(parts, "p", r.URL.Path)

    sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// generation reads the invalidation counter. A missing key is 0.
func generation(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) (int64, error) {
    n, err := rdb.Get(ctx, cfg.GenerationKey()).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}

func replay(c echo.Context, status int, header http.Header, body []byte) error {
    out := c.Response().Header()
    for k, vals := range header {
        if k == echo.HeaderContentLength || k == "X-Cache" {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    out.Set("X-Cache", "HIT")
    c.Response().WriteHeader(status)
    _, err := c.Response().Write(body)
    return err
}

// NewRedisCache serves repeated reads of the API from Redis. Only 200
// responses of the configured methods are stored, headers included. It
// must run after TokenAuth so entries are keyed by account.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            gen, err := generation(ctx, cfg, rdb)
            if err != nil {
                log.WithError(err).Warn("cache: read generation")
                return next(c)
            }
            key := cacheKeyFrom(cfg, c, gen)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    return replay(c, status, hdr, body)
                }
            }

            tee := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tee
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tee.status != http.StatusOK || tee.overflow {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(tee.status, hdr, tee.body.Bytes())
            if err != nil {
                log.WithError(err).Warn("cache: encode response")
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
                log.WithError(err).Warn("cache: store response")
            }
            return nil
        }
    }
}

// InvalidateOnWrite bumps the cache generation after every successful
// request whose method is not cached, which retires all cached responses.
func InvalidateOnWrite(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if cfg.Methods[c.Request().Method] {
                return next(c)
            }
            err := next(c)
            if err == nil && c.Response().Status < http.StatusBadRequest {
                if ierr := rdb.Incr(context.WithoutCancel(c.Request().Context()), cfg.GenerationKey()).Err(); ierr != nil {
                    log.WithError(ierr).Warn("cache: bump generation")
                }
            }
            return err
        }
    }
}
