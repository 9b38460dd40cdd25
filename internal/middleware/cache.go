package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ecommerce-api/internal/config"
)

// cachedResponse is what a cache entry holds.  Headers are replayed so a hit
// is byte-identical to the original response.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// bodyRecorder tees the response body into buf up to limit bytes.  overflow
// is set once more than limit bytes were written; such responses are not
// stored.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// NewRedisCache caches successful responses of public read routes.  Requests
// carrying "Cache-Control: no-cache" skip the lookup but still refresh the
// entry.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = slog.Default()
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[req.Method] {
                return next(c)
            }
            key := cacheKey(cfg, c)

            if !strings.Contains(req.Header.Get("Cache-Control"), "no-cache") {
                if hit, ok := lookup(req.Context(), rdb, key, log); ok {
                    return replay(c, hit)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }

            entry := cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()}
            entry.Header.Del("X-Cache")
            payload, err := json.Marshal(entry)
            if err != nil {
                return nil
            }
            // the request context may already be cancelled by now
            if err := rdb.Set(context.Background(), key, payload, ttl).Err(); err != nil {
                log.Warn("cache store failed", "key", key, "error", err)
            }
            return nil
        }
    }
}

func lookup(ctx context.Context, rdb *redis.Client, key string, log *slog.Logger) (cachedResponse, bool) {
    var hit cachedResponse
    bs, err := rdb.Get(ctx, key).Bytes()
    if err != nil {
        if err != redis.Nil {
            log.Warn("cache lookup failed", "key", key, "error", err)
        }
        return hit, false
    }
    if err := json.Unmarshal(bs, &hit); err != nil || hit.Status == 0 {
        return hit, false
    }
    return hit, true
}

func replay(c echo.Context, hit cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range hit.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        h[k] = vals
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(hit.Status)
    _, err := c.Response().Write(hit.Body)
    return err
}

// NewCachePurge drops the cached GET responses of the paths returned by paths
// once the wrapped write succeeds.  Only the query-less entry of each path is
// removed; other variants expire with the TTL.
func NewCachePurge(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger, paths func(echo.Context) []string) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := next(c); err != nil {
                return err
            }
            if status := c.Response().Status; status < 200 || status > 299 {
                return nil
            }
            var keys []string
            for _, p := range paths(c) {
                keys = append(keys, keyFor(cfg, http.MethodGet, p, ""))
            }
            if len(keys) == 0 {
                return nil
            }
            if err := rdb.Del(context.Background(), keys...).Err(); err != nil {
                log.Warn("cache purge failed", "keys", keys, "error", err)
            }
            return nil
        }
    }
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    return keyFor(cfg, r.Method, r.URL.Path, r.URL.Query().Encode())
}

// keyFor hashes the parts that select a response so keys stay short and
// free of characters Redis tooling dislikes.  query must already be encoded.
func keyFor(cfg config.CacheConfig, method, path, query string) string {
    var tail string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        tail = "route:" + path
    case "method_route_query":
        tail = "method:" + method + ":route:" + path + ":q:" + query
    default: // route_query
        tail = "route:" + path + ":q:" + query
    }
    sum := sha1.Sum([]byte(tail))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}
