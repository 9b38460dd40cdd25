package middleware

import (
    "context"
    "log/slog"
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/metrics"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID reuses the caller's X-Request-ID or assigns a new one, echoes it
// on the response and stores it in the request context.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" || len(id) > 128 {
                id = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            c.SetRequest(req.WithContext(context.WithValue(req.Context(), requestIDKey, id)))
            return next(c)
        }
    }
}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
    if v, ok := ctx.Value(requestIDKey).(string); ok {
        return v
    }
    return ""
}

// RequestLog writes one line per request once the response is committed.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            if err := next(c); err != nil {
                // render now so the logged status is the one the client sees
                c.Error(err)
            }
            status := c.Response().Status
            level := slog.LevelInfo
            if status >= 500 {
                level = slog.LevelError
            }
            log.Log(c.Request().Context(), level, "request",
                "request_id", RequestIDFromContext(c.Request().Context()),
                "method", c.Request().Method,
                "path", c.Request().URL.Path,
                "status", status,
                "latency_ms", time.Since(start).Milliseconds(),
            )
            return nil
        }
    }
}

// Metrics records request count and latency per route pattern.  The route
// pattern, not the raw path, keeps label cardinality bounded.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Path() == "/metrics" {
                return next(c)
            }
            start := time.Now()
            if err := next(c); err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            method := c.Request().Method
            metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
            metrics.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
            return nil
        }
    }
}
