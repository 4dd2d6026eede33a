package middleware

import (
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window per-client limiter backed by Redis,
// used on the public ticket creation endpoint so a runaway kiosk cannot
// flood the queue.  The window is one minute, keyed by route and client
// IP.  A nil Redis client or a non-positive limit disables the
// middleware entirely; Redis errors fail open so an unavailable limiter
// never blocks ticket creation.
func RateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
    if rdb == nil || perMinute <= 0 {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            window := time.Now().UTC().Unix() / 60
            key := fmt.Sprintf("ratelimit:%s:%s:%d", c.Path(), c.RealIP(), window)

            ctx := c.Request().Context()
            n, err := rdb.Incr(ctx, key).Result()
            if err != nil {
                return next(c)
            }
            if n == 1 {
                // First hit in this window owns the expiry.
                rdb.Expire(ctx, key, 2*time.Minute)
            }
            if n > int64(perMinute) {
                c.Response().Header().Set("Retry-After", "60")
                return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
            }
            return next(c)
        }
    }
}
