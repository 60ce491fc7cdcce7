package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/walpay/core/internal/pkg/response"
)

// RateLimit enforces a per-IP fixed-window request limit, keyed in Redis so
// the limit holds across server processes. Used on the OTP and login routes,
// which have no attempt limiting of their own.
func RateLimit(rdb *redis.Client, max int64, window time.Duration) gin.HandlerFunc {
	// A zero window would divide by zero below; misconfiguration degrades
	// to no limiting, the same as running without Redis.
	if rdb == nil || max < 1 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("walpay:rate_limit:%s:%s:%d", c.FullPath(), ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not lock everyone out.
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, window+time.Second)
		}

		if count > max {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())+1))
			response.TooManyRequests(c, "too many requests, slow down")
			return
		}

		c.Next()
	}
}
