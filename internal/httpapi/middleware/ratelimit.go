package middleware

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/podforge/podforge/internal/ratelimit"
)

// RateLimit gates a route group behind a fixed-window limiter. Denials
// carry Retry-After and X-RateLimit-Reset so callers can back off.
func RateLimit(l ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c.Request)

		res, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open: a broken limiter backend must not take the API down
			log.Printf("rate limit check failed client=%s err=%v", key, err)
			c.Next()
			return
		}

		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			log.Printf("rate limit exceeded client=%s retry_after=%ds", key, retryAfter)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      fmt.Sprintf("rate limit exceeded. try again in %d seconds", retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// clientKey resolves the client identity used for rate limiting:
// forwarded-IP headers in priority order, then a shared "unknown" bucket
// so unidentified clients rate-limit each other rather than going free.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Client-IP"); ip != "" {
		return ip
	}
	return "unknown"
}
