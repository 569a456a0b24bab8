package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"linkmark/internal/pkg/response"
	"linkmark/internal/ratelimit"
)

// RateLimit enforces the injected limiter per caller and route. Keys combine
// client ip, user id and route so one user hammering one endpoint does not
// starve the rest.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		uid := "0"
		if v, ok := c.Get(ContextUserIDKey); ok {
			if id, ok := v.(string); ok && id != "" {
				uid = id
			}
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := strings.Join([]string{ip, uid, path}, "|")

		result := limiter.Check(key)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if !result.Allowed {
			logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
				zap.String("ip", ip),
				zap.String("user_id", uid),
				zap.String("path", path),
			)
			response.Error(c, http.StatusTooManyRequests, "too_many_requests", http.StatusText(http.StatusTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
