package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"labelDesk/internal/errcode"
)

const (
	adminFailureLimit  = 5
	adminFailureWindow = 15 * time.Minute
)

// FailureCounter 是记录失败次数所需的 Redis 能力，*redis.Client 满足它。
type FailureCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// AdminSecretMiddleware 保护单号管理接口：请求必须通过 X-Admin-Secret 携带密钥。
// 同一 IP 在窗口期内失败过多时直接拒绝；counter 为空时不限流。
func AdminSecretMiddleware(secret string, counter FailureCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(secret) == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "admin secret is not configured",
				"code":  errcode.SystemError,
			})
			return
		}

		ctx := c.Request.Context()
		key := "admin_fail:" + c.ClientIP()
		if counter != nil {
			if n, err := counter.Get(ctx, key).Int64(); err == nil && n >= adminFailureLimit {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": "too many failed attempts",
					"code":  errcode.InvalidRequest,
				})
				return
			}
		}

		// 密钥只走 Header，避免 query 泄露到日志。
		token := strings.TrimSpace(c.GetHeader("X-Admin-Secret"))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			if counter != nil {
				_, _ = incrWithTTL(ctx, counter, key, adminFailureWindow)
			}
			LoggerFromContext(c).Warn("admin secret rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  errcode.InvalidRequest,
			})
			return
		}
		c.Next()
	}
}

func incrWithTTL(ctx context.Context, client FailureCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
