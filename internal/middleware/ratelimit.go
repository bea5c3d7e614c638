package middleware

import (
	"strconv"

	"cardio-go/internal/utils"
	"cardio-go/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
)

// PredictionRateLimit 预测接口的每用户并发限制中间件。
// 推理调用同步占用CPU,用Redis槽位限制单个用户的并发请求数。
func PredictionRateLimit(limiter *redis_limiter.RedisLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			utils.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}

		key := strconv.FormatUint(uint64(userID), 10)
		if err := limiter.Acquire(c.Request.Context(), key); err != nil {
			utils.TooManyRequests(c, "Too many concurrent prediction requests")
			c.Abort()
			return
		}
		defer limiter.Release(c.Request.Context(), key)

		c.Next()
	}
}
