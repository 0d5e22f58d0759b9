package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== RateLimiter 冷却限流器 ====================

// RateLimiter 按 key 的冷却限流器
// 同一 key 在 interval 内只允许执行一次
type RateLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并在允许时记录本次执行
func (r *RateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	if !entry.lastTime.IsZero() {
		if elapsed := now.Sub(entry.lastTime); elapsed < interval {
			return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key
func (r *RateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// DomainVerifyKey 店铺域名校验限流 Key
func DomainVerifyKey(resellerID int64) string {
	return fmt.Sprintf("reseller:%d:domain_verify", resellerID)
}

// DomainVerifyInterval 手动触发域名校验的冷却时间
const DomainVerifyInterval = time.Minute

// DomainVerifyRateLimit 按分销商限制手动触发域名校验
// 需在 SessionAuth 之后使用
func DomainVerifyRateLimit(limiter *RateLimiter, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Check(DomainVerifyKey(GetUserID(c)), interval)
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Domain verification was requested too recently",
				"retry_after": seconds,
			})
			return
		}
		c.Next()
	}
}
