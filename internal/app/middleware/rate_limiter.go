package middleware

import (
	"strconv"
	"sync"
	"time"

	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// limiterIdleTTL 空闲超过该时长的令牌桶会被清理
const limiterIdleTTL = time.Hour

// TokenBucket 令牌桶
type TokenBucket struct {
	rate       float64 // 每秒补充的令牌数
	capacity   float64
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建满桶
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// Allow 取一个令牌，桶空时返回 false
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.rate)
	tb.lastRefill = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// retryAfter 下一个令牌可用前需要等待的秒数，至少 1
func (tb *TokenBucket) retryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.rate <= 0 {
		return 1
	}
	return max(1, int((1-tb.tokens)/tb.rate+0.999))
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return now.Sub(tb.lastRefill)
}

// bucketSet 一个限流中间件实例持有的令牌桶，按键区分
type bucketSet struct {
	rate      float64
	burst     int
	mu        sync.Mutex
	buckets   map[string]*TokenBucket
	lastSweep time.Time
}

func newBucketSet(rate float64, burst int) *bucketSet {
	return &bucketSet{rate: rate, burst: burst, buckets: make(map[string]*TokenBucket), lastSweep: time.Now()}
}

func (s *bucketSet) get(key string) *TokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastSweep) > limiterIdleTTL {
		s.sweepLocked(now, limiterIdleTTL)
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = NewTokenBucket(s.rate, s.burst)
		s.buckets[key] = b
	}
	return b
}

// sweepLocked 清理空闲令牌桶，调用方持有 mu
func (s *bucketSet) sweepLocked(now time.Time, maxIdle time.Duration) {
	for key, b := range s.buckets {
		if b.idleSince(now) > maxIdle {
			delete(s.buckets, key)
		}
	}
}

// RateLimiter 按 keyFunc 的返回值限流，超限时返回 429 和 Retry-After
func RateLimiter(rate float64, burst int, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	set := newBucketSet(rate, burst)

	return func(c *gin.Context) {
		b := set.get(keyFunc(c))
		if !b.Allow() {
			c.Header("Retry-After", strconv.Itoa(b.retryAfter()))
			response.FailWithMessage(c, code.ErrTooManyRequests, "请求频率过高，请稍后再试", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IPRateLimiter 按客户端IP限流，用于公开接口
func IPRateLimiter(rate float64, burst int) gin.HandlerFunc {
	return RateLimiter(rate, burst, func(c *gin.Context) string { return c.ClientIP() })
}

// UserRateLimiter 按认证用户限流，需在 AuthenticateUser 之后使用；未认证时退回按IP
func UserRateLimiter(rate float64, burst int) gin.HandlerFunc {
	return RateLimiter(rate, burst, func(c *gin.Context) string {
		if actor, ok := CurrentActor(c); ok {
			return "user:" + actor.UserID
		}
		return "ip:" + c.ClientIP()
	})
}
