package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/healthmate/healthmate/config"
	"github.com/healthmate/healthmate/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// Limiters hands out one token bucket per key and forgets keys that stay idle.
type Limiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rateLimiter
	now     func() time.Time
}

// NewLimiters allows perMinute requests per key with a burst of half that.
func NewLimiters(perMinute int) *Limiters {
	perMinute = max(perMinute, 1)
	return &Limiters{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		buckets: map[string]*rateLimiter{},
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *Limiters) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, b := range l.buckets {
		if now.After(b.expires) {
			delete(l.buckets, k)
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &rateLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.expires = now.Add(limiterIdle)
	return b.limiter.AllowN(now, 1)
}

// RateLimitMiddleware applies a per client IP token bucket sized from config.
func RateLimitMiddleware() gin.HandlerFunc {
	return RateLimit(NewLimiters(config.Get().RateLimitPerMinute))
}

// RateLimit rejects requests once the caller's bucket is empty.
func RateLimit(l *Limiters) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.ClientIP()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
