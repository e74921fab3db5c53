package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"medqueue/internal/response"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP limits authenticated callers per user and the rest per IP.
func KeyByUserOrIP(c *gin.Context) string {
	if id := userKey(c); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per key. Buckets idle for longer than the ttl
// are evicted.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   KeyFunc
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	calls    int
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if key == nil {
		key = KeyByUserOrIP
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		key:      key,
		ttl:      10 * time.Minute,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()

	rl.calls++
	if rl.calls >= 1000 {
		rl.calls = 0
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter(rl.key(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
			Code:    "RATE_LIMITED",
			Message: "Too many requests",
		})
	}
}
