package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func newClientLimiter(r rate.Limit, b int) *clientLimiter {
	if b < 1 {
		b = 1
	}
	return &clientLimiter{limiters: make(map[string]*rate.Limiter), r: r, b: b}
}

func (l *clientLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[ip] = lim
	}
	return lim
}

// rateLimiter rejects requests beyond r per second (burst b) from one client.
// The controller consumes one command per tick, so bursts only queue up timeouts.
func rateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := newClientLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errTooManyCommands})
			return
		}
		c.Next()
	}
}
