package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davrot/todolist/internal/identity"
	"github.com/davrot/todolist/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// limiterStore is a per-key token-bucket store. Keys idle for longer than
// idleTTL are dropped on a later access.
type limiterStore struct {
	limiters sync.Map // map[string]*limiterEntry
	rps      float64
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	nextSweep time.Time
}

// newLimiterStore never evicts a bucket before it could have refilled, so
// eviction cannot cut a rejection short.
func newLimiterStore(rps float64, burst int) *limiterStore {
	ttl := limiterIdleTTL
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return &limiterStore{rps: rps, burst: burst, idleTTL: ttl, now: time.Now}
}

// get returns (and lazily creates) the limiter for key
func (s *limiterStore) get(key string) *rate.Limiter {
	now := s.now()
	s.maybeSweep(now)
	v, ok := s.limiters.Load(key)
	if !ok {
		v, _ = s.limiters.LoadOrStore(key, &limiterEntry{lim: rate.NewLimiter(rate.Limit(s.rps), s.burst)})
	}
	e := v.(*limiterEntry)
	e.lastSeen.Store(now.UnixNano())
	return e.lim
}

func (s *limiterStore) maybeSweep(now time.Time) {
	s.mu.Lock()
	if now.Before(s.nextSweep) {
		s.mu.Unlock()
		return
	}
	s.nextSweep = now.Add(limiterSweepInterval)
	s.mu.Unlock()
	s.sweep(now)
}

func (s *limiterStore) sweep(now time.Time) {
	cutoff := now.Add(-s.idleTTL).UnixNano()
	s.limiters.Range(func(k, v any) bool {
		if e := v.(*limiterEntry); e.lastSeen.Load() < cutoff {
			s.limiters.CompareAndDelete(k, e)
		}
		return true
	})
}

// rateLimitKey prefers the authenticated username so users behind one NAT
// don't share a bucket. Otherwise the client IP from Gin is used.
func rateLimitKey(c *gin.Context) string {
	if name, err := identity.Current(c); err == nil {
		return "user:" + name
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
// It must run after AuthMiddleware to key on the username.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		if !store.get(rateLimitKey(c)).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
