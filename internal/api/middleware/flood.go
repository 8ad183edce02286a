package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "mortisplay.ru/qa/internal/pkg/errors"
)

// Flood is a coarse per-client token bucket in front of the whole API.
// It is not the submission cooldown — that lives in the service layer —
// it just keeps one misbehaving client from hammering the read endpoints.
type Flood struct {
	mu      sync.Mutex
	buckets map[string]*floodEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type floodEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewFlood creates the limiter: rps sustained requests with the given burst
// per client IP.
func NewFlood(rps float64, burst int) *Flood {
	return &Flood{
		buckets: make(map[string]*floodEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

// Handler returns the gin middleware.
func (f *Flood) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !f.allow(c.ClientIP()) {
			// Bucket refills within a second at any sane rps; one is enough.
			c.Header("Retry-After", strconv.Itoa(1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    apperrors.CodeRateLimited,
				"message": "Слишком много запросов",
			})
			return
		}
		c.Next()
	}
}

func (f *Flood) allow(key string) bool {
	now := time.Now()

	f.mu.Lock()
	e, ok := f.buckets[key]
	if !ok {
		e = &floodEntry{lim: rate.NewLimiter(f.rps, f.burst)}
		f.buckets[key] = e
	}
	e.lastSeen = now
	f.mu.Unlock()

	return e.lim.Allow()
}

// Cleanup evicts buckets idle longer than the TTL.
func (f *Flood) Cleanup() {
	cutoff := time.Now().Add(-f.idleTTL)

	f.mu.Lock()
	defer f.mu.Unlock()

	for k, e := range f.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(f.buckets, k)
		}
	}
}

// Len returns the number of tracked clients.
func (f *Flood) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buckets)
}
