package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const KeyRequestID = "X-Request-ID"

// RequestID propagates or generates a request id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}

// RateLimit is a global token bucket
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			apierrors.TooManyRequests(c, "")
			return
		}
		c.Next()
	}
}

// ipBucketIdle is how long a client IP's bucket survives without requests.
const ipBucketIdle = 10 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipBuckets holds one limiter per client IP. Idle entries are swept lazily,
// at most once per idle period.
type ipBuckets struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	buckets   map[string]*ipBucket
	lastSweep time.Time
}

func newIPBuckets(rps rate.Limit, burst int, idle time.Duration) *ipBuckets {
	return &ipBuckets{
		rps:     rps,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*ipBucket),
	}
}

func (b *ipBuckets) allow(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Sub(b.lastSweep) >= b.idle {
		for key, e := range b.buckets {
			if now.Sub(e.seen) >= b.idle {
				delete(b.buckets, key)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.buckets[ip]
	if !ok {
		e = &ipBucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.buckets[ip] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (b *ipBuckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// RateLimitPerIP keeps one token bucket per client IP
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	buckets := newIPBuckets(rps, burst, ipBucketIdle)
	return func(c *gin.Context) {
		if !buckets.allow(c.ClientIP()) {
			apierrors.TooManyRequests(c, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}

// ConcurrencyLimit caps in-flight requests
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			apierrors.ServiceUnavailable(c, "Server busy")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// MaxBodyBytes limits the request body size
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
