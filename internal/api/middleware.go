package api

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter tracks one caller's token bucket and its last use so idle
// entries can be pruned.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter enforces a per-IP request budget across all API routes.
type ipRateLimiter struct {
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	mu      sync.Mutex
}

func newIPRateLimiter(requestsPerMinute int) *ipRateLimiter {
	return &ipRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   requestsPerMinute,
		idleTTL: 10 * time.Minute,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now

	// Lazy prune keeps the map from growing without bound.
	if len(l.clients) > 1000 {
		for addr, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleTTL {
				delete(l.clients, addr)
			}
		}
	}

	return client.limiter.Allow()
}

// rateLimitMiddleware rejects callers that exceed their per-minute budget.
func rateLimitMiddleware(limiter *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, slow down",
			})
			return
		}
		c.Next()
	}
}

type cachedResponse struct {
	body        []byte
	contentType string
	storedAt    time.Time
}

// responseCache holds short-lived copies of GET responses so bursts of
// dashboard refreshes do not hammer the handlers.
type responseCache struct {
	entries map[string]cachedResponse
	ttl     time.Duration
	mu      sync.RWMutex
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cachedResponse),
		ttl:     ttl,
	}
}

func (rc *responseCache) get(key string) (cachedResponse, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	entry, ok := rc.entries[key]
	if !ok || time.Since(entry.storedAt) > rc.ttl {
		return cachedResponse{}, false
	}
	return entry, true
}

func (rc *responseCache) put(key string, entry cachedResponse) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = entry
}

// bodyCapture tees the handler's response body so it can be cached.
type bodyCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheMiddleware serves recent identical GET requests from memory and marks
// responses with an X-Cache header.
func cacheMiddleware(cache *responseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if entry, ok := cache.get(key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, entry.contentType, entry.body)
			c.Abort()
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture
		c.Header("X-Cache", "MISS")
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			cache.put(key, cachedResponse{
				body:        capture.body.Bytes(),
				contentType: c.Writer.Header().Get("Content-Type"),
				storedAt:    time.Now(),
			})
		}
	}
}
