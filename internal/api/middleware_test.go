package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	router := newTestRouter()
	limiter := newIPRateLimiter(3)
	router.GET("/ping", rateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d after budget exhausted, want 429", w.Code)
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	router := newTestRouter()
	limiter := newIPRateLimiter(1)
	router.GET("/ping", rateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest(http.MethodGet, "/ping", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(first, reqA)

	second := httptest.NewRecorder()
	reqB := httptest.NewRequest(http.MethodGet, "/ping", nil)
	reqB.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(second, reqB)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("separate clients should each get their own budget, got %d and %d", first.Code, second.Code)
	}
}

func TestCacheServesRepeatedRequests(t *testing.T) {
	router := newTestRouter()
	cache := newResponseCache(15 * time.Second)

	calls := 0
	router.GET("/data", cacheMiddleware(cache), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"value": 42})
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/data", nil))
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("first request X-Cache = %q, want MISS", got)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/data", nil))
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Fatalf("second request X-Cache = %q, want HIT", got)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("cached body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestCacheKeyIncludesQueryString(t *testing.T) {
	router := newTestRouter()
	cache := newResponseCache(15 * time.Second)

	router.GET("/data", cacheMiddleware(cache), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"filter": c.Query("filter")})
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/data?filter=day", nil))

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/data?filter=week", nil))
	if got := second.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("distinct query string X-Cache = %q, want MISS", got)
	}
}

func TestCacheSkipsNonGet(t *testing.T) {
	router := newTestRouter()
	cache := newResponseCache(15 * time.Second)

	calls := 0
	router.POST("/action", cacheMiddleware(cache), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/action", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/action", nil))
	if calls != 2 {
		t.Fatalf("POST handler ran %d times, want 2", calls)
	}
}

func TestCacheSkipsErrorResponses(t *testing.T) {
	router := newTestRouter()
	cache := newResponseCache(15 * time.Second)

	calls := 0
	router.GET("/flaky", cacheMiddleware(cache), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/flaky", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/flaky", nil))
	if calls != 2 {
		t.Fatalf("error responses should not be cached, handler ran %d times, want 2", calls)
	}
}
