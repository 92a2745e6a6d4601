package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestQueueOpLimiter(t *testing.T) {
	t.Run("basic rate limiting", func(t *testing.T) {
		limiter := NewQueueOpLimiter(2, 1*time.Second)
		defer limiter.Close()
		key := "alice:42"

		if !limiter.Allow(key) {
			t.Error("first request should be allowed")
		}
		if !limiter.Allow(key) {
			t.Error("second request should be allowed")
		}
		if limiter.Allow(key) {
			t.Error("third request should be denied")
		}

		time.Sleep(1100 * time.Millisecond)
		if !limiter.Allow(key) {
			t.Error("request after the window resets should be allowed")
		}
	})

	t.Run("keys rate limited independently", func(t *testing.T) {
		limiter := NewQueueOpLimiter(1, 1*time.Second)
		defer limiter.Close()

		if !limiter.Allow("alice:1") || !limiter.Allow("bob:1") {
			t.Error("first request from each key should be allowed")
		}
		if limiter.Allow("alice:1") || limiter.Allow("bob:1") {
			t.Error("second request from each key should be denied")
		}
	})

	t.Run("cleanup removes idle entries", func(t *testing.T) {
		limiter := NewQueueOpLimiter(100, 1*time.Minute)
		defer limiter.Close()
		for _, key := range []string{"alice:1", "bob:1", "carol:1"} {
			limiter.Allow(key)
		}

		if len(limiter.limiters) != 3 {
			t.Fatalf("expected 3 limiters, got %d", len(limiter.limiters))
		}

		limiter.mu.Lock()
		for _, entry := range limiter.limiters {
			entry.lastAccess = time.Now().Add(-2 * time.Hour)
		}
		limiter.mu.Unlock()

		limiter.cleanup(1 * time.Minute)

		limiter.mu.RLock()
		count := len(limiter.limiters)
		limiter.mu.RUnlock()

		if count != 0 {
			t.Errorf("expected 0 limiters after cleanup, got %d", count)
		}
	})
}

func TestQueueOpRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("allows requests under the limit", func(t *testing.T) {
		limiter := NewQueueOpLimiter(10, 1*time.Second)
		defer limiter.Close()

		engine := gin.New()
		engine.Use(QueueOpRateLimit(limiter, func(c *gin.Context) (string, bool) {
			return "alice:1", true
		}))
		engine.GET("/queue", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

		req, _ := http.NewRequest("GET", "/queue", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("rejects requests over the limit with 429", func(t *testing.T) {
		limiter := NewQueueOpLimiter(1, 1*time.Minute)
		defer limiter.Close()

		engine := gin.New()
		engine.Use(QueueOpRateLimit(limiter, func(c *gin.Context) (string, bool) {
			return "alice:1", true
		}))
		engine.GET("/queue", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

		req, _ := http.NewRequest("GET", "/queue", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected first request to succeed, got %d", w.Code)
		}

		req2, _ := http.NewRequest("GET", "/queue", nil)
		w2 := httptest.NewRecorder()
		engine.ServeHTTP(w2, req2)
		if w2.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", w2.Code)
		}
	})

	t.Run("passes through when no key can be derived", func(t *testing.T) {
		limiter := NewQueueOpLimiter(1, 1*time.Minute)
		defer limiter.Close()

		engine := gin.New()
		engine.Use(QueueOpRateLimit(limiter, func(c *gin.Context) (string, bool) {
			return "", false
		}))
		engine.GET("/queue", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

		for i := 0; i < 3; i++ {
			req, _ := http.NewRequest("GET", "/queue", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("request %d: expected 200 without a derivable key, got %d", i, w.Code)
			}
		}
	})
}
