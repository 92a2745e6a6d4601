package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// QueueOpLimiter throttles the two write-amplifying queue operations,
// force_regen and refill, per (user, playlist) pair so a single noisy
// client can't repeatedly force full requery-and-rewrite cycles.
type QueueOpLimiter struct {
	limiters  map[string]*queueOpLimiterEntry
	mu        sync.RWMutex
	rate      rate.Limit
	burst     int
	stopClean chan struct{}
}

type queueOpLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewQueueOpLimiter allows up to burst requests per window, per key,
// refilling at one token every window/burst.
func NewQueueOpLimiter(burst int, window time.Duration) *QueueOpLimiter {
	l := &QueueOpLimiter{
		limiters:  make(map[string]*queueOpLimiterEntry),
		rate:      rate.Every(window / time.Duration(burst)),
		burst:     burst,
		stopClean: make(chan struct{}),
	}
	go l.startCleanup(window)
	return l
}

// Allow reports whether a request keyed by (userRef, playlistRef) may proceed.
func (l *QueueOpLimiter) Allow(key string) bool {
	l.mu.Lock()
	entry, exists := l.limiters[key]
	if !exists {
		entry = &queueOpLimiterEntry{
			limiter:    rate.NewLimiter(l.rate, l.burst),
			lastAccess: time.Now(),
		}
		l.limiters[key] = entry
	} else {
		entry.lastAccess = time.Now()
	}
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// startCleanup evicts entries idle for longer than interval, so the map
// doesn't grow without bound across many distinct users and playlists.
func (l *QueueOpLimiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(interval)
		case <-l.stopClean:
			return
		}
	}
}

func (l *QueueOpLimiter) cleanup(idleAfter time.Duration) {
	cutoff := time.Now().Add(-idleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

// Close stops the background cleanup goroutine.
func (l *QueueOpLimiter) Close() {
	close(l.stopClean)
}

// QueueOpRateLimit builds gin middleware that rejects requests exceeding
// the limiter's budget for the given key. keyFunc derives the rate-limit
// key (typically user_ref+playlist_ref) from the request; requests whose
// key can't be derived are never throttled here and should be rejected by
// validation further down the chain.
func QueueOpRateLimit(limiter *QueueOpLimiter, keyFunc func(c *gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := keyFunc(c)
		if !ok {
			c.Next()
			return
		}

		if !limiter.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded for this user and playlist, try again shortly",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
