package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// CleanupInterval is both the sweep period and the idle time after
	// which a client's bucket is dropped.
	CleanupInterval time.Duration
}

var DefaultRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 10.0,
	BurstSize:         20,
	CleanupInterval:   5 * time.Minute,
}

// BetRateLimiterConfig is tighter than the HTTP default: a player gets a
// handful of bets per second.
var BetRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 5.0,
	BurstSize:         10,
	CleanupInterval:   5 * time.Minute,
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. Idle buckets are swept
// periodically.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  RateLimiterConfig
	clock   quartz.Clock
	logger  *log.Logger

	cancel   context.CancelFunc
	stopOnce sync.Once
}

type LimiterOption func(*RateLimiter)

// WithClock replaces the wall clock, for tests.
func WithClock(clock quartz.Clock) LimiterOption {
	return func(rl *RateLimiter) { rl.clock = clock }
}

func NewRateLimiter(config RateLimiterConfig, opts ...LimiterOption) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		config:  config,
		clock:   quartz.NewReal(),
		logger:  log.Default().WithPrefix("ratelimit"),
	}
	for _, opt := range opts {
		opt(rl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl.cancel = cancel
	rl.clock.TickerFunc(ctx, config.CleanupInterval, func() error {
		rl.sweep()
		return nil
	}, "ratelimit", "sweep")

	return rl
}

func (rl *RateLimiter) take(key string, n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, n)
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.take(key, 1)
}

func (rl *RateLimiter) AllowN(key string, n int) bool {
	return rl.take(key, n)
}

// Size reports how many buckets are tracked.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-rl.config.CleanupInterval)
	removed := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("dropped idle rate limiters", "removed", removed, "remaining", len(rl.buckets))
	}
}

// Stop ends the sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(rl.cancel)
}

// Middleware limits requests per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if !rl.Allow(clientID) {
			rl.logger.Warn("rate limit exceeded", "client", clientID, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, please slow down"})
			return
		}
		c.Next()
	}
}

// BetLimiter throttles bet placement per player, independent of the client
// address the bets arrive from.
type BetLimiter struct {
	*RateLimiter
}

func NewBetLimiter(opts ...LimiterOption) *BetLimiter {
	return &BetLimiter{RateLimiter: NewRateLimiter(BetRateLimiterConfig, opts...)}
}

func (bl *BetLimiter) AllowBet(playerID string) bool {
	allowed := bl.Allow(playerID)
	if !allowed {
		bl.logger.Warn("bet rate limit exceeded", "player", playerID)
	}
	return allowed
}
