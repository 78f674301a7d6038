package middleware

import (
	"sync"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(userID int64) bool
}

// UserRateLimiter implements per-user rate limiting of inbound commands and callbacks
type UserRateLimiter struct {
	enabled         bool
	limiters        map[int64]*userLimiter
	mu              sync.Mutex
	rpm             int
	burst           int
	metrics         *Metrics
	logger          *logrus.Logger
	cleanupInterval time.Duration
	idleAfter       time.Duration
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, metrics *Metrics, logger *logrus.Logger) *UserRateLimiter {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerMinute <= 0 {
		return &UserRateLimiter{enabled: false}
	}

	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	return &UserRateLimiter{
		enabled:         true,
		limiters:        make(map[int64]*userLimiter),
		rpm:             cfg.RateLimit.RequestsPerMinute,
		burst:           burst,
		metrics:         metrics,
		logger:          logger,
		cleanupInterval: 10 * time.Minute,
		idleAfter:       time.Hour,
	}
}

// Allow checks if a user is allowed to make a request
func (r *UserRateLimiter) Allow(userID int64) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(userID).Allow()
	if !allowed {
		r.metrics.RecordRateLimitExceeded()
		r.logger.WithField("user_id", userID).Warn("Rate limit exceeded")
	}

	return allowed
}

// getLimiter gets or creates a rate limiter for a user
func (r *UserRateLimiter) getLimiter(userID int64) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ul, exists := r.limiters[userID]; exists {
		ul.lastSeen = time.Now()
		return ul.limiter
	}

	// Rate per second = RPM / 60
	rps := float64(r.rpm) / 60.0
	ul := &userLimiter{
		limiter:  rate.NewLimiter(rate.Limit(rps), r.burst),
		lastSeen: time.Now(),
	}
	r.limiters[userID] = ul

	return ul.limiter
}

// Run evicts idle limiters until done is closed.
func (r *UserRateLimiter) Run(done <-chan struct{}) {
	if !r.enabled {
		return
	}

	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *UserRateLimiter) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, ul := range r.limiters {
		if now.Sub(ul.lastSeen) > r.idleAfter {
			delete(r.limiters, userID)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.WithField("evicted", evicted).Debug("Evicted idle rate limiters")
	}
	return evicted
}
