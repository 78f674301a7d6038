// Package cache keeps chat titles so settings screens don't call getChat on every tap.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// TitleFetcher resolves a chat title from the platform.
type TitleFetcher func(ctx context.Context, chatID int64) (string, error)

// Service defines cache operations
type Service interface {
	Title(ctx context.Context, chatID int64, fetch TitleFetcher) (string, error)
	Forget(chatID int64)
}

type entry struct {
	title     string
	fetchedAt time.Time
}

// ChatCache implements Service on top of go-cache
type ChatCache struct {
	enabled bool
	cache   *cache.Cache
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewCache creates a new chat title cache
func NewCache(cfg *config.CacheConfig, metrics *middleware.Metrics, logger *logrus.Logger) *ChatCache {
	if !cfg.Enabled {
		return &ChatCache{enabled: false, metrics: metrics, logger: logger}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &ChatCache{
		enabled: true,
		cache:   cache.New(ttl, ttl*2),
		metrics: metrics,
		logger:  logger,
	}
}

// Title returns the cached title of chatID, calling fetch on a miss.
// Fetch errors are not cached.
func (c *ChatCache) Title(ctx context.Context, chatID int64, fetch TitleFetcher) (string, error) {
	if !c.enabled {
		return fetch(ctx, chatID)
	}

	key := strconv.FormatInt(chatID, 10)
	if val, found := c.cache.Get(key); found {
		e := val.(entry)
		c.metrics.RecordCacheHit()
		c.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"age":     time.Since(e.fetchedAt),
		}).Debug("Cache hit")
		return e.title, nil
	}

	c.metrics.RecordCacheMiss()
	title, err := fetch(ctx, chatID)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(key, entry{title: title, fetchedAt: time.Now()})
	return title, nil
}

// Forget drops the cached title of chatID.
func (c *ChatCache) Forget(chatID int64) {
	if !c.enabled {
		return
	}
	c.cache.Delete(strconv.FormatInt(chatID, 10))
}
