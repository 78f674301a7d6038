package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot          BotConfig          `mapstructure:"bot"`
	Owners       []int64            `mapstructure:"owners"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Cache        CacheConfig        `mapstructure:"cache"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Broadcast    BroadcastConfig    `mapstructure:"broadcast"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	I18n         I18nConfig         `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Username      string        `mapstructure:"username"` // filled from getMe when empty
	Webhook       WebhookConfig `mapstructure:"webhook"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	UpdatesURL    string        `mapstructure:"updates_url"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Storage types
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	URL    string       `mapstructure:"url"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type BroadcastConfig struct {
	ProgressEvery int     `mapstructure:"progress_every"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type ConversationConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ServerConfig configures the keep-alive HTTP endpoint.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// IsOwner reports whether userID belongs to the configured owner set.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.update_timeout", 60)
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.url", "")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.sqlite.path", "data/bot.db")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("broadcast.progress_every", 100)
	v.SetDefault("broadcast.rate_per_second", 25)
	v.SetDefault("conversation.ttl", 10*time.Minute)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("monitoring.metrics.enabled", true)
	v.SetDefault("monitoring.metrics.path", "/metrics")
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en", "es"})
	v.SetDefault("i18n.directory", "configs/i18n")
}

// LoadConfig loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Explicit bindings only; OWNERS is parsed by hand below.
	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("storage.url", "DATABASE_URL", "REDIS_URL")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")
	v.BindEnv("server.port", "PORT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if raw := os.Getenv("OWNERS"); raw != "" {
		owners, err := ParseOwners(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNERS: %w", err)
		}
		config.Owners = owners
	}

	resolveStorage(&config.Storage)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ParseOwners parses a space or comma separated list of user IDs.
func ParseOwners(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	owners := make([]int64, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("owner id %q: %w", field, err)
		}
		owners = append(owners, id)
	}
	return owners, nil
}

// resolveStorage derives the backend from the connection string when no
// explicit type is configured. An unrecognised scheme leaves the type empty.
func resolveStorage(s *StorageConfig) {
	url := strings.TrimSpace(s.URL)

	if s.Type == "" {
		switch {
		case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
			s.Type = StorageRedis
		case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
			s.Type = StorageSQLite
		case url == "", url == "memory://":
			s.Type = StorageMemory
		}
	}

	if s.Type == StorageSQLite {
		switch {
		case strings.HasPrefix(url, "sqlite://"):
			s.SQLite.Path = strings.TrimPrefix(url, "sqlite://")
		case strings.HasPrefix(url, "file:"):
			s.SQLite.Path = strings.TrimPrefix(url, "file:")
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	switch cfg.Storage.Type {
	case StorageRedis, StorageSQLite, StorageMemory:
	case "":
		return fmt.Errorf("unsupported storage url scheme: %q", cfg.Storage.URL)
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == StorageSQLite && cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("sqlite storage requires a path")
	}
	if cfg.Broadcast.ProgressEvery <= 0 {
		return fmt.Errorf("broadcast.progress_every must be positive")
	}
	if cfg.Bot.Webhook.Enabled && cfg.Bot.Webhook.URL == "" {
		return fmt.Errorf("webhook url is required when webhook is enabled")
	}
	return nil
}
