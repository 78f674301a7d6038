package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/middleware"
	"github.com/channelactions-tgbot-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Storage interface defines storage operations
type Storage interface {
	// User operations
	AddUser(ctx context.Context, userID int64) (bool, error)
	UserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)

	// Settings operations. GetSettings returns nil when the chat has no record.
	GetSettings(ctx context.Context, chatID int64) (*models.ChatSettings, error)
	SetApproval(ctx context.Context, chatID int64, approve bool) error
	SetWelcome(ctx context.Context, chatID int64, text string) error
	CountSettings(ctx context.Context) (int64, error)

	// User preference operations
	GetUserLanguage(ctx context.Context, userID int64) (string, error)
	SetUserLanguage(ctx context.Context, userID int64, lang string) error

	Close() error
}

// Manager fronts a storage backend with defaults, metrics and a known-user cache.
type Manager struct {
	storage Storage
	seen    *cache.Cache
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, metrics *middleware.Metrics, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisStorage, err := NewRedisStorage(&cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	case config.StorageSQLite:
		sqliteStorage, err := NewSQLiteStorage(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		storage = sqliteStorage
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		storage = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	logger.WithField("type", cfg.Storage.Type).Info("Storage initialized")
	return NewManagerWithStorage(storage, metrics, logger), nil
}

// NewManagerWithStorage wraps an already constructed backend.
func NewManagerWithStorage(storage Storage, metrics *middleware.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		storage: storage,
		seen:    cache.New(6*time.Hour, 30*time.Minute),
		metrics: metrics,
		logger:  logger,
	}
}

func (m *Manager) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordStorageOperation(operation, status, time.Since(start))
}

// Settings returns the chat's settings with defaults applied for a missing record.
func (m *Manager) Settings(ctx context.Context, chatID int64) (models.ChatSettings, error) {
	start := time.Now()
	settings, err := m.storage.GetSettings(ctx, chatID)
	m.observe("get_settings", start, err)
	if err != nil {
		return models.ChatSettings{}, fmt.Errorf("get settings for chat %d: %w", chatID, err)
	}
	if settings == nil {
		return models.DefaultChatSettings(chatID), nil
	}
	return *settings, nil
}

// SetApproval stores the approval policy and resets the welcome template.
func (m *Manager) SetApproval(ctx context.Context, chatID int64, approve bool) error {
	start := time.Now()
	err := m.storage.SetApproval(ctx, chatID, approve)
	m.observe("set_approval", start, err)
	if err != nil {
		return fmt.Errorf("set approval for chat %d: %w", chatID, err)
	}
	return nil
}

// SetWelcomeTemplate stores a custom welcome template, leaving the policy untouched.
func (m *Manager) SetWelcomeTemplate(ctx context.Context, chatID int64, text string) error {
	start := time.Now()
	err := m.storage.SetWelcome(ctx, chatID, text)
	m.observe("set_welcome", start, err)
	if err != nil {
		return fmt.Errorf("set welcome for chat %d: %w", chatID, err)
	}
	return nil
}

// TrackUser records userID as a known user. Users already seen by this
// process skip the round trip to the backend.
func (m *Manager) TrackUser(ctx context.Context, userID int64) error {
	key := strconv.FormatInt(userID, 10)
	if _, found := m.seen.Get(key); found {
		return nil
	}

	start := time.Now()
	created, err := m.storage.AddUser(ctx, userID)
	m.observe("add_user", start, err)
	if err != nil {
		return fmt.Errorf("add user %d: %w", userID, err)
	}

	m.seen.SetDefault(key, struct{}{})
	if created {
		m.logger.WithField("user_id", userID).Debug("New user tracked")
	}
	return nil
}

// UserIDs returns a snapshot of every known user.
func (m *Manager) UserIDs(ctx context.Context) ([]int64, error) {
	start := time.Now()
	ids, err := m.storage.UserIDs(ctx)
	m.observe("list_users", start, err)
	return ids, err
}

func (m *Manager) CountUsers(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := m.storage.CountUsers(ctx)
	m.observe("count_users", start, err)
	return n, err
}

// CountChats returns the number of chats with stored settings.
func (m *Manager) CountChats(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := m.storage.CountSettings(ctx)
	m.observe("count_settings", start, err)
	return n, err
}

// Language returns the user's interface language or fallback when none is stored.
func (m *Manager) Language(ctx context.Context, userID int64, fallback string) string {
	start := time.Now()
	lang, err := m.storage.GetUserLanguage(ctx, userID)
	m.observe("get_language", start, err)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load user language")
		return fallback
	}
	if lang == "" {
		return fallback
	}
	return lang
}

func (m *Manager) SetLanguage(ctx context.Context, userID int64, lang string) error {
	start := time.Now()
	err := m.storage.SetUserLanguage(ctx, userID, lang)
	m.observe("set_language", start, err)
	if err != nil {
		return fmt.Errorf("set language for user %d: %w", userID, err)
	}
	return nil
}

func (m *Manager) Close() error {
	return m.storage.Close()
}
