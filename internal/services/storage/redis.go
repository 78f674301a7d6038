package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	redisUsersKey         = "bot_users"
	redisSettingsIndexKey = "chat_settings"
	redisUserLangKey      = "user_lang"

	fieldStatus  = "status"
	fieldWelcome = "welcome"
)

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.StorageConfig, logger *logrus.Logger) (*RedisStorage, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStorageWithClient(client, logger), nil
}

// NewRedisStorageWithClient uses an existing client.
func NewRedisStorageWithClient(client *redis.Client, logger *logrus.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

func settingsKey(chatID int64) string {
	return fmt.Sprintf("chat_settings:%d", chatID)
}

func (r *RedisStorage) AddUser(ctx context.Context, userID int64) (bool, error) {
	added, err := r.client.SAdd(ctx, redisUsersKey, userID).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (r *RedisStorage) UserIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, redisUsersKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			r.logger.WithField("member", member).Warn("Skipping malformed user id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStorage) CountUsers(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, redisUsersKey).Result()
}

func (r *RedisStorage) GetSettings(ctx context.Context, chatID int64) (*models.ChatSettings, error) {
	fields, err := r.client.HGetAll(ctx, settingsKey(chatID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	settings := models.DefaultChatSettings(chatID)
	if status, ok := fields[fieldStatus]; ok {
		settings.AutoApprove = status == "1"
	}
	settings.WelcomeTemplate = fields[fieldWelcome]

	return &settings, nil
}

func (r *RedisStorage) SetApproval(ctx context.Context, chatID int64, approve bool) error {
	status := "0"
	if approve {
		status = "1"
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, settingsKey(chatID), fieldStatus, status, fieldWelcome, "")
		pipe.SAdd(ctx, redisSettingsIndexKey, chatID)
		return nil
	})
	return err
}

func (r *RedisStorage) SetWelcome(ctx context.Context, chatID int64, text string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, settingsKey(chatID), fieldWelcome, text)
		pipe.SAdd(ctx, redisSettingsIndexKey, chatID)
		return nil
	})
	return err
}

func (r *RedisStorage) CountSettings(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, redisSettingsIndexKey).Result()
}

func (r *RedisStorage) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	lang, err := r.client.HGet(ctx, redisUserLangKey, strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return lang, err
}

func (r *RedisStorage) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	return r.client.HSet(ctx, redisUserLangKey, strconv.FormatInt(userID, 10), lang).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
