package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/channelactions-tgbot-go/internal/models"
	"github.com/patrickmn/go-cache"
)

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	mu           sync.Mutex
	users        *cache.Cache
	settings     *cache.Cache
	userSettings *cache.Cache
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:        cache.New(cache.NoExpiration, cache.NoExpiration),
		settings:     cache.New(cache.NoExpiration, cache.NoExpiration),
		userSettings: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func memoryKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (m *MemoryStorage) AddUser(ctx context.Context, userID int64) (bool, error) {
	// Add fails when the key already exists.
	err := m.users.Add(memoryKey(userID), models.User{ID: userID}, cache.NoExpiration)
	return err == nil, nil
}

func (m *MemoryStorage) UserIDs(ctx context.Context) ([]int64, error) {
	items := m.users.Items()
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Object.(models.User).ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemoryStorage) CountUsers(ctx context.Context) (int64, error) {
	return int64(m.users.ItemCount()), nil
}

func (m *MemoryStorage) GetSettings(ctx context.Context, chatID int64) (*models.ChatSettings, error) {
	if val, found := m.settings.Get(memoryKey(chatID)); found {
		settings := val.(models.ChatSettings)
		return &settings, nil
	}
	return nil, nil
}

func (m *MemoryStorage) SetApproval(ctx context.Context, chatID int64, approve bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings.Set(memoryKey(chatID), models.ChatSettings{
		ChatID:      chatID,
		AutoApprove: approve,
	}, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) SetWelcome(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := models.DefaultChatSettings(chatID)
	if val, found := m.settings.Get(memoryKey(chatID)); found {
		settings = val.(models.ChatSettings)
	}
	settings.WelcomeTemplate = text
	m.settings.Set(memoryKey(chatID), settings, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) CountSettings(ctx context.Context) (int64, error) {
	return int64(m.settings.ItemCount()), nil
}

func (m *MemoryStorage) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	if val, found := m.userSettings.Get(memoryKey(userID)); found {
		return val.(models.UserSettings).Language, nil
	}
	return "", nil
}

func (m *MemoryStorage) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	m.userSettings.Set(memoryKey(userID), models.UserSettings{
		UserID:   userID,
		Language: lang,
	}, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) Close() error {
	m.users.Flush()
	m.settings.Flush()
	m.userSettings.Flush()
	return nil
}
