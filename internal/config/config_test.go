package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "OWNERS", "DATABASE_URL", "REDIS_URL", "PORT", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNERS", "42 7,9")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Bot.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if got := cfg.Owners; len(got) != 3 || got[0] != 42 || got[1] != 7 || got[2] != 9 {
		t.Errorf("owners = %v", got)
	}
	if !cfg.IsOwner(7) || cfg.IsOwner(8) {
		t.Errorf("IsOwner mismatch for %v", cfg.Owners)
	}
	if cfg.Storage.Type != StorageMemory {
		t.Errorf("storage type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.Broadcast.ProgressEvery != 100 {
		t.Errorf("progress_every = %d, want 100", cfg.Broadcast.ProgressEvery)
	}
	if cfg.Conversation.TTL != 10*time.Minute {
		t.Errorf("conversation ttl = %v", cfg.Conversation.TTL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
bot:
  token: "file-token"
owners: [1, 2]
storage:
  url: "sqlite:///tmp/bot.db"
broadcast:
  progress_every: 50
  rate_per_second: 5
conversation:
  ttl: 90s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bot.Token != "file-token" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}
	if cfg.Storage.Type != StorageSQLite || cfg.Storage.SQLite.Path != "/tmp/bot.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Broadcast.ProgressEvery != 50 || cfg.Broadcast.RatePerSecond != 5 {
		t.Errorf("broadcast = %+v", cfg.Broadcast)
	}
	if cfg.Conversation.TTL != 90*time.Second {
		t.Errorf("conversation ttl = %v", cfg.Conversation.TTL)
	}
	if len(cfg.Owners) != 2 {
		t.Errorf("owners = %v", cfg.Owners)
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestResolveStorage(t *testing.T) {
	tests := []struct {
		name     string
		in       StorageConfig
		wantType string
		wantPath string
	}{
		{name: "redis url", in: StorageConfig{URL: "redis://localhost:6379/0"}, wantType: StorageRedis},
		{name: "tls redis url", in: StorageConfig{URL: "rediss://cache:6380"}, wantType: StorageRedis},
		{name: "sqlite url", in: StorageConfig{URL: "sqlite://data/x.db"}, wantType: StorageSQLite, wantPath: "data/x.db"},
		{name: "file url", in: StorageConfig{URL: "file:bot.db"}, wantType: StorageSQLite, wantPath: "bot.db"},
		{name: "empty", in: StorageConfig{}, wantType: StorageMemory},
		{name: "memory url", in: StorageConfig{URL: "memory://"}, wantType: StorageMemory},
		{name: "unknown scheme", in: StorageConfig{URL: "mongodb://db:27017/bot"}, wantType: ""},
		{name: "typo scheme", in: StorageConfig{URL: "redsi://localhost"}, wantType: ""},
		{name: "explicit type wins", in: StorageConfig{Type: StorageRedis, URL: "sqlite://x"}, wantType: StorageRedis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.in
			resolveStorage(&s)
			if s.Type != tt.wantType {
				t.Errorf("type = %q, want %q", s.Type, tt.wantType)
			}
			if tt.wantPath != "" && s.SQLite.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", s.SQLite.Path, tt.wantPath)
			}
		})
	}
}

func TestParseOwnersRejectsGarbage(t *testing.T) {
	if _, err := ParseOwners("12 abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigRejectsUnknownStorageURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "mongodb://db:27017/bot")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected an error for an unrecognised storage url")
	}
}
