package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/channelactions-tgbot-go/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bot_users (
	user_id    INTEGER PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_settings (
	chat_id INTEGER PRIMARY KEY,
	status  INTEGER NOT NULL DEFAULT 1,
	welcome TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS user_prefs (
	user_id  INTEGER PRIMARY KEY,
	language TEXT NOT NULL
);
`

// SQLiteStorage implements storage using SQLite for persistence
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and creates if needed) the database at dbPath
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) AddUser(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO bot_users (user_id, created_at) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING",
		userID, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStorage) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM bot_users ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bot_users").Scan(&n)
	return n, err
}

func (s *SQLiteStorage) GetSettings(ctx context.Context, chatID int64) (*models.ChatSettings, error) {
	settings := models.ChatSettings{ChatID: chatID}
	err := s.db.QueryRowContext(ctx,
		"SELECT status, welcome FROM chat_settings WHERE chat_id = ?", chatID,
	).Scan(&settings.AutoApprove, &settings.WelcomeTemplate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query chat settings: %w", err)
	}
	return &settings, nil
}

func (s *SQLiteStorage) SetApproval(ctx context.Context, chatID int64, approve bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_settings (chat_id, status, welcome)
		VALUES (?, ?, '')
		ON CONFLICT(chat_id) DO UPDATE SET
			status = excluded.status,
			welcome = ''
	`, chatID, approve)
	if err != nil {
		return fmt.Errorf("save approval: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetWelcome(ctx context.Context, chatID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_settings (chat_id, welcome)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			welcome = excluded.welcome
	`, chatID, text)
	if err != nil {
		return fmt.Errorf("save welcome: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountSettings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_settings").Scan(&n)
	return n, err
}

func (s *SQLiteStorage) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := s.db.QueryRowContext(ctx, "SELECT language FROM user_prefs WHERE user_id = ?", userID).Scan(&lang)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lang, err
}

func (s *SQLiteStorage) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, language) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET language = excluded.language
	`, userID, lang)
	return err
}

// Close releases database resources
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
