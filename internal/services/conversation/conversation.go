// Package conversation tracks per-admin "set welcome message" sessions.
package conversation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// State of a user's conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingWelcomeText
)

func (s State) String() string {
	if s == StateAwaitingWelcomeText {
		return "awaiting_welcome_text"
	}
	return "idle"
}

// Session is an open prompt waiting for the welcome text of TargetChatID.
type Session struct {
	UserID       int64
	TargetChatID int64
	StartedAt    time.Time
}

// ResultKind tells the caller how a submitted message was handled.
type ResultKind int

const (
	// ResultNone means the user had no open session; the message is not an answer.
	ResultNone ResultKind = iota
	// ResultEmpty means the answer carried no text; nothing was written.
	ResultEmpty
	// ResultSaved means the text was stored as the chat's welcome template.
	ResultSaved
)

// Result of Submit.
type Result struct {
	Kind   ResultKind
	ChatID int64
	Text   string
}

// TemplateWriter persists a chat's welcome template.
type TemplateWriter interface {
	SetWelcomeTemplate(ctx context.Context, chatID int64, text string) error
}

// Manager holds one session per user. Sessions expire after ttl.
type Manager struct {
	mu       sync.Mutex
	sessions *cache.Cache
	writer   TemplateWriter
	logger   *logrus.Logger
}

// NewManager creates a conversation manager
func NewManager(writer TemplateWriter, ttl time.Duration, logger *logrus.Logger) *Manager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Manager{
		sessions: cache.New(ttl, ttl),
		writer:   writer,
		logger:   logger,
	}
}

func sessionKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Begin opens a session for userID targeting chatID, replacing any previous one.
func (m *Manager) Begin(userID, chatID int64) Session {
	session := Session{
		UserID:       userID,
		TargetChatID: chatID,
		StartedAt:    time.Now(),
	}

	m.mu.Lock()
	m.sessions.SetDefault(sessionKey(userID), session)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"chat_id": chatID,
	}).Debug("Welcome conversation started")
	return session
}

// Pending returns the open session of userID, if any.
func (m *Manager) Pending(userID int64) (Session, bool) {
	if val, found := m.sessions.Get(sessionKey(userID)); found {
		return val.(Session), true
	}
	return Session{}, false
}

// State reports the conversation state of userID.
func (m *Manager) State(userID int64) State {
	if _, ok := m.Pending(userID); ok {
		return StateAwaitingWelcomeText
	}
	return StateIdle
}

// Cancel closes the session of userID without writing. It reports whether one was open.
func (m *Manager) Cancel(userID int64) bool {
	_, ok := m.take(userID)
	return ok
}

// take removes and returns the session of userID.
func (m *Manager) take(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(userID)
	val, found := m.sessions.Get(key)
	if !found {
		return Session{}, false
	}
	m.sessions.Delete(key)
	return val.(Session), true
}

// Submit consumes the open session of userID with the given message text.
// The session is closed whatever the outcome.
func (m *Manager) Submit(ctx context.Context, userID int64, text string) (Result, error) {
	session, ok := m.take(userID)
	if !ok {
		return Result{Kind: ResultNone}, nil
	}

	result := Result{ChatID: session.TargetChatID}
	if text == "" {
		result.Kind = ResultEmpty
		return result, nil
	}

	if err := m.writer.SetWelcomeTemplate(ctx, session.TargetChatID, text); err != nil {
		return result, err
	}

	result.Kind = ResultSaved
	result.Text = text
	m.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"chat_id": session.TargetChatID,
	}).Info("Welcome template updated")
	return result, nil
}
