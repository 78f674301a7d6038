// Package broadcast copies an owner's message to every known user.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrAlreadyRunning is returned when a broadcast is started while another is in progress.
var ErrAlreadyRunning = errors.New("a broadcast is already running")

// Audience lists the users a broadcast goes to.
type Audience interface {
	CountUsers(ctx context.Context) (int64, error)
	UserIDs(ctx context.Context) ([]int64, error)
}

// Sender copies a message into a user's private chat.
type Sender interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Request identifies the message to broadcast.
type Request struct {
	SourceChatID int64
	MessageID    int
	ReplyMarkup  *tgbotapi.InlineKeyboardMarkup
}

// Report accumulates the result of a run.
type Report struct {
	ID         string
	TotalUsers int64
	Sent       int64
	Blocked    int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// UnknownFailures is the number of users neither reached nor counted as blocked.
func (r Report) UnknownFailures() int64 {
	return r.TotalUsers - r.Sent - r.Blocked
}

// Duration of the run, or the time elapsed so far while it is running.
func (r Report) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartedAt)
}

// ProgressFunc receives the report so far. Its error is logged and ignored.
type ProgressFunc func(ctx context.Context, report Report) error

// Engine runs broadcasts, one at a time.
type Engine struct {
	audience      Audience
	sender        Sender
	limiter       *rate.Limiter
	progressEvery int
	metrics       *middleware.Metrics
	logger        *logrus.Logger
	running       atomic.Bool
}

// NewEngine creates a broadcast engine
func NewEngine(cfg *config.BroadcastConfig, audience Audience, sender Sender, metrics *middleware.Metrics, logger *logrus.Logger) *Engine {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	every := cfg.ProgressEvery
	if every <= 0 {
		every = 100
	}

	return &Engine{
		audience:      audience,
		sender:        sender,
		limiter:       rate.NewLimiter(limit, 1),
		progressEvery: every,
		metrics:       metrics,
		logger:        logger,
	}
}

// Running reports whether a broadcast is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run copies req to every known user in sequence. progress may be nil.
func (e *Engine) Run(ctx context.Context, req Request, progress ProgressFunc) (Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	report := Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := e.logger.WithField("run_id", report.ID)

	total, err := e.audience.CountUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to count users: %w", err)
	}
	report.TotalUsers = total

	recipients, err := e.audience.UserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}

	log.WithField("total_users", total).Info("Broadcast started")

	attempted := 0
	for _, userID := range recipients {
		if err := e.limiter.Wait(ctx); err != nil {
			report.FinishedAt = time.Now()
			log.WithError(err).Warn("Broadcast interrupted")
			return report, err
		}

		if err := e.sender.CopyMessage(ctx, userID, req.SourceChatID, req.MessageID, req.ReplyMarkup); err != nil {
			report.Blocked++
			e.metrics.RecordBroadcastSend("failed")
			log.WithError(err).WithField("user_id", userID).Debug("Broadcast delivery failed")
		} else {
			report.Sent++
			e.metrics.RecordBroadcastSend("sent")
		}

		attempted++
		if progress != nil && attempted%e.progressEvery == 0 {
			if err := progress(ctx, report); err != nil {
				log.WithError(err).Warn("Failed to report broadcast progress")
			}
		}
	}

	report.FinishedAt = time.Now()
	e.metrics.RecordBroadcastRun(report.Duration())
	log.WithFields(logrus.Fields{
		"sent":    report.Sent,
		"blocked": report.Blocked,
		"unknown": report.UnknownFailures(),
	}).Info("Broadcast finished")

	return report, nil
}
