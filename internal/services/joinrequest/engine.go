// Package joinrequest decides pending join requests and notifies the requester.
package joinrequest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/channelactions-tgbot-go/internal/middleware"
	"github.com/channelactions-tgbot-go/internal/models"
	"github.com/channelactions-tgbot-go/internal/services/welcome"
	"github.com/sirupsen/logrus"
)

// ErrActionFailed is returned when the platform rejects the approve/decline call.
var ErrActionFailed = errors.New("join request action failed")

// SettingsSource resolves the effective settings of a chat.
type SettingsSource interface {
	Settings(ctx context.Context, chatID int64) (models.ChatSettings, error)
}

// UserTracker records requesters as known users.
type UserTracker interface {
	TrackUser(ctx context.Context, userID int64) error
}

// Platform is the subset of the messaging platform the engine drives.
type Platform interface {
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineJoinRequest(ctx context.Context, chatID, userID int64) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// Outcome describes what happened to a single join request.
type Outcome struct {
	Decision models.Decision
	Notified bool
}

// Engine handles join requests. It is safe for concurrent use.
type Engine struct {
	settings  SettingsSource
	users     UserTracker
	platform  Platform
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	processed atomic.Int64
}

// NewEngine creates a join request engine. users may be nil.
func NewEngine(settings SettingsSource, users UserTracker, platform Platform, metrics *middleware.Metrics, logger *logrus.Logger) *Engine {
	return &Engine{
		settings: settings,
		users:    users,
		platform: platform,
		metrics:  metrics,
		logger:   logger,
	}
}

// Processed returns the number of requests approved or declined since start.
func (e *Engine) Processed() int64 {
	return e.processed.Load()
}

// Handle applies the chat's policy to req and notifies the requester.
//
// A failed notification does not fail the request: the decision already
// took effect on the platform.
func (e *Engine) Handle(ctx context.Context, req models.JoinRequest) (Outcome, error) {
	log := e.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"user_id": req.UserID,
	})

	settings, err := e.settings.Settings(ctx, req.ChatID)
	if err != nil {
		e.metrics.RecordJoinRequest("unknown", "store_error")
		return Outcome{}, err
	}

	decision := models.DecisionFor(settings.AutoApprove)
	outcome := Outcome{Decision: decision}

	if err := e.act(ctx, req, decision); err != nil {
		log.WithError(err).WithField("decision", decision).Error("Failed to handle join request")
		e.metrics.RecordJoinRequest(decision.String(), "error")
		return outcome, fmt.Errorf("%w: %w", ErrActionFailed, err)
	}

	e.processed.Add(1)
	e.metrics.RecordJoinRequest(decision.String(), "success")
	log.WithField("decision", decision).Info("Join request handled")

	if e.users != nil {
		if err := e.users.TrackUser(ctx, req.UserID); err != nil {
			log.WithError(err).Warn("Failed to track requester")
		}
	}

	text := welcome.Render(settings.WelcomeTemplate, req.UserName, req.ChatTitle, decision)
	if err := e.platform.SendText(ctx, req.UserID, text); err != nil {
		log.WithError(err).Warn("Failed to send welcome message")
		e.metrics.RecordJoinNotification("error")
		return outcome, nil
	}

	e.metrics.RecordJoinNotification("success")
	outcome.Notified = true
	return outcome, nil
}

func (e *Engine) act(ctx context.Context, req models.JoinRequest, decision models.Decision) error {
	if decision == models.DecisionApproved {
		return e.platform.ApproveJoinRequest(ctx, req.ChatID, req.UserID)
	}
	return e.platform.DeclineJoinRequest(ctx, req.ChatID, req.UserID)
}
