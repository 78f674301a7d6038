package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/handlers"
	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/middleware"
	"github.com/channelactions-tgbot-go/internal/services/broadcast"
	"github.com/channelactions-tgbot-go/internal/services/cache"
	"github.com/channelactions-tgbot-go/internal/services/conversation"
	"github.com/channelactions-tgbot-go/internal/services/joinrequest"
	"github.com/channelactions-tgbot-go/internal/services/storage"
	"github.com/channelactions-tgbot-go/internal/telegram"
	"github.com/channelactions-tgbot-go/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Channel Actions Bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	if cfg.Bot.Username == "" {
		cfg.Bot.Username = bot.Self.UserName
	}
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := middleware.NewMetrics()

	storageManager, err := storage.NewManager(cfg, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer func() {
		if err := storageManager.Close(); err != nil {
			log.WithError(err).Error("Failed to close storage")
		}
	}()

	chatCache := cache.NewCache(&cfg.Cache, metrics, log)
	client := telegram.NewClient(bot, chatCache, log)

	rateLimiter := middleware.NewRateLimiter(cfg, metrics, log)
	go rateLimiter.Run(ctx.Done())

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	handler := handlers.NewHandler(
		client,
		cfg,
		storageManager,
		joinrequest.NewEngine(storageManager, storageManager, client, metrics, log),
		conversation.NewManager(storageManager, cfg.Conversation.TTL, log),
		broadcast.NewEngine(&cfg.Broadcast, storageManager, client, metrics, log),
		rateLimiter,
		localizer,
		metrics,
		log,
	)

	updates := make(chan telegram.Update, 100)
	router := middleware.NewRouter(cfg)

	if cfg.Bot.Webhook.Enabled {
		webhookPath := "/" + bot.Token
		webhook, err := tgbotapi.NewWebhook(cfg.Bot.Webhook.URL + webhookPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}
		webhook.AllowedUpdates = telegram.AllowedUpdates
		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}

		router.Handle(webhookPath, telegram.WebhookHandler(updates, log)).Methods(http.MethodPost)
		log.WithField("url", cfg.Bot.Webhook.URL).Info("Webhook set")
	} else {
		// A webhook left over from a previous deployment blocks getUpdates
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Warn("Failed to delete webhook")
		}

		poller := telegram.NewPoller(bot, cfg.Bot.UpdateTimeout, log)
		go func() {
			if err := poller.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Polling stopped")
			}
		}()
		log.Info("Using long polling")
	}

	var server *http.Server
	if cfg.Server.Enabled || cfg.Bot.Webhook.Enabled {
		server = middleware.NewServer(cfg.Server.Port, router)
		go func() {
			log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP server failed")
			}
		}()
	}

	go refreshGauges(ctx, storageManager, metrics, log)

	var inflight sync.WaitGroup
	dispatch(ctx, updates, handler, &inflight, log)

	log.Info("Shutdown signal received")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down HTTP server")
		}
		cancel()
	}

	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}

	inflight.Wait()
	handler.Wait()
	log.Info("Bot stopped")
}

// dispatch feeds updates to the handler until ctx is done. Join requests are
// independent of each other and run concurrently; everything else is handled
// in arrival order so a user's conversation steps stay ordered.
func dispatch(ctx context.Context, updates <-chan telegram.Update, handler *handlers.Handler, inflight *sync.WaitGroup, log *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.ChatJoinRequest != nil {
				inflight.Add(1)
				go func() {
					defer inflight.Done()
					handle(ctx, handler, update, log)
				}()
				continue
			}
			handle(ctx, handler, update, log)
		}
	}
}

func handle(ctx context.Context, handler *handlers.Handler, update telegram.Update, log *logrus.Logger) {
	if err := handler.HandleUpdate(ctx, update); err != nil {
		chatID, userID := identify(update)
		logger.WithContext(log, chatID, userID).
			WithError(err).
			WithField("kind", update.Kind()).
			Error("Failed to handle update")
	}
}

func identify(update telegram.Update) (chatID, userID int64) {
	switch {
	case update.ChatJoinRequest != nil:
		return update.ChatJoinRequest.Chat.ID, update.ChatJoinRequest.From.ID
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From != nil {
			userID = update.CallbackQuery.From.ID
		}
		if msg := update.CallbackQuery.Message; msg != nil && msg.Chat != nil {
			chatID = msg.Chat.ID
		}
	case update.Message != nil:
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		if update.Message.Chat != nil {
			chatID = update.Message.Chat.ID
		}
	}
	return chatID, userID
}

// refreshGauges keeps the user and chat gauges in line with storage
func refreshGauges(ctx context.Context, storage *storage.Manager, metrics *middleware.Metrics, log *logrus.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		if users, err := storage.CountUsers(ctx); err != nil {
			log.WithError(err).Warn("Failed to count users")
		} else {
			metrics.SetKnownUsers(float64(users))
		}
		if chats, err := storage.CountChats(ctx); err != nil {
			log.WithError(err).Warn("Failed to count chats")
		} else {
			metrics.SetConfiguredChats(float64(chats))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
