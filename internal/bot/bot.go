// Package bot connects the conversation router to Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/conversation"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
	"gopkg.in/telebot.v4"
)

// Handler answers inbound chat events. conversation.Router implements it.
type Handler interface {
	HandleMessage(ctx context.Context, msg conversation.Message) conversation.Response
	HandleChoice(ctx context.Context, cb conversation.Callback) conversation.Response
}

// Settings selects how updates are received. A non-empty WebhookURL switches from
// long polling to a webhook served on Listen.
type Settings struct {
	Token      string
	Poller     time.Duration
	WebhookURL string
	Listen     string
}

// Bot contains the bot API instance and other information.
type Bot struct {
	bot     *telebot.Bot
	log     *slog.Logger
	handler Handler
	metrics *metrics.Metrics
}

// btnChoice carries every choice token as its callback data.
var btnChoice = telebot.InlineButton{Unique: "choice"}

// NewBot creates a new bot with the given settings.
func NewBot(log *slog.Logger, handler Handler, metrics *metrics.Metrics, settings Settings) (*Bot, error) {
	botInstance := &Bot{
		log:     log,
		handler: handler,
		metrics: metrics,
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:   settings.Token,
		Poller:  newPoller(settings),
		OnError: botInstance.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	botInstance.bot = bot
	botInstance.registerRoutes()

	return botInstance, nil
}

func newPoller(settings Settings) telebot.Poller {
	if settings.WebhookURL == "" {
		return &telebot.LongPoller{Timeout: settings.Poller}
	}
	return &telebot.Webhook{
		Listen:   settings.Listen,
		Endpoint: &telebot.WebhookEndpoint{PublicURL: settings.WebhookURL},
	}
}

// Start launches the bot to listen for updates. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes. Commands are not registered with telebot:
// they reach the router as plain text, which keeps one command table.
func (b *Bot) registerRoutes() {
	b.bot.Use(b.MetricsMiddleware, b.PrivateChatMiddleware)

	b.bot.Handle(telebot.OnText, b.textHandler)
	b.bot.Handle(&btnChoice, b.choiceHandler)
	b.bot.Handle(telebot.OnCallback, b.choiceHandler)
}

func (b *Bot) onError(err error, ctx telebot.Context) {
	if ctx == nil || ctx.Sender() == nil {
		b.log.Error("Telegram bot error", "error", err)
		return
	}
	b.metrics.SentMessages.WithLabelValues("error").Inc()
	b.log.Error("Failed to handle update", "user", ctx.Sender().ID, "error", err)
}
