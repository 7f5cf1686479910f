package bot

import (
	"gopkg.in/telebot.v4"
)

// PrivateChatMiddleware drops updates without a sender and updates from group chats.
// Identity is per user, so the bot only talks in private chats.
func (b *Bot) PrivateChatMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		if ctx.Sender() == nil {
			return nil
		}
		if chat := ctx.Chat(); chat != nil && chat.Type != telebot.ChatPrivate {
			b.log.Debug("Ignoring update from non-private chat", "chat", chat.ID, "user", ctx.Sender().ID)
			return nil
		}
		return next(ctx)
	}
}

// MetricsMiddleware counts inbound updates by kind.
func (b *Bot) MetricsMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		kind := "text"
		if ctx.Callback() != nil {
			kind = "callback"
		}
		b.metrics.Updates.WithLabelValues(kind).Inc()
		return next(ctx)
	}
}
