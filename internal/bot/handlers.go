package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/conversation"
	"gopkg.in/telebot.v4"
)

// textHandler forwards every text message, slash commands included, to the router.
func (b *Bot) textHandler(ctx telebot.Context) error {
	msg := conversation.Message{
		ExternalID: ctx.Sender().ID,
		ChatID:     ctx.Chat().ID,
		Username:   ctx.Sender().Username,
		Text:       ctx.Text(),
	}
	if message := ctx.Message(); message != nil {
		msg.Timestamp = message.Time()
	}

	response := b.handler.HandleMessage(context.Background(), msg)
	return b.deliver(ctx, response)
}

// choiceHandler forwards a pressed inline button to the router.
func (b *Bot) choiceHandler(ctx telebot.Context) error {
	callback := ctx.Callback()
	if callback == nil {
		return nil
	}

	cb := conversation.Callback{
		ExternalID: ctx.Sender().ID,
		Username:   ctx.Sender().Username,
		Token:      choiceToken(callback),
	}
	if chat := ctx.Chat(); chat != nil {
		cb.ChatID = chat.ID
	}
	b.log.Debug("User selected choice", "user", cb.ExternalID, "token", cb.Token)

	b.metrics.SentMessages.WithLabelValues("respond").Inc()
	_ = ctx.Respond()

	response := b.handler.HandleChoice(context.Background(), cb)
	return b.deliver(ctx, response)
}

// choiceToken returns the token of a choice button. Callbacks from foreign keyboards
// keep their raw data so the router can reject them.
func choiceToken(callback *telebot.Callback) string {
	if callback.Unique == btnChoice.Unique {
		return callback.Data
	}
	return strings.TrimPrefix(callback.Data, "\f")
}

// deliver sends the text with its choices and then the attached document, if any.
func (b *Bot) deliver(ctx telebot.Context, response conversation.Response) error {
	if response.Text != "" {
		var opts []interface{}
		if markup := choicesMarkup(response.Choices); markup != nil {
			opts = append(opts, markup)
		}

		b.metrics.SentMessages.WithLabelValues("text").Inc()
		if err := ctx.Send(response.Text, opts...); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
	}

	if response.Document != nil {
		file := &telebot.Document{
			File:     telebot.FromReader(bytes.NewReader(response.Document.Data)),
			FileName: response.Document.FileName,
			MIME:     response.Document.MIME,
		}

		b.metrics.SentMessages.WithLabelValues("file").Inc()
		if err := ctx.Send(file); err != nil {
			return fmt.Errorf("failed to send document: %w", err)
		}
	}

	return nil
}
